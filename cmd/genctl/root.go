package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"genstudio/internal/database"
	"genstudio/internal/media"
	"genstudio/internal/workers"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	// Default database directory path
	defaultDatabaseDir = "/database"
)

// commandContext carries what subcommands share.
type commandContext struct {
	databaseDir string
	// converter returns the legacy-format converter, or nil when libvips
	// cannot be started, and a func releasing it.
	converter func() (media.Converter, func())
	// isTerminal reports whether progress can be redrawn in place.
	isTerminal func(out any) bool
}

func newCommandContext() *commandContext {
	dir := os.Getenv("DATABASE_DIR")
	if dir == "" {
		dir = defaultDatabaseDir
	}
	return &commandContext{
		databaseDir: dir,
		converter:   vipsConverter,
		isTerminal:  stdoutIsTerminal,
	}
}

func vipsConverter() (media.Converter, func()) {
	if err := media.InitVips(workers.ForCPU(0)); err != nil || !media.IsVipsAvailable() {
		return nil, func() {}
	}
	return media.VipsConverter{}, media.ShutdownVips
}

func stdoutIsTerminal(out any) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// withDatabase opens the registry for the duration of fn.
func (c *commandContext) withDatabase(ctx context.Context, fn func(ctx context.Context, db *database.Database) error) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	dbPath := filepath.Join(c.databaseDir, "genstudio.db")
	db, err := database.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database (DATABASE_DIR=%s): %w", c.databaseDir, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	return fn(ctx, db)
}

func newRootCommand(c *commandContext) *cobra.Command {
	root := &cobra.Command{
		Use:           "genctl",
		Short:         "GenStudio maintenance tool",
		Long:          "Inspect the model registry and run reference image preprocessing locally.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&c.databaseDir, "database-dir", c.databaseDir, "Directory holding genstudio.db (env DATABASE_DIR)")

	root.AddCommand(newPrepCommand(c))
	root.AddCommand(newModelsCommand(c))
	root.AddCommand(newSetModelCommand(c))

	return root
}

// sanitizeName keeps printable filenames printable; anything else becomes '_'.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, name)
}
