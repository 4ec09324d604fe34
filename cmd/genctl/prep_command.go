package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"genstudio/internal/media"
	"genstudio/internal/mediatypes"

	"github.com/spf13/cobra"
)

func newPrepCommand(c *commandContext) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "prep <file>...",
		Short: "Convert and resize reference images the way the server does",
		Long: "Runs each file through legacy-format conversion and budget resizing, " +
			"then writes the result to the output directory. Files that fail are " +
			"reported and skipped.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			conv, release := c.converter()
			defer release()
			pipeline := media.NewPipeline(nil, conv, nil)

			out := cmd.OutOrStdout()
			live := c.isTerminal(out)
			failed := 0

			for i, path := range args {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				name := sanitizeName(filepath.Base(path))
				if live {
					fmt.Fprintf(out, "\r\033[K[%d/%d] %s", i+1, len(args), name)
				}

				line, err := prepOne(cmd, pipeline, path, outDir)
				if live {
					fmt.Fprint(out, "\r\033[K")
				}
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", name, err)
					continue
				}
				fmt.Fprintln(out, line)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "Directory to write prepared files to")
	return cmd
}

func prepOne(cmd *cobra.Command, pipeline *media.Pipeline, path, outDir string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	name := filepath.Base(path)
	if !mediatypes.IsImageExtension(strings.ToLower(filepath.Ext(name))) {
		return "", errors.New("unsupported file type")
	}

	prepared, err := pipeline.Prepare(cmd.Context(), media.NewFile(name, "", data))
	if err != nil {
		return "", err
	}

	dest := filepath.Join(outDir, prepared.File.Name)
	if err := os.WriteFile(dest, prepared.File.Data, 0o644); err != nil {
		return "", err
	}

	var notes []string
	if prepared.Converted {
		notes = append(notes, "converted")
	}
	if prepared.Resized {
		notes = append(notes, fmt.Sprintf("resized q%d", prepared.Quality))
	}
	if len(notes) == 0 {
		notes = append(notes, "unchanged")
	}
	return fmt.Sprintf("%s -> %s (%s, %d -> %d bytes)",
		sanitizeName(name), sanitizeName(dest), strings.Join(notes, ", "),
		prepared.OriginalSize, prepared.File.Size()), nil
}
