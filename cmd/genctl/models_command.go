package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"genstudio/internal/database"
	"genstudio/internal/generation"

	"github.com/spf13/cobra"
)

func newModelsCommand(c *commandContext) *cobra.Command {
	var buffer time.Duration

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the model registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withDatabase(cmd.Context(), func(ctx context.Context, db *database.Database) error {
				models, err := db.ListModels(ctx)
				if err != nil {
					return err
				}
				if len(models) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No models registered.")
					return nil
				}

				table := make([][]string, 0, len(models))
				for i := range models {
					m := &models[i]
					table = append(table, []string{
						m.ID,
						m.Name,
						formatAverage(m),
						formatSeconds(m.EstimatedDuration(buffer)),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Average", "Estimate"}, table, 3, 4))
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&buffer, "buffer", 2*time.Second, "Safety buffer added to each estimate")
	return cmd
}

func formatAverage(m *generation.Model) string {
	if m.AvgGenerationTime == nil {
		return "default"
	}
	return formatSeconds(m.AverageDuration())
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "s"
}

func newSetModelCommand(c *commandContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "set-model <id> <seconds|none>",
		Short: "Create or update a model's average generation time",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			avg, err := parseAverage(args[1])
			if err != nil {
				return err
			}

			return c.withDatabase(cmd.Context(), func(ctx context.Context, db *database.Database) error {
				if err := db.UpsertModel(ctx, generation.Model{ID: args[0], Name: name, AvgGenerationTime: avg}); err != nil {
					return err
				}
				m, err := db.LookupModel(ctx, strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if m == nil {
					return fmt.Errorf("model %s was not saved", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s): average %s\n", m.ID, m.Name, formatAverage(m))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (kept when omitted)")
	return cmd
}

// parseAverage accepts seconds up to a day, or "none" to clear.
func parseAverage(raw string) (*float64, error) {
	if strings.EqualFold(raw, "none") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !generation.ValidAverage(v) {
		return nil, fmt.Errorf("invalid average %q: want 0-%v seconds or \"none\"",
			raw, generation.MaxAvgGenerationTime.Seconds())
	}
	return &v, nil
}
