package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"pagemotion/internal/compositor"
	"pagemotion/internal/pkg/logger"
	"pagemotion/internal/worker/processor"
)

func newComposeCommand() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:         "compose <document.pptx> <snapshot>...",
		Short:       "Composite a document's animations over its page snapshots locally",
		Args:        cobra.MinimumNArgs(1),
		Annotations: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			engine := compositor.New(logger.Discard())
			pages, err := processor.ComposeDocument(cmd.Context(), engine, args[0], args[1:], outDir)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(pages))
			for _, p := range pages {
				animated, frames, delay := "no", "-", "-"
				if p.Animated {
					animated = "yes"
					frames = strconv.Itoa(p.FrameBudget)
					delay = strconv.Itoa(p.DelayMs) + " ms"
				}
				rows = append(rows, []string{
					strconv.Itoa(p.Number),
					filepath.Base(p.Path),
					animated,
					strconv.Itoa(p.Animations),
					frames,
					delay,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Slide", "Output", "Animated", "Animations", "Frames", "Delay"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory receiving slide<N> outputs")
	return cmd
}
