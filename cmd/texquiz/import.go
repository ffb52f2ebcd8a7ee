package main

import (
	"fmt"
	"os"
	"path/filepath"

	"quiz-tex/internal/app"
	"quiz-tex/internal/dto"
	"quiz-tex/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE...",
		Short: "Parse files and store them in the question bank",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(app.Options{UseCache: true, RequireDatabase: true})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()

			var failed int
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					logger.Get().Error("Failed to read file", zap.String("file", path), zap.Error(err))
					failed++
					continue
				}
				doc, err := a.Documents.Import(ctx, filepath.Base(path), string(data))
				if err != nil {
					logger.Get().Error("Failed to import file", zap.String("file", path), zap.Error(err))
					failed++
					continue
				}
				if err := c.writeJSON(cmd.OutOrStdout(), dto.NewDocumentSummary(doc)); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed to import", failed, len(args))
			}
			return nil
		},
	}
}
