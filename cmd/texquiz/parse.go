package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"quiz-tex/internal/app"
	"quiz-tex/internal/domain"
	"quiz-tex/internal/service"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type fileResult struct {
	File   string              `json:"file"`
	Result *domain.ParseResult `json:"result"`
}

func newParseCmd(c *cli) *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "parse FILE...",
		Short: "Parse files and print their questions as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(app.Options{UseCache: true, SkipDatabase: true})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()

			results, err := parseFiles(ctx, a.Documents, args, jobs)
			if err != nil {
				return err
			}
			return c.writeJSON(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "files parsed in parallel")
	return cmd
}

// parseFiles parses paths concurrently and returns the results in input
// order. The first failure cancels the remaining work.
func parseFiles(ctx context.Context, docs service.DocumentService, paths []string, jobs int) ([]fileResult, error) {
	results := make([]fileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			result, err := docs.Parse(gctx, string(data))
			if err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}
			results[i] = fileResult{File: path, Result: result}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
