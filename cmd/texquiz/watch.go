package main

import (
	"context"
	"io"
	"path/filepath"

	"quiz-tex/internal/app"
	"quiz-tex/internal/dto"
	"quiz-tex/internal/logger"
	"quiz-tex/internal/watcher"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch FILE...",
		Short: "Reparse files whenever they change",
		Long: `Watches the given files and the configured rule file. Each reparse
prints one JSON document summary per line. Changing the rule file reloads
the rules and reparses every watched file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(app.Options{UseCache: true})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()

			return c.watch(ctx, a, args, cmd.OutOrStdout())
		},
	}
}

func (c *cli) watch(ctx context.Context, a *app.App, paths []string, out io.Writer) error {
	log := logger.Get()

	rulesFile := ""
	if c.cfg.Parser.RulesFile != "" {
		rulesFile, _ = filepath.Abs(c.cfg.Parser.RulesFile)
	}

	var w *watcher.Watcher
	reload := func(ctx context.Context, path string) error {
		doc, err := a.Documents.ReloadFile(ctx, path)
		if err != nil {
			return err
		}
		return c.writeJSON(out, dto.NewDocumentSummary(doc))
	}
	handler := func(ctx context.Context, path string) error {
		if path != rulesFile {
			return reload(ctx, path)
		}
		if err := a.ReloadRules(); err != nil {
			return err
		}
		log.Info("Rules reloaded, reparsing watched files")
		for _, f := range w.Files() {
			if f == rulesFile {
				continue
			}
			if err := reload(ctx, f); err != nil {
				log.Warn("Reparse failed", zap.String("file", f), zap.Error(err))
			}
		}
		return nil
	}

	w, err := watcher.New(c.cfg.Watch.Debounce, handler, log)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, p := range paths {
		if err := w.Add(p); err != nil {
			return err
		}
		if err := reload(ctx, p); err != nil {
			log.Warn("Initial parse failed", zap.String("file", p), zap.Error(err))
		}
	}
	if rulesFile != "" {
		if err := w.Add(rulesFile); err != nil {
			log.Warn("Rule file not watched", zap.String("file", rulesFile), zap.Error(err))
		}
	}

	log.Info("Watching files", zap.Strings("files", w.Files()))
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
