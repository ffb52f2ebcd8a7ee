// Command texquiz parses LaTeX exam sources from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"quiz-tex/internal/app"
	"quiz-tex/internal/config"
	"quiz-tex/internal/logger"

	"github.com/spf13/cobra"
)

var version = "dev"

type cli struct {
	configFile string
	logLevel   string
	noCache    bool
	pretty     bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "texquiz",
		Short:         "Parse LaTeX exam and lecture sources into structured questions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default ./config.yaml)")
	flags.StringVar(&c.logLevel, "log-level", "", "override logger.level")
	flags.BoolVar(&c.noCache, "no-cache", false, "do not use Redis")
	flags.BoolVar(&c.pretty, "pretty", false, "indent JSON output")

	root.AddCommand(
		newParseCmd(c),
		newRenderCmd(c),
		newImportCmd(c),
		newWatchCmd(c),
		newRulesCmd(c),
	)
	return root
}

func (c *cli) init() error {
	if c.configFile != "" {
		if err := os.Setenv("TEXQUIZ_CONFIG", c.configFile); err != nil {
			return err
		}
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logger.Level = c.logLevel
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

func (c *cli) newApp(opts app.Options) (*app.App, error) {
	opts.UseCache = opts.UseCache && !c.noCache
	return app.New(c.cfg, opts)
}

func (c *cli) writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if c.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
