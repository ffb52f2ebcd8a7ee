package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"quiz-tex/internal/config"
	"quiz-tex/internal/domain"
)

// ErrFigureRendererDisabled is returned when no figure command is configured.
var ErrFigureRendererDisabled = errors.New("figure renderer is not configured")

// ExecFigureRenderer implements domain.FigureRenderer by piping the TikZ
// source through an external program and reading SVG from its stdout.
type ExecFigureRenderer struct {
	command string
	args    []string
	timeout time.Duration
}

// NewExecFigureRenderer returns nil when cfg names no command, so callers
// can treat figure rendering as optional.
func NewExecFigureRenderer(cfg config.FigureConfig) domain.FigureRenderer {
	if cfg.Command == "" {
		return nil
	}
	return &ExecFigureRenderer{command: cfg.Command, args: cfg.Args, timeout: cfg.Timeout}
}

func (r *ExecFigureRenderer) RenderFigure(ctx context.Context, source string) (string, error) {
	if r == nil || r.command == "" {
		return "", ErrFigureRendererDisabled
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.command, r.args...)
	cmd.Stdin = strings.NewReader(source)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("figure command %s: %w", r.command, ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("figure command %s: %w", r.command, err)
		}
		return "", fmt.Errorf("figure command %s: %w: %s", r.command, err, msg)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("figure command %s produced no output", r.command)
	}
	return out, nil
}
