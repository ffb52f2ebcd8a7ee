package main

import (
	"context"
	"fmt"
	"os"

	"quiz-tex/internal/app"
	"quiz-tex/internal/domain"
	"quiz-tex/internal/service"

	"github.com/spf13/cobra"
)

func newRenderCmd(c *cli) *cobra.Command {
	var questionID string
	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render the questions of a file with typeset math",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp(app.Options{UseCache: true, SkipDatabase: true})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()

			out, err := renderFile(ctx, a.Documents, a.Renders, args[0], questionID)
			if err != nil {
				return err
			}
			return c.writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&questionID, "question", "q", "", "render only the question with this unique id")
	return cmd
}

func renderFile(ctx context.Context, docs service.DocumentService, renders service.RenderService, path, questionID string) ([]*service.RenderedQuestion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	result, err := docs.Parse(ctx, string(data))
	if err != nil {
		return nil, err
	}

	if questionID != "" {
		q, ok := result.FindQuestion(questionID)
		if !ok {
			return nil, domain.NewQuestionNotFoundError(path, questionID)
		}
		return []*service.RenderedQuestion{renders.RenderNode(ctx, q, result.Macros)}, nil
	}

	out := make([]*service.RenderedQuestion, 0, len(result.Questions))
	for i := range result.Questions {
		out = append(out, renders.RenderNode(ctx, &result.Questions[i], result.Macros))
	}
	return out, nil
}
