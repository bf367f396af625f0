package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/upb/insight-rag/app"
	"github.com/upb/insight-rag/handlers"
)

func NewSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <query>",
		Short: "Print three suggestions for a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDependencies(cmd, func(ctx context.Context, deps *app.Dependencies) error {
				if err := deps.Pipeline.Initialize(ctx); err != nil {
					return fmt.Errorf("initialize pipeline: %w", err)
				}
				suggestions := deps.Pipeline.TopSuggestions(ctx, args[0])
				return printJSON(cmd, handlers.SuggestionsResponse{Suggestions: suggestions})
			})
		},
	}
}

func NewAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Print an answer and its sources for a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDependencies(cmd, func(ctx context.Context, deps *app.Dependencies) error {
				if err := deps.Pipeline.Initialize(ctx); err != nil {
					return fmt.Errorf("initialize pipeline: %w", err)
				}
				return printJSON(cmd, deps.Pipeline.AnswerQuery(ctx, args[0]))
			})
		},
	}
}
