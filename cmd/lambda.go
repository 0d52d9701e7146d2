package main

import (
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"chatbot/handler"
	"chatbot/internal/observability"
	"chatbot/internal/repository"
)

func newLambdaCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Run as an AWS Lambda function behind API Gateway",
		Long: `Sessions are kept in memory for the lifetime of the warm execution
environment; a cold start begins with no sessions.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			log := observability.New(os.Stdout, cfg.LogLevel)

			chat, _, err := newChatService(cmd.Context(), cfg, log, newSSMTokenGetter)
			if err != nil {
				return err
			}
			h, err := handler.NewHandler(chat, repository.NewSessions(), log)
			if err != nil {
				return err
			}

			lambda.Start(h.Handle)
			return nil
		},
	}
}
