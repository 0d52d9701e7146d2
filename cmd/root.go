package main

import (
	"github.com/spf13/cobra"

	"chatbot/internal/config"
)

type rootOptions struct {
	envFile  string
	provider string
}

// load reads configuration and applies the --provider override.
func (o *rootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return config.Config{}, err
	}
	return cfg.WithProvider(o.provider)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "chatbot",
		Short:         "Chat with a hosted language model from the terminal, a browser or Lambda",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "dotenv file to read before the environment")
	root.PersistentFlags().StringVar(&opts.provider, "provider", "", "provider family: openai or gemini (overrides PROVIDER)")

	root.AddCommand(newChatCmd(opts), newServeCmd(opts), newLambdaCmd(opts))
	return root
}
