package main

import (
	"github.com/spf13/cobra"

	"lingo/internal/services"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var keyFlag string
	var jsonFlag bool

	ctx := newCommandContext(&configFlag, &keyFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:           "lingo",
		Short:         "Client for the lingo translation backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(services.WithCommand(cmd.Context(), cmd.CommandPath()))
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&keyFlag, "key", "", "API key for this invocation (overrides the session and config keys)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Emit JSON instead of human-readable output")

	rootCmd.AddCommand(newHealthCommand(ctx))
	rootCmd.AddCommand(newTranslateCommand(ctx))
	rootCmd.AddCommand(newJobsCommand(ctx))
	rootCmd.AddCommand(newKeysCommand(ctx))
	for _, cmd := range newSessionCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newGlossaryCommand(ctx))
	rootCmd.AddCommand(newFeedbackCommand(ctx))
	rootCmd.AddCommand(newLanguagesCommand(ctx))
	rootCmd.AddCommand(newScopesCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))

	return rootCmd
}
