// Command diarybot runs the diary enrichment backend: the HTTP API the chat
// adapter talks to and the debounce worker that enriches buffered messages.
//
//	diarybot serve      API and worker in one process
//	diarybot worker     worker only
//	diarybot migrate    create or update the schema and seed prompts
//	diarybot extract    print the attributes extracted from text
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-diary-bot/internal/config"
	"github.com/tbourn/go-diary-bot/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("diarybot failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	var cfg config.Config

	root := &cobra.Command{
		Use:           "diarybot",
		Short:         "Diary message enrichment backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env is normal outside local development.
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
					return err
				}
			}
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			sysutil.ConfigureLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty,
				sysutil.FirstNonEmpty(cfg.OTEL.ServiceName, "go-diary-bot"))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment, empty to skip")

	cfgFn := func() config.Config { return cfg }
	root.AddCommand(
		newServeCmd(cfgFn),
		newWorkerCmd(cfgFn),
		newMigrateCmd(cfgFn),
		newExtractCmd(cfgFn),
	)
	return root
}
