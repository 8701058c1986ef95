package cli

import (
	"github.com/common-nighthawk/go-figure"
	"github.com/manishahirrao/postpilot/internal/config"
	"github.com/manishahirrao/postpilot/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	cfg      config.Config
	settings Settings
	logLevel string
	app      *App
}

// NewRootCmd creates the root cobra command for the postpilot CLI.
func NewRootCmd(cfg config.Config) *cobra.Command {
	opts := &rootOptions{cfg: cfg}

	root := &cobra.Command{
		Use:   "postpilot",
		Short: "PostPilot: LinkedIn content from the command line",
		Long:  "PostPilot signs you in to your PostPilot account and generates LinkedIn posts.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetupWithWriter(opts.logLevel, cfg.GetLogFormat(), cmd.ErrOrStderr())
			log.Debug().
				Str("env", cfg.GetEnv()).
				Str("api_url", opts.settings.APIURL).
				Str("storage", opts.settings.Storage).
				Msg("starting")
			app, err := NewApp(cmd.Context(), cfg, opts.settings)
			if err != nil {
				return err
			}
			opts.app = app
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.app == nil {
				return
			}
			if err := opts.app.Close(); err != nil {
				log.Warn().Err(err).Msg("closing storage failed")
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			figure.Write(cmd.OutOrStdout(), figure.NewFigure(cfg.GetAppName(), "cybermedium", true))
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.settings.APIURL, "api-url", cfg.GetAPIBaseURL(), "PostPilot API base URL (or API_BASE_URL env)")
	root.PersistentFlags().StringVar(&opts.settings.Storage, "storage", cfg.GetStorageDriver(), "Session storage: memory, file, bolt, redis (or STORAGE_DRIVER env)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", cfg.GetLogLevel(), "Log level (debug, info, warn, error)")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newRegisterCmd(opts),
		newGenerateCmd(opts),
	)

	return root
}
