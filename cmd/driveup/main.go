package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hackclub/driveup/internal/config"
	"github.com/hackclub/driveup/internal/storage"
	"github.com/hackclub/driveup/internal/uploader"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Version information set at build time.
	version = "dev"
	commit  = "none"
)

var (
	logLevel string
	logPath  string
	backend  string
	logger   zerolog.Logger
)

func main() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "driveup",
	Short:         "Upload a local folder into a remote storage folder",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		logger = logger.Level(level)
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <local-folder> <destination-folder>",
	Short: "Upload every file under a local folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpload(cmd.Context(), args[0], args[1])
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("driveup %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	uploadCmd.Flags().StringVar(&logPath, "log-file", "", "upload log path (defaults to UPLOAD_LOG_PATH)")
	uploadCmd.Flags().StringVar(&backend, "backend", "", "store backend: drive, r2 or local (defaults to STORE_BACKEND)")

	rootCmd.AddCommand(uploadCmd, versionCmd)
}

func runUpload(ctx context.Context, localRoot, folderName string) error {
	cfg := config.Load()
	if backend != "" {
		cfg.StoreBackend = backend
	}
	if logPath != "" {
		cfg.UploadLogPath = logPath
	}

	store, err := storage.FromConfig(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Str("backend", cfg.StoreBackend).Msg("cannot upload: remote store is not configured")
		return err
	}

	up := uploader.New(store, uploader.Options{LogPath: cfg.UploadLogPath}, logger)

	report, err := up.Run(ctx, localRoot, folderName)
	if report == nil {
		logger.Error().Err(err).Msg("upload run aborted")
		return err
	}

	for _, rec := range report.Records {
		if rec.Succeeded() {
			fmt.Printf("ok    %s -> %s\n", rec.LocalPath, *rec.FileID)
		} else {
			fmt.Printf("error %s: %s\n", rec.LocalPath, rec.ErrorMessage())
		}
	}
	fmt.Printf("Uploaded %d files (%d total)\n", report.SuccessCount, len(report.Records))
	if report.LogPath != "" {
		fmt.Printf("Log written to %s\n", report.LogPath)
	}

	if err != nil {
		logger.Error().Err(err).Msg("upload run finished with errors")
	}
	return err
}
