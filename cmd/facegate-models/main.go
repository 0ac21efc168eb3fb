// Command facegate-models provisions the pretrained model artifacts the
// facegate face-recognition pipeline depends on, starting with the dlib
// 68-point face-landmark shape predictor.
//
// Configuration is resolved by viper from, in order of precedence:
//   - environment variables with the FACEGATE_ prefix
//     (FACEGATE_MODELS_DIR, FACEGATE_LOG_LEVEL)
//   - an optional facegate.yaml in the working directory or
//     ~/.config/facegate/
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	models "github.com/facegate/models"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// appName is the application identity: it determines the storage directory
// and the environment variable prefix.
const appName = "facegate"

// CLI exit codes for standardized error reporting.
const (
	// ExitSuccess indicates the operation completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitInvalidArgs indicates invalid command line arguments.
	ExitInvalidArgs = 2

	// ExitNotFound indicates the artifact is not declared in the catalog.
	ExitNotFound = 3

	// ExitNotInstalled indicates the artifact is not installed locally.
	ExitNotInstalled = 4

	// ExitMissingDependency indicates a required external tool is absent.
	ExitMissingDependency = 5

	// ExitDownloadFailed indicates a network error or bad HTTP status.
	ExitDownloadFailed = 6

	// ExitDecompressionFailed indicates the payload could not be decoded.
	ExitDecompressionFailed = 7

	// ExitChecksumMismatch indicates digest verification failed.
	ExitChecksumMismatch = 8

	// ExitStorageError indicates a filesystem operation failed.
	ExitStorageError = 9
)

func main() {
	v := viper.New()
	v.SetEnvPrefix(strings.ToUpper(appName))
	v.AutomaticEnv()
	v.SetDefault("log_level", "info")

	v.SetConfigName(appName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", appName))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error: invalid config file: %v\n", err)
			os.Exit(ExitInvalidArgs)
		}
	}

	logger := newLogger(v.GetString("log_level"))

	cfg := models.Config{
		AppName: appName,
		DataDir: v.GetString("models_dir"),
	}

	cmd := models.NewCommand(cfg, models.WithLogger(logger))
	if err := cmd.Execute(); err != nil {
		os.Exit(exitCodeFromError(err))
	}
}

// newLogger builds the zerolog-backed adapter handed to the models package.
func newLogger(level string) models.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()

	return &zerologAdapter{log: zl}
}

// exitCodeFromError maps error types to exit codes.
func exitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, models.ErrArtifactNotFound):
		return ExitNotFound
	case errors.Is(err, models.ErrNotInstalled):
		return ExitNotInstalled
	case errors.Is(err, models.ErrMissingDependency):
		return ExitMissingDependency
	case errors.Is(err, models.ErrDownloadFailed):
		return ExitDownloadFailed
	case errors.Is(err, models.ErrDecompressionFailed):
		return ExitDecompressionFailed
	case errors.Is(err, models.ErrChecksumMismatch):
		return ExitChecksumMismatch
	case errors.Is(err, models.ErrStorageError):
		return ExitStorageError
	case errors.Is(err, models.ErrInvalidRef), errors.Is(err, models.ErrCatalogError):
		return ExitInvalidArgs
	default:
		return ExitGeneralError
	}
}
