package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// AddRootPersistentFlags registers the flags that apply to every invocation
// and binds them (plus any command-local flags already registered) to viper.
// Every option is also reachable through a COGET_* environment variable.
func AddRootPersistentFlags(cmd *cobra.Command) error {
	cmd.PersistentFlags().IntP(OptConcurrency, "c", 8, "Number of parts fetched in parallel")
	cmd.PersistentFlags().IntP(OptRetries, "r", 5, "Number of attempts per part before giving up on it")
	cmd.PersistentFlags().DurationP(OptTimeout, "t", 10*time.Minute, "Per-attempt timeout, format is <number><unit>, e.g. 30m (0 disables)")
	cmd.PersistentFlags().Duration(OptConnTimeout, 5*time.Second, "Timeout for establishing a connection, format is <number><unit>, e.g. 10s")
	cmd.PersistentFlags().BoolP(OptForce, "f", false, "Overwrite the output file if it already exists")
	cmd.PersistentFlags().BoolP(OptVerbose, "v", false, "Verbose mode (equivalent to --log-level debug)")
	cmd.PersistentFlags().String(OptLoggingLevel, "info", "Log level (debug, info, warn, error)")

	viper.SetEnvPrefix("COGET")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		return fmt.Errorf("failed to bind persistent flags: %w", err)
	}
	return nil
}

// PersistentStartupProcessFlags resolves flag interactions that must happen
// before any command runs.
func PersistentStartupProcessFlags() error {
	if viper.GetBool(OptVerbose) {
		viper.Set(OptLoggingLevel, "debug")
	}
	setLogLevel(viper.GetString(OptLoggingLevel))
	return nil
}

func setLogLevel(logLevel string) {
	switch logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
