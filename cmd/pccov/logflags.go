package main

import (
	"github.com/spf13/cobra"

	"github.com/tturner/pccov/internal/logging"
)

func registerLogFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("log-level", "info", "Log level: silent, error, warn, info, verbose, debug")
	cmd.PersistentFlags().String("log-file", "", "Also write log records to this file")
	cmd.PersistentFlags().String("log-format", "text", "Log file format: text or json")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Only report errors and hide progress")
}

// commandLogger builds the logger from the persistent logging flags. A
// command run without the root keeps the defaults. --quiet lowers the
// level to errors only.
func commandLogger(cmd *cobra.Command) (*logging.Logger, error) {
	flags := cmd.Flags()
	levelName, logFile, format := "info", "", "text"
	quiet := false
	if f := flags.Lookup("log-level"); f != nil {
		levelName = f.Value.String()
	}
	if f := flags.Lookup("log-file"); f != nil {
		logFile = f.Value.String()
	}
	if f := flags.Lookup("log-format"); f != nil {
		format = f.Value.String()
	}
	if f := flags.Lookup("quiet"); f != nil {
		quiet = f.Value.String() == "true"
	}

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLoggerWithOptions(level, logFile, format)
	if err != nil {
		return nil, err
	}
	if quiet {
		logger.SetLevel(logging.LogLevelError)
	}
	return logger, nil
}
