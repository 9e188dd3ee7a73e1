// Package logger provides a global logger for the application
package logger

import (
	"flag"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger backs Sugar. It discards everything until Init or Configure runs so
// library code can log before the entrypoint sets things up.
var Logger = zap.NewNop()

func setupZerolog() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Caller().Logger()
}

func initLogger(environment string) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	setupZerolog()

	debug := flag.Bool("debug", false, "sets log level to debug")
	trace := flag.Bool("trace", false, "sets log level to trace")
	info := flag.Bool("info", false, "sets log level to info (default)")
	flag.Parse()

	logLevel := EnvironmentLevel(environment)
	log.Info().Str("environment", environment).Str("level", logLevel.String()).Msg("Environment log level selected")

	if *debug {
		logLevel = zerolog.DebugLevel
		log.Info().Msg("Debug flag detected - overriding environment log level")
	} else if *trace {
		logLevel = zerolog.TraceLevel
		log.Info().Msg("Trace flag detected - overriding environment log level")
	} else if *info {
		logLevel = zerolog.InfoLevel
		log.Info().Msg("Info flag detected - overriding environment log level")
	}

	applyLevel(logLevel)
	log.Info().Str("environment", environment).Str("level", logLevel.String()).Msg("Logging initialized")
}

// EnvironmentLevel is the default level for a deployment environment: debug
// for dev and test, info for prod and anything unrecognised.
func EnvironmentLevel(environment string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(environment)) {
	case "dev", "test":
		return zerolog.DebugLevel
	case "prod", "":
		return zerolog.InfoLevel
	default:
		log.Warn().Str("environment", environment).Msg("Unknown environment - defaulting to production log level (info and above)")
		return zerolog.InfoLevel
	}
}

func applyLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	zl, err := cfg.Build()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to build zap logger, sugared logging disabled")
		return
	}
	Logger = zl
}

func zapLevel(level zerolog.Level) zapcore.Level {
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return zapcore.DebugLevel
	case zerolog.WarnLevel:
		return zapcore.WarnLevel
	case zerolog.ErrorLevel:
		return zapcore.ErrorLevel
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init initializes the logger with the configuration from the environment
// and command line flags.
// It sets up the global logger to use zerolog with console output.
// Example usage:
//
//	logger.Init(cfg.Environment) <- inside whichever main() function in your entrypoint
//
// Then, `go run ./cmd/qnorm-server --debug`
func Init(environment string) {
	initLogger(environment)
}

// Configure sets up logging for entrypoints that parse their own flags, such
// as the cobra commands. level is any zerolog level name; empty falls back to
// EnvironmentLevel(environment).
func Configure(level, environment string) error {
	setupZerolog()

	logLevel := EnvironmentLevel(environment)
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return err
		}
		logLevel = parsed
	}

	applyLevel(logLevel)
	return nil
}

// Sugar returns a sugared logger for easier use
// TODO: replace with zerolog
func Sugar() *zap.SugaredLogger {
	return Logger.Sugar()
}
