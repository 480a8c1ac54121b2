package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configBaseName   = "treescan"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	envPrefix = "TREESCAN"

	sourceFolderFlagName = "source-folder"
	modeFlagName         = "mode"
	noColorFlagName      = "no-color"
	languagesFlagName    = "languages"
	rulesDirFlagName     = "rules-dir"
	summaryFlagName      = "summary"
	logFileFlagName      = "log-file"
	verboseFlagName      = "verbose"
	configFlagName       = "config"

	sourceFolderKey = "source_folder"
	modeKey         = "mode"
	noColorKey      = "no_color"
	languagesKey    = "languages"
	rulesDirKey     = "rules_dir"
	summaryKey      = "summary"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultSourceFolder = "."
	defaultMode         = "syntax"

	defaultLogFilename   = ""
	defaultLogLevel      = "warn"
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(sourceFolderKey, defaultSourceFolder)
	viper.SetDefault(modeKey, defaultMode)
	viper.SetDefault(noColorKey, false)
	viper.SetDefault(languagesKey, []string{})
	viper.SetDefault(rulesDirKey, "")
	viper.SetDefault(summaryKey, false)

	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, false)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	_ = readConfig()
}

// readConfig loads the active config file. A missing file is not an error.
func readConfig() error {
	err := viper.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	// With SetConfigFile a missing file surfaces as a plain fs error.
	if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Numeric slog levels are accepted too (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger installs a slog text logger and returns it. Records go to
// a rotating file when logPath is set and to fallback otherwise. Verbose
// forces debug level.
func configureLogger(logPath string, verbose bool, fallback io.Writer) *slog.Logger {
	logLevel := parseSlogLevel(viper.GetString(logLevelKey), slog.LevelWarn)
	if verbose || viper.GetBool(logVerboseKey) {
		logLevel = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	logWriter := fallback
	if strings.TrimSpace(logPath) != "" {
		opts.AddSource = true
		logWriter = &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    viper.GetInt(logMaxSizeKey),
			MaxBackups: viper.GetInt(logMaxBackupsKey),
			MaxAge:     viper.GetInt(logMaxAgeKey),
			Compress:   viper.GetBool(logCompressKey),
		}
	}

	logger := slog.New(slog.NewTextHandler(logWriter, opts))
	slog.SetDefault(logger)
	return logger
}
