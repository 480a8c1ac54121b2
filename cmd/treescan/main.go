package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jward/treescan"
	"github.com/jward/treescan/internal/runtime"
)

var (
	flagSourceFolder string
	flagMode         string
	flagNoColor      bool
	flagLanguages    []string
	flagRulesDir     string
	flagSummary      bool
	flagLogFile      string
	flagVerbose      bool
	flagConfig       string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "treescan",
		Short: "Print tree-sitter syntax trees for a source directory",
		Long: `Treescan walks a directory, parses every TypeScript (.ts), TSX (.tsx),
Rust (.rs) and C# (.cs) file with tree-sitter, and prints each file's named
syntax nodes as an indented tree. Identifier nodes show their source text.

With --mode graph it prints the scope graph built by the per-language
name-binding rules instead: scopes, definitions, references and the edges
that resolve references to definitions.`,
		Args:              cobra.NoArgs,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfigFile,
		RunE:              runScan,
	}
	configureRootFlags(cmd)
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.StringVarP(&flagSourceFolder, sourceFolderFlagName, "s", viper.GetString(sourceFolderKey), "directory to scan")
	bindFlagToConfig(flags.Lookup(sourceFolderFlagName), sourceFolderKey)

	flags.StringVar(&flagMode, modeFlagName, viper.GetString(modeKey), "output mode: syntax|graph")
	bindFlagToConfig(flags.Lookup(modeFlagName), modeKey)

	flags.StringSliceVar(&flagLanguages, languagesFlagName, viper.GetStringSlice(languagesKey), "only scan these languages (e.g. rust,ts)")
	bindFlagToConfig(flags.Lookup(languagesFlagName), languagesKey)

	flags.StringVar(&flagRulesDir, rulesDirFlagName, viper.GetString(rulesDirKey), "load graph rule scripts from disk instead of the embedded set")
	bindFlagToConfig(flags.Lookup(rulesDirFlagName), rulesDirKey)

	flags.BoolVar(&flagSummary, summaryFlagName, viper.GetBool(summaryKey), "print a per-language summary table to stderr")
	bindFlagToConfig(flags.Lookup(summaryFlagName), summaryKey)

	cmd.PersistentFlags().BoolVar(&flagNoColor, noColorFlagName, viper.GetBool(noColorKey), "disable coloured output")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(noColorFlagName), noColorKey)

	cmd.PersistentFlags().StringVar(&flagLogFile, logFileFlagName, viper.GetString(logFilenameKey), "log file path (default stderr)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logFileFlagName), logFilenameKey)

	cmd.PersistentFlags().BoolVarP(&flagVerbose, verboseFlagName, "v", false, "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)

	cmd.PersistentFlags().StringVar(&flagConfig, configFlagName, "", "config file (default ./"+configFileName+")")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// loadConfigFile reads the file named by --config, if any.
func loadConfigFile(cmd *cobra.Command, _ []string) error {
	if flagConfig == "" {
		return nil
	}
	viper.SetConfigFile(flagConfig)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", flagConfig, err)
	}
	return nil
}

func runScan(cmd *cobra.Command, _ []string) error {
	logger := configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey), cmd.ErrOrStderr())

	noColor := viper.GetBool(noColorKey)
	if noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	mode, err := treescan.ParseMode(viper.GetString(modeKey))
	if err != nil {
		return err
	}
	langs, err := parseLanguages(viper.GetStringSlice(languagesKey))
	if err != nil {
		return err
	}

	root := viper.GetString(sourceFolderKey)
	canonical, err := canonicalRoot(root)
	if err != nil {
		return err
	}

	opts := []treescan.Option{
		treescan.WithOutput(cmd.OutOrStdout()),
		treescan.WithLogger(logger),
		treescan.WithMode(mode),
		treescan.WithLanguages(langs...),
	}
	if noColor {
		opts = append(opts, treescan.WithColor(false))
	}
	if dir := viper.GetString(rulesDirKey); dir != "" {
		opts = append(opts, treescan.WithRulesDir(dir))
	}

	s, err := treescan.New(opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "Scanning for source code in path: %s\n", canonical)

	sum, err := s.ScanDirectory(cmd.Context(), root)
	if err != nil {
		return err
	}

	printCompleted(errOut, sum)
	if viper.GetBool(summaryKey) {
		return sum.Print(errOut, s.Registry().Languages())
	}
	return nil
}

// canonicalRoot resolves root to an absolute, symlink-free path.
func canonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", root, err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", treescan.ErrRootNotFound, abs)
		}
		return "", fmt.Errorf("resolving path %q: %w", root, err)
	}
	return canonical, nil
}

// parseLanguages accepts language tags or extensions, comma separated or
// repeated.
func parseLanguages(values []string) ([]runtime.Language, error) {
	var langs []runtime.Language
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			lang, ok := runtime.ParseLanguage(part)
			if !ok {
				return nil, fmt.Errorf("unknown language %q", part)
			}
			langs = append(langs, lang)
		}
	}
	return langs, nil
}
