// Package main provides the entry point for the readaloud CLI application.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vishlabs/readaloud/tts"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	engineName string
	langName   string
	voiceName  string
	category   string

	rootCmd = &cobra.Command{
		Use:   "readaloud [TEXT]",
		Short: "Read text aloud with a local speech engine",
		Long: paragraph(
			fmt.Sprintf("\nRead text aloud, or %s it to a WAV file, with a local speech engine.", keyword("save")),
		),
		Example: paragraph("readaloud \"Hello, world!\"\nreadaloud --file notes.md\npbpaste | readaloud --lang german"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: runSpeak,
	}
)

func validateOptions(cmd *cobra.Command) error {
	// an explicit --config replaces whatever was found in the default places
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
		log.Debug("Using configuration file", "path", configFile)
	}

	// fail before touching the engine if the settings are unusable
	if _, err := tts.LoadConfigFromViper(); err != nil {
		return err //nolint:wrapcheck
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringVarP(&engineName, "engine", "e", "", "speech engine (piper or mock)")
	rootCmd.PersistentFlags().StringVarP(&langName, "lang", "L", "", "language tag or name, e.g. en-GB or german")
	rootCmd.PersistentFlags().StringVar(&voiceName, "voice", "", "voice name (see readaloud voices)")
	rootCmd.PersistentFlags().StringVarP(&category, "category", "c", "", "voice category: natural, male, female, child or robot")
	addInputFlags(rootCmd)

	// Config bindings
	_ = viper.BindPFlag("tts.engine", rootCmd.PersistentFlags().Lookup("engine"))
	_ = viper.BindPFlag("tts.language", rootCmd.PersistentFlags().Lookup("lang"))
	_ = viper.BindPFlag("tts.voice", rootCmd.PersistentFlags().Lookup("voice"))
	_ = viper.BindPFlag("tts.category", rootCmd.PersistentFlags().Lookup("category"))

	tts.SetDefaults()

	rootCmd.AddCommand(speakCmd, saveCmd, voicesCmd, languagesCmd, cacheCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "readaloud")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "readaloud")}, dirs...)
	}

	if c := os.Getenv("READALOUD_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("readaloud")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("readaloud")
	// READALOUD_TTS_ENGINE maps to tts.engine
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "readaloud.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
