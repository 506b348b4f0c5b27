// Package cli wires the editorial core into a cobra command tree. Commands
// only parse flags, assemble the pipeline and render results; all decision
// logic lives in the internal packages.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"masthead/internal/model"
)

var (
	cfgFile     string
	verbose     bool
	storePath   string
	sourcesFile string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "masthead",
	Short: "Masthead - autonomous editorial decisions over ranked evidence",
	Long: `Masthead runs an editorial decision pipeline for research-derived drafts:

It ranks candidate sources for a signal, synthesizes a claim-bearing draft,
validates every claim against cited evidence, scores trust and quality,
subjects the draft to an adversarial critical review, and passes it through
an editorial gate that enforces a weekly publication cadence per vertical.

Every decision records its numeric checks and ordered reasons. Nothing is
published silently and nothing is rejected without a recorded reason.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("masthead v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.masthead/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "SQLite store path (default: in-memory)")
	rootCmd.PersistentFlags().StringVar(&sourcesFile, "sources", "", "JSON file with the source corpus")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("store"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.masthead")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match MASTHEAD_*
	viper.SetEnvPrefix("MASTHEAD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the effective configuration: defaults overridden by
// the config file and MASTHEAD_* environment, then by explicit flags.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	if storePath != "" {
		cfg.Store.Path = storePath
	}

	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}

	return cfg, nil
}
