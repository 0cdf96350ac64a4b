package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/casecheck/internal/logging"
	"github.com/ppiankov/casecheck/internal/model"
	"github.com/ppiankov/casecheck/internal/pipeline"
)

const version = "casecheck v0.1.0"

var (
	cfgFile     string
	verbose     bool
	corpusRoot  string
	llmProvider string
	llmModel    string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "casecheck",
	Short: "Casecheck - evidence-grounded checklists for court cases",
	Long: `Casecheck reads the documents of a legal case and extracts a structured
checklist (parties, court, claims, rulings, settlement terms, ...).

Every extracted value points back to the exact sentences it came from.
Checklists are cached per document set, so an unchanged case is never
extracted twice, and manual additions survive re-extraction.`,
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
	Long:  `Display the version number of casecheck.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.casecheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&corpusRoot, "corpus", "", "directory holding one folder per case")
	rootCmd.PersistentFlags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, openrouter, ollama, mock)")
	rootCmd.PersistentFlags().StringVar(&llmModel, "llm-model", "", "LLM model name")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("corpus.root", rootCmd.PersistentFlags().Lookup("corpus"))
	_ = viper.BindPFlag("llm.provider", rootCmd.PersistentFlags().Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.model", rootCmd.PersistentFlags().Lookup("llm-model"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := setDefaults(viper.GetViper()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading defaults: %v\n", err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.casecheck")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match CASECHECK_* (llm.api_key -> CASECHECK_LLM_API_KEY)
	viper.SetEnvPrefix("CASECHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range []string{"llm.api_key", "llm.base_url", "llm.http_proxy", "llm.https_proxy", "checklist.definitions_file"} {
		_ = viper.BindEnv(key)
	}

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every default so environment variables can override any key
func setDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	registerDefaults(v, "", tree)
	return nil
}

func registerDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if sub, ok := value.(map[string]any); ok {
			registerDefaults(v, full, sub)
			continue
		}
		v.SetDefault(full, value)
	}
}

// loadConfig resolves the configuration hierarchy into a model.Config
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	applyProviderEnv(cfg)
	return cfg, nil
}

// applyProviderEnv fills provider credentials from the conventional variables
func applyProviderEnv(cfg *model.Config) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "openrouter":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENROUTER_API_KEY")
		}
	case "ollama":
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
}

// openPipeline loads configuration and assembles a pipeline for a command
func openPipeline(noCache bool) (*pipeline.Pipeline, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Output.Verbose)
	if err != nil {
		return nil, nil, err
	}

	p, err := pipeline.New(cfg, pipeline.Options{Logger: logger, NoCache: noCache})
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return p, logger, nil
}
