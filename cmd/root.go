package cmd

import (
	"errors"
	"log"
	"strings"

	"github.com/spigell/erranza/internal/catalog"
	"github.com/spigell/erranza/internal/matching"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "erranza"
	envPrefix = "ERRANZA"
)

type Config struct {
	Storage     *StorageConfig   `mapstructure:"storage"`
	Backend     *BackendConfig   `mapstructure:"backend"`
	Catalog     catalog.Config   `mapstructure:"catalog"`
	Matching    *MatchingConfig  `mapstructure:"matching"`
	Narrative   *NarrativeConfig `mapstructure:"narrative"`
	Server      *ServerConfig    `mapstructure:"server"`
	Concurrency int              `mapstructure:"concurrency"`
}

type StorageConfig struct {
	// Driver is either "sqlite" or "backend".
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type BackendConfig struct {
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	UserAgent  string `mapstructure:"user-agent"`
}

type MatchingConfig struct {
	Top        int               `mapstructure:"top"`
	Persist    bool              `mapstructure:"persist"`
	Weights    *matching.Weights `mapstructure:"weights"`
	TraitTable string            `mapstructure:"trait-table"`
}

type NarrativeConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Provider     string `mapstructure:"provider"`
	Model        string `mapstructure:"model"`
	BaseURL      string `mapstructure:"base-url"`
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "erranza matches travellers' questionnaires with destinations and explains the fit",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is erranza.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetDefault("storage.driver", "sqlite")
	viper.SetDefault("storage.path", app+".db")
	viper.SetDefault("matching.top", 5)
	viper.SetDefault("matching.persist", true)
	viper.SetDefault("narrative.provider", "gemini")
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("concurrency", 4)
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// version needs no config at all.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	err := viper.ReadInConfig()
	if err == nil {
		return
	}

	// The default file is optional; an explicit one is not.
	var notFound viper.ConfigFileNotFoundError
	if cfgFile == "" && errors.As(err, &notFound) {
		return
	}

	// We can't proceed if the config file parsed with error.
	log.Fatal(err)
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Storage == nil {
		config.Storage = &StorageConfig{}
	}
	if config.Backend == nil {
		config.Backend = &BackendConfig{}
	}
	if config.Matching == nil {
		config.Matching = &MatchingConfig{}
	}
	if config.Narrative == nil {
		config.Narrative = &NarrativeConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}

	return config, nil
}
