package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dd0wney/cluso-centrality/pkg/config"
)

// v holds configuration from the config file, CENTRALITY_* env vars and flags.
var v = config.New()

var rootCmd = &cobra.Command{
	Use:               "centrality",
	Short:             "Approximate betweenness centrality for large graphs",
	Long:              "centrality estimates betweenness centrality with randomized approximate Brandes over a sample of BFS sources.",
	PersistentPreRunE: readConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default ./centrality.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	bindFlag(rootCmd.PersistentFlags(), "log-level", "log.level")
}

// bindFlag makes a flag override the config key when it is set.
func bindFlag(flags *pflag.FlagSet, name, key string) {
	if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", name, err))
	}
}

// readConfig reads an explicit config file, or centrality.yaml from the
// working or home directory when present.
func readConfig(cmd *cobra.Command, _ []string) error {
	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}

	v.SetConfigName("centrality")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}

	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}
