// Package main implements cachectl, a thin operator CLI over the cache
// package. It is deliberately minimal: spec.md places "callers of the
// public API" out of scope, so this exists only to exercise the facade
// end to end, not to grow its own business logic.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/insano70/bcos-sub009/internal/appconfig"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands,
// following the same cobra.OnInitialize/initConfig shape as
// src/cmd/root.go.
var rootCmd = &cobra.Command{
	Use:   "cachectl",
	Short: "Operate an Indexed Analytics Cache instance",
	Long: `cachectl drives the warm, query, stats, and invalidate operations
of an Indexed Analytics Cache against a live Redis instance, for
operators who need to kick off a warm or inspect cache health without
going through the application that embeds the cache package.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main() and only needs to happen
// once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cachectl.yaml)")
	rootCmd.PersistentFlags().String("redis-addr", "127.0.0.1:6379", "redis address")
	rootCmd.PersistentFlags().Int("redis-db", 0, "redis logical database")
	_ = viper.BindPFlag("redis.addr", rootCmd.PersistentFlags().Lookup("redis-addr"))
	_ = viper.BindPFlag("redis.db", rootCmd.PersistentFlags().Lookup("redis-db"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".cachectl")
	}

	viper.SetEnvPrefix("CACHECTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

// loadCacheConfig loads the cache's own tunables from the same viper
// instance cachectl reads its connection settings from.
func loadCacheConfig() (appconfig.Config, error) {
	return appconfig.Load(viper.GetViper())
}
