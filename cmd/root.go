// Copyright © 2018 The ELPS authors

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple" // default commonlog backend
)

var (
	cfgFile   string
	colorFlag string
)

var log = commonlog.GetLogger("emmylua.cmd")

// envKeyReplacer maps a config key such as log.file to the environment
// variable suffix LOG_FILE.
var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// Configuration keys read through viper.
const (
	keyVerbosity      = "log.verbosity"
	keyLogFile        = "log.file"
	keyJobs           = "workspace.jobs"
	keyRequestTimeout = "lsp.request-timeout"
	keyCheckJSON      = "check.json"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "emmylua",
	Short: "emmylua: static analysis for annotated Lua",
	Long: `emmylua analyzes Lua source annotated with EmmyLua doc comments
(---@class, ---@field, ---@param, ---@[attribute] ...). It infers types,
resolves overloads and reports problems such as assignments to readonly
declarations or calls whose arguments do not fit.

Getting started:
  emmylua check ./...            Check every .lua file below the directory
  emmylua check --json a.lua     Report diagnostics as JSON
  emmylua inspect -w .           Print inferred types interactively
  emmylua doc string.format      Show the documentation of a declaration
  emmylua lsp                    Start the language server on stdio

Configuration is read from $HOME/.emmylua.yaml or the file named by
--config. Every key can be set from the environment with the EMMYLUA_
prefix, for example EMMYLUA_LOG_VERBOSITY=2.

  log:
    verbosity: 1          # 0 quiet, 1 info, 2 debug
    file: /tmp/emmylua.log
  workspace:
    jobs: 8               # files analyzed in parallel
  lsp:
    request-timeout: 5s
  check:
    json: false`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.emmylua.yaml)")
	flags.StringVar(&colorFlag, "color", "auto",
		`Control colored output: "auto", "always", or "never".`)
	flags.CountP("verbose", "v", "Increase log verbosity (may be repeated).")
	flags.String("log-file", "", "Write logs to this file instead of stderr.")
	flags.Int("jobs", 0, "Number of files analyzed in parallel (default: number of CPUs).")

	_ = viper.BindPFlag(keyVerbosity, flags.Lookup("verbose"))
	_ = viper.BindPFlag(keyLogFile, flags.Lookup("log-file"))
	_ = viper.BindPFlag(keyJobs, flags.Lookup("jobs"))
	viper.SetDefault(keyRequestTimeout, "5s")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		if err == nil {
			// Search config in home directory with name ".emmylua" (without extension).
			viper.AddConfigPath(home)
			viper.SetConfigName(".emmylua")
		}
	}

	viper.SetEnvPrefix("EMMYLUA")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	err := viper.ReadInConfig()

	var path *string
	if f := viper.GetString(keyLogFile); f != "" {
		path = &f
	}
	commonlog.Configure(viper.GetInt(keyVerbosity), path)

	if err == nil {
		log.Infof("using config file: %s", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		log.Errorf("reading config %s: %v", cfgFile, err)
	}
}
