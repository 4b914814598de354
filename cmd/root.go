package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/itinfra/seatsweep/internal/config"
	"github.com/itinfra/seatsweep/internal/utils"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "seatsweep",
	Short: "Finds idle license seats and nudges their owners.",
	Long: `seatsweep inspects usage data from JetBrains and GitHub Copilot, flags
licensed users with no recent activity, DMs them a warning on Slack, and
posts a removal-candidate rollup to your IT channel.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.seatsweep.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().Int("notify-after", 0, "Override inactivity days before a warning DM")
	rootCmd.PersistentFlags().Int("remove-after", 0, "Override inactivity days before the removal rollup")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Classify only; send nothing to Slack")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".seatsweep")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SEATSWEEP")
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.seatsweep.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Flag overrides on top of file/env values.
	if n, _ := rootCmd.PersistentFlags().GetInt("notify-after"); n > 0 {
		viper.Set("sweep.notifyafterdays", n)
	}
	if n, _ := rootCmd.PersistentFlags().GetInt("remove-after"); n > 0 {
		viper.Set("sweep.removeafterdays", n)
	}
	if dry, _ := rootCmd.PersistentFlags().GetBool("dry-run"); dry {
		viper.Set("sweep.notifications", false)
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
