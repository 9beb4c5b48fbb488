package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	// Connection flags shared by every subcommand.
	target  string
	prefix  string
	scale   int
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pgblast",
	Short: "pgblast - pgbench-style workload driver for PostgreSQL",
	Long: `
pgblast drives a synthetic transactional workload against a PostgreSQL
server and reports throughput and latency.

Initialize the schema once with "pgblast init", then benchmark with
"pgblast run" using any combination of worker processes, concurrent jobs
per process, and transactions per job.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logrus.SetOutput(os.Stderr)
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}

		// Env and config-file values fill in flags the user did not set.
		if !cmd.Flags().Changed("target") {
			target = viper.GetString("target")
		}
		if !cmd.Flags().Changed("prefix") && viper.IsSet("prefix") {
			prefix = viper.GetString("prefix")
		}
		if !cmd.Flags().Changed("scale") && viper.IsSet("scale") {
			scale = viper.GetInt("scale")
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pgblast.yaml)")
	rootCmd.PersistentFlags().StringVarP(&target, "target", "T", "", "Connection string or postgres:// URL (env: PGBLAST_TARGET)")
	rootCmd.PersistentFlags().StringVar(&prefix, "prefix", "pgbench", "Table name prefix")
	rootCmd.PersistentFlags().IntVarP(&scale, "scale", "s", 100, "Scale factor: number of branches")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".pgblast")
		}
	}
	viper.SetEnvPrefix("PGBLAST")
	viper.AutomaticEnv()
	viper.ReadInConfig()
}
