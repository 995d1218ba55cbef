// Command gridder resamples scattered XYZ points from CSV files onto
// regular grids.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:           "gridder",
	Short:         "Grid scattered XYZ points onto regular meshes.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		if cfg := viper.GetString("config"); cfg != "" {
			viper.SetConfigFile(cfg)
			if err := viper.ReadInConfig(); err != nil {
				return err
			}
		}
		level, err := logrus.ParseLevel(viper.GetString("log_level"))
		if err != nil {
			return err
		}
		log.SetLevel(level)
		if viper.GetBool("json_log") {
			log.SetFormatter(&logrus.JSONFormatter{})
		}
		return nil
	},
}

func init() {
	viper.SetEnvPrefix("GRIDDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "configuration file (yaml, toml or json) holding flag values")
	pf.String("log_level", "info", "log level: debug, info, warn or error")
	pf.Bool("json_log", false, "log as JSON")
	if err := viper.BindPFlags(pf); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(gridCmd, batchCmd, plotCmd, columnsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
