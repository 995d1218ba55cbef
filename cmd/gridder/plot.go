package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flywave/go-gridder/render"
)

var plotCmd = &cobra.Command{
	Use:   "plot XYZ IMAGE",
	Short: "Render an XYZ grid file as a heat map image (png, svg or pdf).",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := render.Options{
			Title:  viper.GetString("title"),
			Colors: viper.GetInt("colors"),
		}
		if err := render.SaveXYZ(args[0], args[1], opts); err != nil {
			return err
		}
		log.WithField("image", args[1]).Info("rendered")
		return nil
	},
}

func init() {
	plotCmd.Flags().String("title", "", "plot title")
	plotCmd.Flags().Int("colors", render.DefaultColors, "number of palette colours")
}
