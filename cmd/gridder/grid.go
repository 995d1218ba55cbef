package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	gridder "github.com/flywave/go-gridder"
)

var gridCmd = &cobra.Command{
	Use:   "grid INPUT OUTPUT",
	Short: "Interpolate one CSV file onto a grid and write it as XYZ.",
	Long: `Interpolate one CSV file onto a grid and write it as XYZ.

OUTPUT is either a file name or an existing directory. For a directory the
file is named {input}-grid-output-{YYYYMMDD-HHMMSS}.xyz.`,
	Args: cobra.ExactArgs(2),
	RunE: runGrid,
}

func init() {
	addConfigFlags(gridCmd.Flags())
}

func addConfigFlags(fs *pflag.FlagSet) {
	def := gridder.DefaultConfig()
	fs.String("x_col", "", "X column name or zero-based index")
	fs.String("y_col", "", "Y column name or zero-based index")
	fs.String("z_col", "", "Z column name or zero-based index")
	fs.String("method", string(def.Method), "interpolation method: "+methodList())
	fs.Float64("cell_size", def.CellSize, "grid spacing along both axes")
	fs.String("blanking", "NaN", "value written for undefined nodes")
	fs.Float64("power", def.Params.Power, "IDW distance exponent")
	fs.String("variogram", string(def.Params.Variogram), "kriging variogram model: spherical, exponential or gaussian")
	fs.Float64("smoothing", def.Params.Smoothing, "biharmonic spline smoothing weight")
	fs.Bool("closed", false, "include each axis maximum when it falls on the grid")
	fs.Float64("merge_tolerance", 0, "average samples closer than this before gridding")
}

func methodList() string {
	names := make([]string, len(gridder.Methods))
	for i, m := range gridder.Methods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// configFromFlags reads a gridding configuration from bound flags,
// environment and config file, in viper's precedence.
func configFromFlags() (gridder.Config, error) {
	cfg := gridder.DefaultConfig()
	var err error

	cfg.Columns = gridder.Columns{
		X: viper.GetString("x_col"),
		Y: viper.GetString("y_col"),
		Z: viper.GetString("z_col"),
	}
	if cfg.Method, err = gridder.ParseMethod(viper.GetString("method")); err != nil {
		return cfg, err
	}
	cfg.CellSize = viper.GetFloat64("cell_size")
	if cfg.Blanking, err = strconv.ParseFloat(viper.GetString("blanking"), 64); err != nil || math.IsInf(cfg.Blanking, 0) {
		return cfg, fmt.Errorf("invalid blanking value %q", viper.GetString("blanking"))
	}
	cfg.Params.Power = viper.GetFloat64("power")
	if cfg.Params.Variogram, err = gridder.ParseModel(viper.GetString("variogram")); err != nil {
		return cfg, err
	}
	cfg.Params.Smoothing = viper.GetFloat64("smoothing")
	cfg.Closed = viper.GetBool("closed")
	cfg.MergeTolerance = viper.GetFloat64("merge_tolerance")
	return cfg, nil
}

func runGrid(cmd *cobra.Command, args []string) error {
	cfg, err := configFromFlags()
	if err != nil {
		return err
	}
	if cfg.Columns.X == "" || cfg.Columns.Y == "" || cfg.Columns.Z == "" {
		return fmt.Errorf("--x_col, --y_col and --z_col are required")
	}

	job := &gridder.Job{Input: args[0], Output: args[1], Config: cfg}
	opts := gridder.Options{Logger: log}
	if fi, err := os.Stat(args[1]); err == nil && fi.IsDir() {
		job.Output = ""
		opts.Namer = gridder.NewOutputNamer(args[1])
	}

	res, err := gridder.Process(cmd.Context(), job, opts)
	if err != nil {
		return fmt.Errorf("%s", gridder.Diagnose(err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d samples, %dx%d nodes, %d undefined -> %s\n",
		job.Input, res.Samples, res.Cols, res.Rows, res.Undefined, res.Output)
	return nil
}
