package gridder

import (
	"context"
	"errors"
	"math"
	"os"
	"time"

	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultCellSize = 1.0
	DefaultMethod   = Linear
	// NoData is the blanking value written by batch manifests that do not
	// choose their own.
	NoData = float64(-9999)
)

// Config holds everything needed to grid one file. It is passed by value
// and never modified once a job starts.
type Config struct {
	Columns  Columns
	Method   Method
	CellSize float64
	// Blanking replaces undefined nodes in the output. NaN keeps them as NaN.
	Blanking float64
	// Closed includes the maximum of each axis in the mesh when it falls
	// on the cell lattice.
	Closed bool
	// MergeTolerance averages samples closer than this before gridding.
	MergeTolerance float64
	Params         Params
}

func DefaultConfig() Config {
	return Config{
		Method:   DefaultMethod,
		CellSize: DefaultCellSize,
		Blanking: math.NaN(),
		Params:   DefaultParams(),
	}
}

// Job is one file of a run together with its progress.
type Job struct {
	ID     int
	Input  string
	Output string
	Config Config
	Status Status
	Err    error
	Result *Result
}

// Result summarises a gridded file.
type Result struct {
	Output    string
	Samples   int
	Rows      int
	Cols      int
	Undefined int
	// OutsideHull counts nodes outside the samples' convex hull, where the
	// triangulated methods have no estimate.
	OutsideHull int
	Elapsed     time.Duration
}

type Options struct {
	// Namer picks the output file when the job has no Output path.
	Namer  *OutputNamer
	Logger logrus.FieldLogger
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger == nil {
		return logrus.StandardLogger()
	}
	return o.Logger
}

func stageError(file string, stage Stage, err error) error {
	return &StageError{File: file, Stage: stage, Err: err}
}

// Process loads, grids, interpolates, blanks and writes one file. Every
// failure is a *StageError naming the file and the stage it came from.
func Process(ctx context.Context, job *Job, opts Options) (*Result, error) {
	start := time.Now()
	cfg := job.Config
	log := opts.logger().WithFields(logrus.Fields{"file": job.Input, "method": cfg.Method})

	if err := CheckCellSize(cfg.CellSize); err != nil {
		return nil, stageError(job.Input, StageGrid, err)
	}
	if _, err := NewInterpolator(cfg.Method, cfg.Params); err != nil {
		return nil, stageError(job.Input, StageInterpolate, err)
	}

	pos, err := LoadSamplesFile(job.Input, cfg.Columns)
	if err != nil {
		return nil, stageError(job.Input, StageLoad, err)
	}
	if cfg.MergeTolerance > 0 {
		n := len(pos)
		if pos, err = MergeDuplicates(pos, cfg.MergeTolerance); err != nil {
			return nil, stageError(job.Input, StageLoad, err)
		}
		if n != len(pos) {
			log.WithField("merged", n-len(pos)).Debug("merged duplicate samples")
		}
	}
	logSamples(log, pos)
	if cfg.Method.Global() && len(pos) > LargeSampleWarning {
		log.WithField("samples", len(pos)).Warn("large sample count, interpolation will be slow")
	}

	mesh, err := BuildMesh(pos, cfg.CellSize, cfg.Closed)
	if err != nil {
		return nil, stageError(job.Input, StageGrid, err)
	}
	log.WithFields(logrus.Fields{"rows": mesh.Rows(), "cols": mesh.Cols()}).Debug("built mesh")

	grid, err := Interpolate(ctx, pos, mesh, cfg.Method, cfg.Params)
	if err != nil {
		return nil, stageError(job.Input, StageInterpolate, err)
	}

	res := &Result{
		Samples:     len(pos),
		Rows:        mesh.Rows(),
		Cols:        mesh.Cols(),
		Undefined:   grid.Undefined(),
		OutsideHull: outsideHull(pos, mesh),
	}
	if res.Undefined > 0 {
		log.WithFields(logrus.Fields{
			"undefined":    res.Undefined,
			"outside_hull": res.OutsideHull,
		}).Info("blanking undefined nodes")
	}
	out := Blank(grid, cfg.Blanking)

	if res.Output, err = writeOutput(job, mesh, out, opts); err != nil {
		return nil, stageError(job.Input, StageSerialize, err)
	}
	res.Elapsed = time.Since(start)
	log.WithFields(logrus.Fields{"output": res.Output, "elapsed": res.Elapsed}).Info("gridded")
	return res, nil
}

func logSamples(log logrus.FieldLogger, pos []vec3d.T) {
	zs := make([]float64, len(pos))
	for i := range pos {
		zs[i] = pos[i][2]
	}
	log.WithFields(logrus.Fields{
		"samples": len(pos),
		"z_min":   floats.Min(zs),
		"z_max":   floats.Max(zs),
	}).Debug("loaded samples")
}

func outsideHull(pos []vec3d.T, mesh *Mesh) int {
	hull := NewConvex(pos)
	n := 0
	for _, y := range mesh.Ys {
		for _, x := range mesh.Xs {
			if !hull.InHull(vec2d.T{x, y}) {
				n++
			}
		}
	}
	return n
}

func writeOutput(job *Job, mesh *Mesh, grid *Grid, opts Options) (string, error) {
	if job.Output != "" {
		return job.Output, WriteXYZFile(job.Output, mesh, grid)
	}
	namer := opts.Namer
	if namer == nil {
		namer = NewOutputNamer("")
	}
	f, err := namer.Claim(job.Input)
	if err != nil {
		return "", err
	}
	return f.Name(), writeAndClose(f, mesh, grid)
}

// Diagnose turns a pipeline error into a short message for people. Column
// and empty-data errors get a hint about what to check.
func Diagnose(err error) string {
	switch {
	case errors.Is(err, ErrColumnNotFound), errors.Is(err, ErrColumnIndexOutOfRange):
		return err.Error() + " (check the column names with the columns command)"
	case errors.Is(err, ErrEmptyDataset):
		return err.Error() + " (every row had a missing or non-numeric value in the selected columns)"
	case errors.Is(err, ErrDegenerateAxis):
		return err.Error() + " (samples must span an area)"
	case errors.Is(err, os.ErrNotExist):
		return err.Error() + " (input file not found)"
	}
	return err.Error()
}
