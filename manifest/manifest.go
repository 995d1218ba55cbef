// Package manifest reads batch manifests: one job per input file, each with
// its own gridding parameters. Manifests are gcfg (.ini, .gcfg) or TOML
// (.toml) files.
//
// A gcfg manifest looks like
//
//	[defaults]
//	method = linear
//	cell-size = 10
//
//	[job "north"]
//	input = north.csv
//	x-col = Easting
//	y-col = Northing
//	z-col = Depth
//	method = kriging
package manifest

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/gcfg.v1"
	"gopkg.in/gcfg.v1/types"

	gridder "github.com/flywave/go-gridder"
)

// Float is a manifest number that remembers whether it was given, so an
// explicit zero is kept instead of falling back to the defaults.
type Float struct {
	Value float64
	Set   bool
}

func (f *Float) UnmarshalText(text []byte) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(text)), 64)
	if err != nil {
		return err
	}
	*f = Float{Value: v, Set: true}
	return nil
}

func (f *Float) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case float64:
		*f = Float{Value: v, Set: true}
	case int64:
		*f = Float{Value: float64(v), Set: true}
	case string:
		return f.UnmarshalText([]byte(v))
	default:
		return fmt.Errorf("want a number, got %T", data)
	}
	return nil
}

func (f Float) or(d Float) Float {
	if f.Set {
		return f
	}
	return d
}

// Bool is a manifest flag that remembers whether it was given.
type Bool struct {
	Value bool
	Set   bool
}

func (b *Bool) UnmarshalText(text []byte) error {
	v, err := types.ParseBool(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*b = Bool{Value: v, Set: true}
	return nil
}

func (b *Bool) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case bool:
		*b = Bool{Value: v, Set: true}
	case string:
		return b.UnmarshalText([]byte(v))
	default:
		return fmt.Errorf("want a boolean, got %T", data)
	}
	return nil
}

func (b Bool) or(d Bool) Bool {
	if b.Set {
		return b
	}
	return d
}

type JobSpec struct {
	Input          string `gcfg:"input" toml:"input"`
	Output         string `gcfg:"output" toml:"output"`
	XCol           string `gcfg:"x-col" toml:"x_col"`
	YCol           string `gcfg:"y-col" toml:"y_col"`
	ZCol           string `gcfg:"z-col" toml:"z_col"`
	Method         string `gcfg:"method" toml:"method"`
	CellSize       Float  `gcfg:"cell-size" toml:"cell_size"`
	Blanking       string `gcfg:"blanking" toml:"blanking"`
	Power          Float  `gcfg:"power" toml:"power"`
	Variogram      string `gcfg:"variogram" toml:"variogram"`
	Smoothing      Float  `gcfg:"smoothing" toml:"smoothing"`
	Closed         Bool   `gcfg:"closed" toml:"closed"`
	MergeTolerance Float  `gcfg:"merge-tolerance" toml:"merge_tolerance"`
}

type RunSpec struct {
	OutDir  string `gcfg:"out-dir" toml:"out_dir"`
	Workers int    `gcfg:"workers" toml:"workers"`
	Journal string `gcfg:"journal" toml:"journal"`
}

type Manifest struct {
	Run      RunSpec             `gcfg:"run" toml:"run"`
	Defaults JobSpec             `gcfg:"defaults" toml:"defaults"`
	Job      map[string]*JobSpec `gcfg:"job" toml:"job"`

	dir string
}

// Load reads a manifest, choosing the syntax from the file extension.
func Load(path string) (*Manifest, error) {
	m := &Manifest{dir: filepath.Dir(path)}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, m); err != nil {
			return nil, err
		}
	default:
		if err := gcfg.ReadFileInto(m, path); err != nil {
			return nil, err
		}
	}
	if len(m.Job) == 0 {
		return nil, fmt.Errorf("manifest %s lists no jobs", path)
	}
	return m, nil
}

// merge fills the unset fields of s from d.
func (s JobSpec) merge(d JobSpec) JobSpec {
	str := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	str(&s.XCol, d.XCol)
	str(&s.YCol, d.YCol)
	str(&s.ZCol, d.ZCol)
	str(&s.Method, d.Method)
	str(&s.Blanking, d.Blanking)
	str(&s.Variogram, d.Variogram)
	s.CellSize = s.CellSize.or(d.CellSize)
	s.Power = s.Power.or(d.Power)
	s.Smoothing = s.Smoothing.or(d.Smoothing)
	s.MergeTolerance = s.MergeTolerance.or(d.MergeTolerance)
	s.Closed = s.Closed.or(d.Closed)
	return s
}

func parseBlanking(s string) (float64, error) {
	if s == "" {
		return gridder.NoData, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid blanking value %q", s)
	}
	return v, nil
}

func (m *Manifest) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.dir, p)
}

// Config builds the gridding configuration of one job spec, with the
// manifest defaults applied. A cell size given as zero is kept, so the job
// fails with gridder.ErrInvalidCellSize when it runs.
func (m *Manifest) Config(name string, s JobSpec) (gridder.Config, error) {
	s = s.merge(m.Defaults)
	cfg := gridder.DefaultConfig()
	var err error

	if s.Method != "" {
		if cfg.Method, err = gridder.ParseMethod(s.Method); err != nil {
			return cfg, fmt.Errorf("job %q: %w", name, err)
		}
	}
	if s.CellSize.Set {
		cfg.CellSize = s.CellSize.Value
	}
	if cfg.Blanking, err = parseBlanking(s.Blanking); err != nil {
		return cfg, fmt.Errorf("job %q: %w", name, err)
	}
	if s.Variogram != "" {
		if cfg.Params.Variogram, err = gridder.ParseModel(s.Variogram); err != nil {
			return cfg, fmt.Errorf("job %q: %w", name, err)
		}
	}
	if s.Power.Set {
		if !(s.Power.Value > 0) {
			return cfg, fmt.Errorf("job %q: power must be positive, got %v", name, s.Power.Value)
		}
		cfg.Params.Power = s.Power.Value
	}
	if s.Smoothing.Set {
		if !(s.Smoothing.Value > 0) {
			return cfg, fmt.Errorf("job %q: smoothing must be positive, got %v", name, s.Smoothing.Value)
		}
		cfg.Params.Smoothing = s.Smoothing.Value
	}
	cfg.Closed = s.Closed.Value
	cfg.MergeTolerance = s.MergeTolerance.Value
	cfg.Columns = gridder.Columns{X: s.XCol, Y: s.YCol, Z: s.ZCol}

	if cfg.Columns.X == "" || cfg.Columns.Y == "" {
		guessed, err := guessColumns(m.path(s.Input))
		if err == nil {
			if cfg.Columns.X == "" {
				cfg.Columns.X = guessed.X
			}
			if cfg.Columns.Y == "" {
				cfg.Columns.Y = guessed.Y
			}
		}
	}
	switch {
	case cfg.Columns.X == "":
		return cfg, fmt.Errorf("job %q: no x column", name)
	case cfg.Columns.Y == "":
		return cfg, fmt.Errorf("job %q: no y column", name)
	case cfg.Columns.Z == "":
		return cfg, fmt.Errorf("job %q: no z column", name)
	}
	return cfg, nil
}

func guessColumns(path string) (gridder.Columns, error) {
	f, err := os.Open(path)
	if err != nil {
		return gridder.Columns{}, err
	}
	defer f.Close()
	header, err := gridder.ReadHeader(f)
	if err != nil {
		return gridder.Columns{}, err
	}
	return gridder.GuessColumns(header), nil
}

// Jobs returns one job per manifest entry, ordered by job name.
func (m *Manifest) Jobs() ([]*gridder.Job, error) {
	names := make([]string, 0, len(m.Job))
	for name := range m.Job {
		names = append(names, name)
	}
	sort.Strings(names)

	jobs := make([]*gridder.Job, 0, len(names))
	for _, name := range names {
		s := m.Job[name]
		if s.Input == "" {
			return nil, fmt.Errorf("job %q: no input", name)
		}
		cfg, err := m.Config(name, *s)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, &gridder.Job{
			Input:  m.path(s.Input),
			Output: m.path(s.Output),
			Config: cfg,
		})
	}
	return jobs, nil
}

// OutDir is the run's output directory, relative to the manifest.
func (m *Manifest) OutDir() string {
	return m.path(m.Run.OutDir)
}

// JournalPath is the run's journal database, relative to the manifest.
func (m *Manifest) JournalPath() string {
	return m.path(m.Run.Journal)
}
