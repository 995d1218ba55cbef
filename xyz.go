package gridder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	outputTag       = "-grid-output-"
	outputExt       = ".xyz"
	timestampLayout = "20060102-150405"
	maxNameAttempts = 1000
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteXYZ writes one "x y z" line per node in row-major order. Values use
// the shortest representation that parses back to the same float64, so a
// written grid reads back bit for bit. Undefined nodes print as NaN.
func WriteXYZ(w io.Writer, mesh *Mesh, grid *Grid) error {
	if len(grid.Values) != mesh.Len() {
		return fmt.Errorf("%w: grid has %d values for %d nodes", ErrWrite, len(grid.Values), mesh.Len())
	}
	bw := bufio.NewWriter(w)
	var line []byte
	for r, y := range mesh.Ys {
		ys := formatFloat(y)
		for c, x := range mesh.Xs {
			line = line[:0]
			line = append(line, formatFloat(x)...)
			line = append(line, ' ')
			line = append(line, ys...)
			line = append(line, ' ')
			line = append(line, formatFloat(grid.Value(r, c))...)
			line = append(line, '\n')
			if _, err := bw.Write(line); err != nil {
				return fmt.Errorf("%w: %v", ErrWrite, err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// WriteXYZFile creates (or truncates) path and writes the grid to it.
func WriteXYZFile(path string, mesh *Mesh, grid *Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return writeAndClose(f, mesh, grid)
}

func writeAndClose(f *os.File, mesh *Mesh, grid *Grid) error {
	err := WriteXYZ(f, mesh, grid)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%w: %v", ErrWrite, cerr)
	}
	if err != nil {
		os.Remove(f.Name())
	}
	return err
}

// ReadXYZ parses a row-major XYZ grid as written by WriteXYZ and recovers
// its mesh.
func ReadXYZ(r io.Reader) (*Mesh, *Grid, error) {
	var pts [][3]float64
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, nil, fmt.Errorf("xyz line %d: want 3 fields, got %d", n, len(fields))
		}
		var p [3]float64
		for i, s := range fields {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("xyz line %d: %w", n, err)
			}
			p[i] = v
		}
		pts = append(pts, p)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	if len(pts) == 0 {
		return nil, nil, errors.New("xyz: no nodes")
	}

	cols := 1
	for cols < len(pts) && pts[cols][1] == pts[0][1] {
		cols++
	}
	if len(pts)%cols != 0 {
		return nil, nil, fmt.Errorf("xyz: %d nodes do not fill rows of %d", len(pts), cols)
	}
	mesh := &Mesh{Xs: make([]float64, cols), Ys: make([]float64, len(pts)/cols)}
	for c := range mesh.Xs {
		mesh.Xs[c] = pts[c][0]
	}
	grid := mesh.NewGrid()
	for i, p := range pts {
		r, c := i/cols, i%cols
		if c == 0 {
			mesh.Ys[r] = p[1]
		}
		if p[0] != mesh.Xs[c] || p[1] != mesh.Ys[r] {
			return nil, nil, fmt.Errorf("xyz: node %d at (%v, %v) is off the grid", i, p[0], p[1])
		}
		grid.Values[i] = p[2]
	}
	return mesh, grid, nil
}

// OutputName builds "{stem}-grid-output-{YYYYMMDD-HHMMSS}.xyz" for input.
func OutputName(input string, t time.Time) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + outputTag + t.Format(timestampLayout) + outputExt
}

// OutputNamer hands out output files in Dir. Names follow OutputName; when
// the name is already taken, for instance by two runs within the same
// second, "-2", "-3" and so on are appended before the extension. Files
// are created exclusively, so concurrent callers never share a name.
type OutputNamer struct {
	Dir string
	Now func() time.Time
}

func NewOutputNamer(dir string) *OutputNamer {
	return &OutputNamer{Dir: dir, Now: time.Now}
}

// CheckDir fails with ErrOutputDir unless Dir exists and is a directory.
func (n *OutputNamer) CheckDir() error {
	if n.Dir == "" {
		return nil
	}
	fi, err := os.Stat(n.Dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputDir, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrOutputDir, n.Dir)
	}
	return nil
}

// Claim creates an empty output file for input and returns it open for
// writing. Without a Dir the file goes next to the input.
func (n *OutputNamer) Claim(input string) (*os.File, error) {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	dir := n.Dir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	name := OutputName(input, now())
	stem := strings.TrimSuffix(name, outputExt)
	for i := 1; i <= maxNameAttempts; i++ {
		if i > 1 {
			name = stem + "-" + strconv.Itoa(i) + outputExt
		}
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}
	return nil, fmt.Errorf("%w: no free output name for %s", ErrWrite, stem)
}
