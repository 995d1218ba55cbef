package gridder

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

// Columns holds the X, Y and Z selectors. A selector that parses as an
// integer is a zero-based position, anything else is a header name.
type Columns struct {
	X string
	Y string
	Z string
}

type columnRef struct {
	name  string
	index int
}

func parseColumnRef(sel string) columnRef {
	sel = strings.TrimSpace(sel)
	if i, err := strconv.Atoi(sel); err == nil {
		return columnRef{index: i}
	}
	return columnRef{name: sel, index: -1}
}

func (c columnRef) resolve(header []string) (int, error) {
	if c.name == "" {
		if c.index < 0 || c.index >= len(header) {
			return 0, fmt.Errorf("%w: index %d, %d columns available", ErrColumnIndexOutOfRange, c.index, len(header))
		}
		return c.index, nil
	}
	for i, h := range header {
		if h == c.name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrColumnNotFound, c.name)
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return cr
}

func normalizeHeader(rec []string) []string {
	header := make([]string, len(rec))
	for i, h := range rec {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}
	return header
}

// ReadHeader returns the header row of a CSV stream.
func ReadHeader(r io.Reader) ([]string, error) {
	rec, err := newCSVReader(r).Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDataset
		}
		return nil, err
	}
	return normalizeHeader(rec), nil
}

// Preview returns the header and up to n data rows.
func Preview(r io.Reader, n int) ([]string, [][]string, error) {
	cr := newCSVReader(r)
	cr.ReuseRecord = false
	rec, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, ErrEmptyDataset
		}
		return nil, nil, err
	}
	header := normalizeHeader(rec)
	rows := make([][]string, 0, n)
	for len(rows) < n {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return header, rows, err
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

// GuessColumns picks default X and Y selectors the way the batch tool
// pre-filled its parameter window.
func GuessColumns(header []string) Columns {
	var c Columns
	for _, h := range header {
		l := strings.ToLower(h)
		if c.X == "" && strings.Contains(l, "easting") {
			c.X = h
		}
		if c.Y == "" && strings.Contains(l, "northing") {
			c.Y = h
		}
	}
	return c
}

func parseField(rec []string, i int) (float64, bool) {
	if i >= len(rec) {
		return 0, false
	}
	s := strings.TrimSpace(rec[i])
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(v) {
		return 0, false
	}
	return v, true
}

// LoadSamples reads X, Y and Z from a CSV stream with a header row. Rows
// with a missing or unparseable value in any selected column are dropped.
func LoadSamples(r io.Reader, cols Columns) ([]vec3d.T, error) {
	cr := newCSVReader(r)
	rec, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDataset
		}
		return nil, err
	}
	header := normalizeHeader(rec)

	var idx [3]int
	for k, sel := range []string{cols.X, cols.Y, cols.Z} {
		if idx[k], err = parseColumnRef(sel).resolve(header); err != nil {
			return nil, err
		}
	}

	pos := make([]vec3d.T, 0, 1024)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		x, okx := parseField(rec, idx[0])
		y, oky := parseField(rec, idx[1])
		z, okz := parseField(rec, idx[2])
		if okx && oky && okz {
			pos = append(pos, vec3d.T{x, y, z})
		}
	}
	if len(pos) == 0 {
		return nil, ErrEmptyDataset
	}
	return pos, nil
}

func LoadSamplesFile(path string, cols Columns) ([]vec3d.T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadSamples(f, cols)
}

// FilterSamples drops non-finite samples.
func FilterSamples(pos []vec3d.T) ([]vec3d.T, error) {
	ret := make([]vec3d.T, 0, len(pos))
	for _, p := range pos {
		if isFinite(p[0]) && isFinite(p[1]) && isFinite(p[2]) {
			ret = append(ret, p)
		}
	}
	if len(ret) == 0 {
		return nil, ErrEmptyDataset
	}
	return ret, nil
}
