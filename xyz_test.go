package gridder

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXYZRoundTrip(t *testing.T) {
	a := assert.New(t)

	mesh := &Mesh{Xs: []float64{0.1, 0.2, 1e-300}, Ys: []float64{-5, 1.0 / 3}}
	grid := mesh.NewGrid()
	grid.Values = []float64{1, math.NaN(), 2.0 / 3, -1e22, math.Pi, -9999}

	var buf bytes.Buffer
	require.NoError(t, WriteXYZ(&buf, mesh, grid))
	a.True(strings.HasPrefix(buf.String(), "0.1 -5 1\n0.2 -5 NaN\n"))
	a.Equal(6, strings.Count(buf.String(), "\n"))

	m2, g2, err := ReadXYZ(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(mesh, m2); diff != "" {
		t.Errorf("mesh mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(grid, g2, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("grid mismatch (-want +got):\n%s", diff)
	}
}

func TestReadXYZErrors(t *testing.T) {
	a := assert.New(t)

	_, _, err := ReadXYZ(strings.NewReader(""))
	a.Error(err)

	_, _, err = ReadXYZ(strings.NewReader("0 0 1\n1 0\n"))
	a.Error(err)

	_, _, err = ReadXYZ(strings.NewReader("0 0 1\n1 0 2\n0 1 3\n"))
	a.Error(err)

	_, _, err = ReadXYZ(strings.NewReader("0 0 1\n1 0 2\n0 1 3\n2 1 4\n"))
	a.Error(err)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteXYZErrors(t *testing.T) {
	a := assert.New(t)

	mesh := &Mesh{Xs: []float64{0, 1}, Ys: []float64{0}}
	err := WriteXYZ(failingWriter{}, mesh, mesh.NewGrid())
	a.ErrorIs(err, ErrWrite)

	err = WriteXYZ(&bytes.Buffer{}, mesh, &Grid{Values: []float64{1}})
	a.ErrorIs(err, ErrWrite)

	err = WriteXYZFile(filepath.Join(t.TempDir(), "missing", "out.xyz"), mesh, mesh.NewGrid())
	a.ErrorIs(err, ErrWrite)
}

func TestOutputNamerCollision(t *testing.T) {
	a := assert.New(t)

	dir := t.TempDir()
	now := time.Date(2023, 12, 31, 23, 59, 58, 0, time.Local)
	namer := &OutputNamer{Dir: dir, Now: func() time.Time { return now }}

	var names []string
	for i := 0; i < 3; i++ {
		f, err := namer.Claim("/data/in/survey.csv")
		require.NoError(t, err)
		names = append(names, filepath.Base(f.Name()))
		require.NoError(t, f.Close())
	}
	a.Equal([]string{
		"survey-grid-output-20231231-235958.xyz",
		"survey-grid-output-20231231-235958-2.xyz",
		"survey-grid-output-20231231-235958-3.xyz",
	}, names)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	a.Len(entries, 3)
}

func TestOutputNamerInputDir(t *testing.T) {
	dir := t.TempDir()
	f, err := NewOutputNamer("").Claim(filepath.Join(dir, "a.csv"))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, dir, filepath.Dir(f.Name()))
}

func TestOutputNamerCheckDir(t *testing.T) {
	a := assert.New(t)

	dir := t.TempDir()
	a.NoError(NewOutputNamer(dir).CheckDir())
	a.NoError(NewOutputNamer("").CheckDir())
	a.ErrorIs(NewOutputNamer(filepath.Join(dir, "nope")).CheckDir(), ErrOutputDir)

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	a.ErrorIs(NewOutputNamer(file).CheckDir(), ErrOutputDir)

	_, err := NewOutputNamer(filepath.Join(dir, "nope")).Claim("x.csv")
	a.ErrorIs(err, ErrWrite)
}
