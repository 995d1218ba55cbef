// Package render draws gridded surfaces as heat map images.
package render

import (
	"fmt"
	"image/color"
	"math"
	"os"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	gridder "github.com/flywave/go-gridder"
)

const (
	DefaultColors = 16
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

type Options struct {
	Title string
	// Samples, when set, are drawn as points over the surface.
	Samples []vec3d.T
	Colors  int
	Width   vg.Length
	Height  vg.Length
}

func (o Options) withDefaults() Options {
	if o.Colors < 2 {
		o.Colors = DefaultColors
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	return o
}

func newPalette(n int) palette.Palette {
	cm := moreland.SmoothBlueRed()
	cm.SetMin(0)
	cm.SetMax(1)
	return cm.Palette(n)
}

// Plot builds a heat map of grid. Undefined nodes are left transparent.
func Plot(grid *gridder.Grid, opts Options) (*plot.Plot, error) {
	opts = opts.withDefaults()
	if grid.Rows() == 0 || grid.Cols() == 0 {
		return nil, fmt.Errorf("render: empty grid")
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	pal := newPalette(opts.Colors)
	hm := plotter.NewHeatMap(grid, pal)
	min, max := grid.Range()
	if math.IsInf(min, 1) {
		min, max = 0, 1
	}
	if max <= min {
		max = min + 1
	}
	hm.Min, hm.Max = min, max
	hm.NaN = color.Transparent
	p.Add(hm)

	thumbs := plotter.PaletteThumbnailers(pal)
	step := (max - min) / float64(len(thumbs)-1)
	for i := len(thumbs) - 1; i >= 0; i-- {
		if i != 0 && i != len(thumbs)-1 {
			p.Legend.Add("", thumbs[i])
			continue
		}
		p.Legend.Add(fmt.Sprintf("%.4g", min+float64(i)*step), thumbs[i])
	}
	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if len(opts.Samples) > 0 {
		pts := make(plotter.XYs, len(opts.Samples))
		for i, s := range opts.Samples {
			pts[i] = plotter.XY{X: s[0], Y: s[1]}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = color.Black
		sc.GlyphStyle.Radius = vg.Points(1)
		p.Add(sc)
	}
	return p, nil
}

// Save writes the heat map of grid to path. The image format follows the
// file extension.
func Save(path string, grid *gridder.Grid, opts Options) error {
	opts = opts.withDefaults()
	p, err := Plot(grid, opts)
	if err != nil {
		return err
	}
	if err := p.Save(opts.Width, opts.Height, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

// SaveXYZ renders an XYZ grid file to an image.
func SaveXYZ(in, out string, opts Options) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()
	_, grid, err := gridder.ReadXYZ(f)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	return Save(out, grid, opts)
}
