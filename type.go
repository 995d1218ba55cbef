package gridder

import (
	"fmt"
	"strings"
)

// Method selects an interpolation back-end.
type Method string

const (
	Nearest         Method = "nearest"
	Linear          Method = "linear"
	Cubic           Method = "cubic"
	NaturalNeighbor Method = "natural_neighbor"
	Delaunay        Method = "delaunay"
	IDW             Method = "idw"
	ThinPlate       Method = "thin_plate"
	Biharmonic      Method = "biharmonic"
	Kriging         Method = "kriging"
)

var Methods = []Method{Nearest, Linear, Cubic, NaturalNeighbor, Delaunay, IDW, ThinPlate, Biharmonic, Kriging}

func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Triangulated reports whether the method leaves nodes outside the convex hull undefined.
func (m Method) Triangulated() bool {
	switch m {
	case Linear, Cubic, NaturalNeighbor, Delaunay:
		return true
	}
	return false
}

// Global reports whether the method solves a system over all samples,
// which is cubic in the sample count.
func (m Method) Global() bool {
	switch m {
	case ThinPlate, Biharmonic, Kriging:
		return true
	}
	return false
}

type ModelType string

const (
	Gaussian    ModelType = "gaussian"
	Exponential ModelType = "exponential"
	Spherical   ModelType = "spherical"
)

func ParseModel(s string) (ModelType, error) {
	switch m := ModelType(strings.ToLower(strings.TrimSpace(s))); m {
	case Gaussian, Exponential, Spherical:
		return m, nil
	case "":
		return Spherical, nil
	}
	return "", fmt.Errorf("unknown variogram model %q", s)
}

// Status of a job record as it moves through a batch run.
type Status int

const (
	StatusLoaded Status = iota
	StatusProcessing
	StatusCompleted
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "Loaded"
	case StatusProcessing:
		return "Processing..."
	case StatusCompleted:
		return "Completed"
	case StatusError:
		return "Error"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}
