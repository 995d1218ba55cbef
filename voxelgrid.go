package gridder

import (
	"errors"
	"math"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

// voxelGrid bins samples into leafSize × leafSize XY cells and averages
// every cell holding more than one sample. Output keeps first-seen order.
type voxelGrid struct {
	LeafSize float64
}

type voxel struct {
	sum   vec3d.T
	num   int
	index int
}

func newVoxelGrid(leafSize float64) *voxelGrid {
	return &voxelGrid{LeafSize: leafSize}
}

func minMaxVec3(ra []vec3d.T) (vec3d.T, vec3d.T, error) {
	if len(ra) == 0 {
		return vec3d.T{}, vec3d.T{}, errors.New("no point")
	}
	min, max := ra[0], ra[0]
	for i := 1; i < len(ra); i++ {
		v := ra[i]
		for k := range v {
			if v[k] < min[k] {
				min[k] = v[k]
			}
			if v[k] > max[k] {
				max[k] = v[k]
			}
		}
	}
	return min, max, nil
}

func mulFloat(vec *vec3d.T, v float64) *vec3d.T {
	vec[0] *= v
	vec[1] *= v
	vec[2] *= v
	return vec
}

type voxelKey struct {
	x, y int64
}

func (f *voxelGrid) Filter(pc []vec3d.T) ([]vec3d.T, error) {
	min, _, err := minMaxVec3(pc)
	if err != nil {
		return nil, err
	}

	voxels := make(map[voxelKey]*voxel, len(pc))
	order := make([]voxelKey, 0, len(pc))
	for i := range pc {
		key := voxelKey{
			x: int64(math.Floor((pc[i][0] - min[0]) / f.LeafSize)),
			y: int64(math.Floor((pc[i][1] - min[1]) / f.LeafSize)),
		}
		v, ok := voxels[key]
		if !ok {
			v = &voxel{index: i}
			voxels[key] = v
			order = append(order, key)
		}
		v.num++
		v.sum.Add(&pc[i])
	}

	newPc := make([]vec3d.T, 0, len(order))
	for _, key := range order {
		v := voxels[key]
		if v.num > 1 {
			newPc = append(newPc, *mulFloat(&v.sum, 1.0/float64(v.num)))
		} else {
			newPc = append(newPc, pc[v.index])
		}
	}
	return newPc, nil
}

// MergeDuplicates averages samples whose XY positions fall into the same
// tolerance-sized cell. Exact kriging and the thin-plate fit are singular
// for coincident samples; merging them first keeps those methods usable.
// A tolerance <= 0 returns the input unchanged.
func MergeDuplicates(pos []vec3d.T, tolerance float64) ([]vec3d.T, error) {
	if tolerance <= 0 || !isFinite(tolerance) || len(pos) == 0 {
		return pos, nil
	}
	return newVoxelGrid(tolerance).Filter(pos)
}
