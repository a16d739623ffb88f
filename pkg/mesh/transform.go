// Package mesh applies homogeneous transforms to STL meshes and exports them
// for the downstream planning system.
package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"medpipe/pkg/stl"
)

// MirrorXY returns the fixed export transform: X and Y negated, Z and the
// translation left unchanged.
func MirrorXY() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		-1, 0, 0, 0,
		0, -1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
}

// Apply transforms every triangle by the 4x4 homogeneous matrix m.
// Vertices are transformed as points and normals as directions through the
// inverse transpose of the linear part. A transform with a negative
// determinant reverses the vertex order so facets keep facing outwards.
func Apply(m mat.Matrix, triangles []stl.Triangle) ([]stl.Triangle, error) {
	if r, c := m.Dims(); r != 4 || c != 4 {
		return nil, fmt.Errorf("transform must be 4x4, got %dx%d", r, c)
	}

	linear := mat.DenseCopyOf(m).Slice(0, 3, 0, 3)
	var inv mat.Dense
	if err := inv.Inverse(linear); err != nil {
		return nil, fmt.Errorf("transform is not invertible: %w", err)
	}
	normalMatrix := mat.DenseCopyOf(inv.T())
	flip := mat.Det(linear) < 0

	out := make([]stl.Triangle, len(triangles))
	point := mat.NewVecDense(4, nil)
	dir := mat.NewVecDense(3, nil)
	var res4, res3 mat.VecDense

	transformPoint := func(p [3]float32) [3]float32 {
		point.SetVec(0, float64(p[0]))
		point.SetVec(1, float64(p[1]))
		point.SetVec(2, float64(p[2]))
		point.SetVec(3, 1)
		res4.MulVec(m, point)
		w := res4.AtVec(3)
		if w == 0 {
			w = 1
		}
		return [3]float32{
			float32(res4.AtVec(0) / w),
			float32(res4.AtVec(1) / w),
			float32(res4.AtVec(2) / w),
		}
	}

	transformNormal := func(n [3]float32) [3]float32 {
		dir.SetVec(0, float64(n[0]))
		dir.SetVec(1, float64(n[1]))
		dir.SetVec(2, float64(n[2]))
		res3.MulVec(normalMatrix, dir)
		length := math.Sqrt(mat.Dot(&res3, &res3))
		if length == 0 {
			return [3]float32{}
		}
		return [3]float32{
			float32(res3.AtVec(0) / length),
			float32(res3.AtVec(1) / length),
			float32(res3.AtVec(2) / length),
		}
	}

	for i, t := range triangles {
		nt := stl.Triangle{
			Normal:  transformNormal(t.Normal),
			Vertex1: transformPoint(t.Vertex1),
			Vertex2: transformPoint(t.Vertex2),
			Vertex3: transformPoint(t.Vertex3),
		}
		if flip {
			nt.Vertex2, nt.Vertex3 = nt.Vertex3, nt.Vertex2
		}
		out[i] = nt
	}
	return out, nil
}
