package mesh

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"medpipe/pkg/stl"
)

func tetrahedron() []stl.Triangle {
	return []stl.Triangle{
		{Normal: [3]float32{0, 0, -1}, Vertex1: [3]float32{0, 0, 0}, Vertex2: [3]float32{0, 1, 0}, Vertex3: [3]float32{1, 0, 0}},
		{Normal: [3]float32{0, -1, 0}, Vertex1: [3]float32{0, 0, 0}, Vertex2: [3]float32{1, 0, 0}, Vertex3: [3]float32{0, 0, 1}},
		{Normal: [3]float32{-1, 0, 0}, Vertex1: [3]float32{0, 0, 0}, Vertex2: [3]float32{0, 0, 1}, Vertex3: [3]float32{0, 1, 0}},
		{Normal: [3]float32{0.57735, 0.57735, 0.57735}, Vertex1: [3]float32{1, 0, 0}, Vertex2: [3]float32{0, 1, 0}, Vertex3: [3]float32{0, 0, 1}},
		{Normal: [3]float32{0, 0, 1}, Vertex1: [3]float32{12.5, -3.25, 7}, Vertex2: [3]float32{-4, 8, 2}, Vertex3: [3]float32{100, 200, -300}},
	}
}

func assertTrianglesClose(t *testing.T, want, got []stl.Triangle) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		w, g := want[i], got[i]
		for _, pair := range [][2][3]float32{
			{w.Normal, g.Normal}, {w.Vertex1, g.Vertex1}, {w.Vertex2, g.Vertex2}, {w.Vertex3, g.Vertex3},
		} {
			for k := 0; k < 3; k++ {
				assert.InDelta(t, pair[0][k], pair[1][k], 1e-5, "triangle %d", i)
			}
		}
	}
}

func TestMirrorXYMatrix(t *testing.T) {
	want := mat.NewDense(4, 4, []float64{
		-1, 0, 0, 0,
		0, -1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	assert.True(t, mat.Equal(want, MirrorXY()))
}

func TestApplyMirrorsXAndY(t *testing.T) {
	in := []stl.Triangle{{
		Normal:  [3]float32{0.6, 0.8, 0},
		Vertex1: [3]float32{1, 2, 3},
		Vertex2: [3]float32{-4, 5, -6},
		Vertex3: [3]float32{7, -8, 9},
	}}

	out, err := Apply(MirrorXY(), in)
	require.NoError(t, err)

	assertTrianglesClose(t, []stl.Triangle{{
		Normal:  [3]float32{-0.6, -0.8, 0},
		Vertex1: [3]float32{-1, -2, 3},
		Vertex2: [3]float32{4, -5, -6},
		Vertex3: [3]float32{-7, 8, 9},
	}}, out)
}

// TestApplyTwiceIsIdentity checks the export transform is its own inverse
func TestApplyTwiceIsIdentity(t *testing.T) {
	in := tetrahedron()

	once, err := Apply(MirrorXY(), in)
	require.NoError(t, err)
	twice, err := Apply(MirrorXY(), once)
	require.NoError(t, err)

	assertTrianglesClose(t, in, twice)
}

// TestApplyReflectionKeepsOrientation verifies a single-axis mirror reverses vertex order
func TestApplyReflectionKeepsOrientation(t *testing.T) {
	mirrorX := mat.NewDense(4, 4, []float64{
		-1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	in := []stl.Triangle{{
		Normal:  [3]float32{0, 0, 1},
		Vertex1: [3]float32{0, 0, 0},
		Vertex2: [3]float32{1, 0, 0},
		Vertex3: [3]float32{0, 1, 0},
	}}

	out, err := Apply(mirrorX, in)
	require.NoError(t, err)
	assert.Equal(t, [3]float32{-1, 0, 0}, out[0].Vertex3)
	assert.Equal(t, [3]float32{0, 1, 0}, out[0].Vertex2)
	assert.InDelta(t, 1.0, float64(out[0].Normal[2]), 1e-6)
}

func TestApplyTranslationLeavesNormals(t *testing.T) {
	shift := mat.NewDense(4, 4, []float64{
		1, 0, 0, 10,
		0, 1, 0, 0,
		0, 0, 1, -5,
		0, 0, 0, 1,
	})
	out, err := Apply(shift, tetrahedron()[:1])
	require.NoError(t, err)
	assert.Equal(t, [3]float32{10, 0, -5}, out[0].Vertex1)
	assert.Equal(t, [3]float32{0, 0, -1}, out[0].Normal)
}

func TestApplyRejectsBadMatrices(t *testing.T) {
	_, err := Apply(mat.NewDense(3, 3, nil), nil)
	assert.Error(t, err)

	_, err = Apply(mat.NewDense(4, 4, nil), nil)
	assert.Error(t, err)
}

func TestExportForTargetSystem(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "skull.stl")
	in := tetrahedron()
	require.NoError(t, stl.SaveToSTL(src, in))

	out, err := ExportForTargetSystem(src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "skull_for_Mimics.stl"), out)

	got, err := stl.ReadFile(out)
	require.NoError(t, err)
	want, err := Apply(MirrorXY(), in)
	require.NoError(t, err)
	assertTrianglesClose(t, want, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files should remain")

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestExportForTargetSystemASCIISource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "jaw.stl")
	ascii := "solid jaw\nfacet normal 0 0 1\nouter loop\nvertex 1 2 3\nvertex 4 5 6\nvertex 7 8 10\nendloop\nendfacet\nendsolid jaw\n"
	require.NoError(t, os.WriteFile(src, []byte(ascii), 0644))

	out, err := ExportForTargetSystem(src)
	require.NoError(t, err)

	got, err := stl.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, [3]float32{-1, -2, 3}, got[0].Vertex1)
	assert.False(t, math.IsNaN(float64(got[0].Normal[0])))
}

// TestExportForTargetSystemUnparseable verifies a failed load leaves no output file behind
func TestExportForTargetSystemUnparseable(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.stl")
	require.NoError(t, os.WriteFile(src, []byte("definitely not a mesh"), 0644))

	_, err := ExportForTargetSystem(src)
	assert.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "broken_for_Mimics.stl"))
	assert.True(t, os.IsNotExist(statErr))
}

// TestExportForTargetSystemSolidHeaderWithoutFacets verifies a "solid" header
// followed by binary padding is rejected instead of exported as an empty mesh
func TestExportForTargetSystemSolidHeaderWithoutFacets(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.stl")
	data := make([]byte, 200)
	copy(data, "solid exported by cad")
	require.NoError(t, os.WriteFile(src, data, 0644))

	_, err := ExportForTargetSystem(src)
	assert.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "scan_for_Mimics.stl"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExportForTargetSystemMissingDestinationDir(t *testing.T) {
	_, err := ExportForTargetSystem(filepath.Join(t.TempDir(), "nowhere", "mesh.stl"))
	assert.Error(t, err)
}
