package models

// CropRegion is the user-facing crop box.
// Starts are 1-based and inclusive; extents count the voxels kept along each axis.
type CropRegion struct {
	// StartX, StartY, StartZ are the first kept voxel on each axis (1-based)
	StartX, StartY, StartZ int

	// ExtentX, ExtentY, ExtentZ are the number of voxels kept on each axis
	ExtentX, ExtentY, ExtentZ int
}

// DefaultCropRegion returns the region every input starts with: all six values set to 1.
func DefaultCropRegion() CropRegion {
	return CropRegion{
		StartX: 1, StartY: 1, StartZ: 1,
		ExtentX: 1, ExtentY: 1, ExtentZ: 1,
	}
}

// AxisRange is a 0-based half-open interval [Lo, Hi) on one axis,
// the convention the external crop tool expects.
type AxisRange struct {
	Lo int
	Hi int
}

// Len returns Hi - Lo.
func (r AxisRange) Len() int {
	return r.Hi - r.Lo
}
