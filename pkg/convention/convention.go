// Package convention holds the pure rules shared by every pipeline stage:
// the coordinate translation for the external crop tool and the derivation
// of output file names from input file names.
//
// Nothing in this package touches the filesystem.
package convention

import (
	"fmt"
	"path/filepath"
	"strings"

	"medpipe/internal/models"
)

const (
	cropTag       = "_crop"
	meshExportTag = "_for_Mimics.stl"
	niftiSuffix   = ".nii"
)

// ToExternalRange translates a 1-based inclusive start and a voxel count into
// the 0-based half-open range used by the crop tool.
// No validation is performed; out-of-volume values are the tool's concern.
func ToExternalRange(start, extent int) models.AxisRange {
	lo := start - 1
	return models.AxisRange{Lo: lo, Hi: lo + extent}
}

// ExternalRanges converts all three axes of a crop region.
func ExternalRanges(region models.CropRegion) [3]models.AxisRange {
	return [3]models.AxisRange{
		ToExternalRange(region.StartX, region.ExtentX),
		ToExternalRange(region.StartY, region.ExtentY),
		ToExternalRange(region.StartZ, region.ExtentZ),
	}
}

// DeriveOutputPath returns the output path of the single-input stages
// (crop and mesh export). The result always lives in the input's directory.
// Registration and conversion outputs depend on more than one input and are
// derived by RegistrationResults and ConversionOutput.
func DeriveOutputPath(inputPath string, stage models.Stage) (string, error) {
	if inputPath == "" {
		return "", fmt.Errorf("empty input path")
	}
	dir, name := filepath.Split(inputPath)
	if name == "" {
		return "", fmt.Errorf("input path %q has no file name", inputPath)
	}

	switch stage {
	case models.StageCrop:
		return filepath.Join(dir, CropName(name)), nil
	case models.StageMeshExport:
		return filepath.Join(dir, Stem(name)+meshExportTag), nil
	default:
		return "", fmt.Errorf("stage %s needs more than one input to derive its output", stage)
	}
}

// CropName inserts "_crop" immediately before the last suffix token of name.
// Only the trailing occurrence is spliced, so "a.gz.nii.gz" becomes
// "a.gz.nii_crop.gz". A name without a suffix gets "_crop" appended.
func CropName(name string) string {
	ext := Suffix(name)
	return strings.TrimSuffix(name, ext) + cropTag + ext
}

// Suffix returns the last extension-like token of name, including the dot.
// Dot-files such as ".hidden" and names ending in a bare dot have no suffix.
func Suffix(name string) string {
	ext := filepath.Ext(name)
	if ext == "." || ext == name {
		return ""
	}
	return ext
}

// Stem returns name without its last suffix token.
func Stem(name string) string {
	return strings.TrimSuffix(name, Suffix(name))
}

// RegistrationPaths are the files the registration tool is expected to
// produce next to the reference image.
type RegistrationPaths struct {
	// Reference is the reference image itself
	Reference string

	// Segmentation is the tumor mask resampled into reference space
	Segmentation string

	// Overlay is the floating image resampled into reference space
	Overlay string
}

// RegistrationResults derives the conventional result names for a reference
// and floating image pair. Both results live in the reference's directory.
func RegistrationResults(referencePath, floatingPath string) RegistrationPaths {
	dir := filepath.Dir(referencePath)
	refName := filepath.Base(referencePath)
	floStem := Stem(filepath.Base(floatingPath))

	return RegistrationPaths{
		Reference:    referencePath,
		Segmentation: filepath.Join(dir, "Tumor_to_"+refName),
		Overlay:      filepath.Join(dir, floStem+"_to_"+refName),
	}
}

// ConversionName is the file name the converter writes for a series label.
// Path separators in the label ("N/A" placeholders, descriptions such as
// "T1/T2") become underscores so the name stays a single path element.
func ConversionName(seriesLabel string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == filepath.Separator {
			return '_'
		}
		return r
	}, seriesLabel)
	return name + niftiSuffix
}

// ConversionOutput is where the converter writes a series: next to the
// DICOM directory, not inside it.
func ConversionOutput(dicomDir, seriesLabel string) string {
	parent := filepath.Dir(filepath.Clean(dicomDir))
	return filepath.Join(parent, ConversionName(seriesLabel))
}
