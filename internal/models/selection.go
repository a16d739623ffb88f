package models

import (
	"fmt"
	"path/filepath"
)

// InputSelection is a file or directory chosen as the input of a pipeline stage.
// It is immutable once chosen; choosing a new one replaces it wholesale.
type InputSelection struct {
	// Path is the absolute filesystem path of the selection
	Path string

	// IsDir is true for DICOM series directories
	IsDir bool
}

// NewInputSelection makes path absolute and records whether it is a directory.
// The path is not required to exist; the external tools own that check.
func NewInputSelection(path string, isDir bool) (InputSelection, error) {
	if path == "" {
		return InputSelection{}, fmt.Errorf("empty input path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return InputSelection{}, fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	return InputSelection{Path: abs, IsDir: isDir}, nil
}

// Empty reports whether nothing has been selected yet.
func (s InputSelection) Empty() bool {
	return s.Path == ""
}

// Name returns the final path element.
func (s InputSelection) Name() string {
	if s.Empty() {
		return ""
	}
	return filepath.Base(s.Path)
}

// Dir returns the parent directory of the selection.
func (s InputSelection) Dir() string {
	if s.Empty() {
		return ""
	}
	return filepath.Dir(s.Path)
}

// Stage identifies a pipeline stage for output path derivation
type Stage int

const (
	StageCrop Stage = iota
	StageRegistration
	StageConversion
	StageMeshExport
)

func (s Stage) String() string {
	switch s {
	case StageCrop:
		return "crop"
	case StageRegistration:
		return "registration"
	case StageConversion:
		return "conversion"
	case StageMeshExport:
		return "mesh-export"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}
