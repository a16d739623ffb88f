package mesh

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"medpipe/internal/models"
	"medpipe/pkg/convention"
	"medpipe/pkg/stl"
)

// ExportForTargetSystem loads the STL mesh at meshPath, mirrors it with
// MirrorXY and writes it next to the source as "<stem>_for_Mimics.stl".
// The output appears atomically: on any failure no file is left at the
// destination.
func ExportForTargetSystem(meshPath string) (string, error) {
	outPath, err := convention.DeriveOutputPath(meshPath, models.StageMeshExport)
	if err != nil {
		return "", err
	}

	triangles, err := stl.ReadFile(meshPath)
	if err != nil {
		return "", fmt.Errorf("failed to load mesh: %w", err)
	}

	transformed, err := Apply(MirrorXY(), triangles)
	if err != nil {
		return "", err
	}

	if err := writeAtomic(outPath, transformed); err != nil {
		return "", fmt.Errorf("failed to export mesh: %w", err)
	}
	return outPath, nil
}

// outputMode matches what a plain create gives under the usual umask
const outputMode = 0644

func writeAtomic(path string, triangles []stl.Triangle) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := stl.Write(bw, triangles); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	// CreateTemp opens with 0600
	if err := tmp.Chmod(outputMode); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
