package workflow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegistrationGateInAnyOrder verifies run stays disabled until all three inputs are set
func TestRegistrationGateInAnyOrder(t *testing.T) {
	dir := filepath.Join("/studies", "case1")
	setters := map[string]func(*RegistrationAdapter) error{
		"reference": func(a *RegistrationAdapter) error { return a.SetReference(filepath.Join(dir, "brain.nii")) },
		"floating":  func(a *RegistrationAdapter) error { return a.SetFloating(filepath.Join(dir, "mri.nii")) },
		"tumor":     func(a *RegistrationAdapter) error { return a.SetTumor(filepath.Join(dir, "tumor.nii")) },
	}
	orders := [][]string{
		{"reference", "floating", "tumor"},
		{"reference", "tumor", "floating"},
		{"floating", "reference", "tumor"},
		{"floating", "tumor", "reference"},
		{"tumor", "reference", "floating"},
		{"tumor", "floating", "reference"},
	}

	for _, order := range orders {
		fake := &fakeRunner{}
		a := NewRegistrationAdapter(testSettings(), Deps{Runner: fake})

		for i, slot := range order {
			require.NoError(t, setters[slot](a))
			if i < 2 {
				assert.False(t, a.Ready(), "order %v after %d inputs", order, i+1)
				assert.Equal(t, NoInput, a.State())
				assert.ErrorIs(t, a.Run(context.Background()), ErrNotReady)
			}
		}
		assert.True(t, a.Ready(), "order %v", order)
		assert.Equal(t, Ready, a.State())
		assert.Empty(t, fake.calls)
	}
}

func TestRegistrationRun(t *testing.T) {
	dir := filepath.Join("/studies", "case1")
	fake := &fakeRunner{}
	a := NewRegistrationAdapter(testSettings(), Deps{Runner: fake})
	require.NoError(t, a.SetReference(filepath.Join(dir, "brain.nii")))
	require.NoError(t, a.SetFloating(filepath.Join(dir, "mri.nii")))
	require.NoError(t, a.SetTumor(filepath.Join(dir, "tumor.nii")))

	_, err := a.Results()
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, Done, a.State())

	cmd := fake.last()
	assert.Equal(t, "reg_aladin", cmd.Path)
	assert.Equal(t, dir, cmd.Dir)
	assert.Equal(t, []string{"-ref", "brain.nii", "-flo", "mri.nii", "-tum", "tumor.nii", "-rigOnly", "-ln", "4"}, cmd.Args)

	paths, err := a.Results()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Tumor_to_brain.nii"), paths.Segmentation)
	assert.Equal(t, filepath.Join(dir, "mri_to_brain.nii"), paths.Overlay)

	require.NoError(t, a.ShowResults(context.Background()))
	view := fake.last()
	assert.Equal(t, "ITK-SNAP", view.Path)
	assert.Equal(t, []string{
		"-g", filepath.Join(dir, "brain.nii"),
		"-s", filepath.Join(dir, "Tumor_to_brain.nii"),
		"-o", filepath.Join(dir, "mri_to_brain.nii"),
	}, view.Args)
}

// TestRegistrationInputsOutsideReferenceDir verifies names stay relative to the working directory
func TestRegistrationInputsOutsideReferenceDir(t *testing.T) {
	fake := &fakeRunner{}
	a := NewRegistrationAdapter(testSettings(), Deps{Runner: fake})
	require.NoError(t, a.SetReference("/studies/ct/brain.nii"))
	require.NoError(t, a.SetFloating("/studies/mr/t1.nii.gz"))
	require.NoError(t, a.SetTumor("/studies/ct/masks/tumor.nii"))

	cmd, err := a.Invocation()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-ref", "brain.nii",
		"-flo", filepath.Join("..", "mr", "t1.nii.gz"),
		"-tum", filepath.Join("masks", "tumor.nii"),
		"-rigOnly", "-ln", "4",
	}, cmd.Args)
}

func TestRegistrationSettings(t *testing.T) {
	settings := testSettings()
	settings.RigidOnly = false
	settings.Levels = 2

	a := NewRegistrationAdapter(settings, Deps{Runner: &fakeRunner{}})
	require.NoError(t, a.SetReference("/s/ref.nii"))
	require.NoError(t, a.SetFloating("/s/flo.nii"))
	require.NoError(t, a.SetTumor("/s/tum.nii"))

	cmd, err := a.Invocation()
	require.NoError(t, err)
	assert.NotContains(t, cmd.Args, "-rigOnly")
	assert.Equal(t, []string{"-ln", "2"}, cmd.Args[len(cmd.Args)-2:])
}

func TestRegistrationFailureKeepsResultsLocked(t *testing.T) {
	fake := &fakeRunner{exitCode: 1, stderr: "cannot open reference"}
	a := NewRegistrationAdapter(testSettings(), Deps{Runner: fake})
	require.NoError(t, a.SetReference("/s/ref.nii"))
	require.NoError(t, a.SetFloating("/s/flo.nii"))
	require.NoError(t, a.SetTumor("/s/tum.nii"))

	err := a.Run(context.Background())
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "registration", stageErr.Stage)
	assert.Contains(t, err.Error(), "cannot open reference")

	assert.Equal(t, Ready, a.State())
	assert.ErrorIs(t, a.ShowResults(context.Background()), ErrNotReady)
	assert.Len(t, fake.calls, 1)
}

// TestRegistrationReplacingInputResetsResults verifies a new selection locks results again
func TestRegistrationReplacingInputResetsResults(t *testing.T) {
	a := NewRegistrationAdapter(testSettings(), Deps{Runner: &fakeRunner{}})
	require.NoError(t, a.SetReference("/s/ref.nii"))
	require.NoError(t, a.SetFloating("/s/flo.nii"))
	require.NoError(t, a.SetTumor("/s/tum.nii"))
	require.NoError(t, a.Run(context.Background()))

	require.NoError(t, a.SetFloating("/s/other.nii"))
	assert.Equal(t, Ready, a.State())
	_, err := a.Results()
	assert.ErrorIs(t, err, ErrNotReady)
}
