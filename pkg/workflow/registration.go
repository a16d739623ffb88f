package workflow

import (
	"context"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"medpipe/internal/models"
	"medpipe/pkg/convention"
	"medpipe/pkg/runner"
)

// RegistrationAdapter drives rigid registration of a floating image and a
// tumor mask onto a reference image
type RegistrationAdapter struct {
	machine

	settings Settings
	deps     Deps
	viewer   *Viewer
	logger   *zap.Logger

	reference models.InputSelection
	floating  models.InputSelection
	tumor     models.InputSelection
}

// NewRegistrationAdapter creates an adapter with all three slots empty
func NewRegistrationAdapter(settings Settings, deps Deps) *RegistrationAdapter {
	return &RegistrationAdapter{
		machine:  newMachine("registration", deps.Observer),
		settings: settings,
		deps:     deps,
		viewer:   NewViewer(settings, deps),
		logger:   deps.logger().With(zap.String("adapter", "registration")),
	}
}

// State returns the current lifecycle state
func (a *RegistrationAdapter) State() State { return a.state }

// Reference, Floating and Tumor return the selected inputs
func (a *RegistrationAdapter) Reference() models.InputSelection { return a.reference }
func (a *RegistrationAdapter) Floating() models.InputSelection { return a.floating }
func (a *RegistrationAdapter) Tumor() models.InputSelection { return a.tumor }

// SetReference chooses the fixed image. The tool runs in its directory.
func (a *RegistrationAdapter) SetReference(path string) error {
	return a.set(&a.reference, "reference", path)
}

// SetFloating chooses the image moved onto the reference
func (a *RegistrationAdapter) SetFloating(path string) error {
	return a.set(&a.floating, "floating", path)
}

// SetTumor chooses the tumor mask moved along with the floating image
func (a *RegistrationAdapter) SetTumor(path string) error {
	return a.set(&a.tumor, "tumor", path)
}

func (a *RegistrationAdapter) set(slot *models.InputSelection, name, path string) error {
	if err := a.require("select "+name, NoInput, Ready, Done); err != nil {
		return err
	}
	sel, err := models.NewInputSelection(path, false)
	if err != nil {
		return err
	}
	*slot = sel
	a.logger.Info("input selected", zap.String("slot", name), zap.String("path", sel.Path))

	if a.Ready() {
		return a.transition(Ready, nil)
	}
	return a.transition(NoInput, nil)
}

// Ready reports whether all three inputs are chosen
func (a *RegistrationAdapter) Ready() bool {
	return !a.reference.Empty() && !a.floating.Empty() && !a.tumor.Empty()
}

// Invocation returns the registration command. File arguments are relative
// to the reference directory, which is also the working directory.
func (a *RegistrationAdapter) Invocation() (runner.Command, error) {
	if err := a.require("run", Ready, Done); err != nil {
		return runner.Command{}, err
	}
	dir := a.reference.Dir()

	args := []string{
		"-ref", relativeTo(dir, a.reference.Path),
		"-flo", relativeTo(dir, a.floating.Path),
		"-tum", relativeTo(dir, a.tumor.Path),
	}
	if a.settings.RigidOnly {
		args = append(args, "-rigOnly")
	}
	args = append(args, "-ln", strconv.Itoa(a.settings.Levels))

	return runner.Command{Tool: "registration", Path: a.settings.Tools.Registration, Args: args, Dir: dir}, nil
}

// relativeTo returns path relative to dir, or path itself when no relative
// form exists (different volumes on Windows)
func relativeTo(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return path
	}
	return rel
}

// Run executes the registration. Results become available only on success.
func (a *RegistrationAdapter) Run(ctx context.Context) error {
	cmd, err := a.Invocation()
	if err != nil {
		return err
	}
	if err := a.transition(Running, nil); err != nil {
		return err
	}
	if _, err := run(ctx, a.deps.Runner, "registration", cmd); err != nil {
		a.logger.Warn("registration failed", zap.Error(err))
		return a.fail(err)
	}
	a.logger.Info("registration finished", zap.String("dir", cmd.Dir))
	return a.transition(Done, nil)
}

// Results returns the files the registration tool writes next to the reference
func (a *RegistrationAdapter) Results() (convention.RegistrationPaths, error) {
	if err := a.require("show results", Done); err != nil {
		return convention.RegistrationPaths{}, err
	}
	return convention.RegistrationResults(a.reference.Path, a.floating.Path), nil
}

// ShowResults opens the reference with the registered tumor mask and floating image
func (a *RegistrationAdapter) ShowResults(ctx context.Context) error {
	paths, err := a.Results()
	if err != nil {
		return err
	}
	return a.viewer.Open(ctx, ViewRequest{
		Grey:         paths.Reference,
		Segmentation: paths.Segmentation,
		Overlay:      paths.Overlay,
	})
}
