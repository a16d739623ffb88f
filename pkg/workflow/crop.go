package workflow

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"medpipe/internal/models"
	"medpipe/pkg/convention"
	"medpipe/pkg/runner"
)

// CropAdapter drives the external crop tool for one selected volume
type CropAdapter struct {
	machine

	settings Settings
	deps     Deps
	viewer   *Viewer
	logger   *zap.Logger

	input  models.InputSelection
	region models.CropRegion
	output string
}

// NewCropAdapter creates an adapter with no input and the default region
func NewCropAdapter(settings Settings, deps Deps) *CropAdapter {
	return &CropAdapter{
		machine:  newMachine("crop", deps.Observer),
		settings: settings,
		deps:     deps,
		viewer:   NewViewer(settings, deps),
		logger:   deps.logger().With(zap.String("adapter", "crop")),
		region:   models.DefaultCropRegion(),
	}
}

// State returns the current lifecycle state
func (a *CropAdapter) State() State { return a.state }

// Input returns the selected volume
func (a *CropAdapter) Input() models.InputSelection { return a.input }

// Region returns the current crop region
func (a *CropAdapter) Region() models.CropRegion { return a.region }

// Output returns the cropped volume path once a crop has succeeded
func (a *CropAdapter) Output() string { return a.output }

// Select chooses the volume to crop. Any previous result is forgotten.
func (a *CropAdapter) Select(path string) error {
	if err := a.require("select", NoInput, Ready, Done); err != nil {
		return err
	}
	sel, err := models.NewInputSelection(path, false)
	if err != nil {
		return err
	}
	a.input = sel
	a.output = ""
	a.logger.Info("volume selected", zap.String("path", sel.Path))
	return a.transition(Ready, nil)
}

// SetRegion replaces the crop region. Values are not checked against the volume.
func (a *CropAdapter) SetRegion(region models.CropRegion) error {
	if err := a.require("set region", NoInput, Ready, Done); err != nil {
		return err
	}
	a.region = region
	return nil
}

// Invocation returns the crop command for the current input and region
func (a *CropAdapter) Invocation() (runner.Command, string, error) {
	if a.input.Empty() {
		return runner.Command{}, "", fmt.Errorf("%w: no volume selected", ErrNotReady)
	}
	out, err := convention.DeriveOutputPath(a.input.Path, models.StageCrop)
	if err != nil {
		return runner.Command{}, "", err
	}

	args := []string{a.input.Path, out}
	for _, r := range convention.ExternalRanges(a.region) {
		args = append(args, strconv.Itoa(r.Lo), strconv.Itoa(r.Hi))
	}
	return runner.Command{Tool: "crop", Path: a.settings.Tools.Crop, Args: args}, out, nil
}

// Crop runs the crop tool. On success the result can be opened; on failure
// the adapter returns to Ready and the error carries the tool's output.
func (a *CropAdapter) Crop(ctx context.Context) (string, error) {
	if err := a.require("crop", Ready, Done); err != nil {
		return "", err
	}
	cmd, out, err := a.Invocation()
	if err != nil {
		return "", err
	}

	a.output = ""
	if err := a.transition(Running, nil); err != nil {
		return "", err
	}
	if _, err := run(ctx, a.deps.Runner, "crop", cmd); err != nil {
		a.logger.Warn("crop failed", zap.Error(err))
		return "", a.fail(err)
	}

	a.output = out
	a.logger.Info("volume cropped", zap.String("output", out))
	return out, a.transition(Done, nil)
}

// OpenResult shows the cropped volume in the viewer
func (a *CropAdapter) OpenResult(ctx context.Context) error {
	if err := a.require("open result", Done); err != nil {
		return err
	}
	return a.viewer.Open(ctx, ViewRequest{Path: a.output})
}
