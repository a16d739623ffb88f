package workflow

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"medpipe/pkg/convention"
	"medpipe/pkg/dicomseries"
	"medpipe/pkg/runner"
)

// ConversionAdapter identifies a DICOM series directory and converts it to a NIfTI volume
type ConversionAdapter struct {
	machine

	settings Settings
	deps     Deps
	viewer   *Viewer
	logger   *zap.Logger

	dir    string
	series *dicomseries.SeriesIdentity
	output string
}

// NewConversionAdapter creates an adapter with no series
func NewConversionAdapter(settings Settings, deps Deps) *ConversionAdapter {
	return &ConversionAdapter{
		machine:  newMachine("conversion", deps.Observer),
		settings: settings,
		deps:     deps,
		viewer:   NewViewer(settings, deps),
		logger:   deps.logger().With(zap.String("adapter", "conversion")),
	}
}

// State returns the current lifecycle state
func (a *ConversionAdapter) State() State { return a.state }

// Series returns the identity of the browsed series, nil before a successful browse
func (a *ConversionAdapter) Series() *dicomseries.SeriesIdentity { return a.series }

// Dir returns the browsed series directory
func (a *ConversionAdapter) Dir() string { return a.dir }

// Output returns the converted volume path once a conversion has succeeded
func (a *ConversionAdapter) Output() string { return a.output }

// Browse identifies the series in dir. When no series is found, or its
// representative file cannot be parsed, the adapter keeps its previous
// series and state and the error is returned.
func (a *ConversionAdapter) Browse(dir string) (*dicomseries.SeriesIdentity, error) {
	if err := a.require("browse", NoInput, Ready, Done); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	series, err := dicomseries.Discover(abs, dicomseries.Options{
		Order:   a.settings.DicomOrder,
		Logger:  a.logger,
		Metrics: a.deps.Metrics,
	})
	if err != nil {
		return nil, err
	}

	a.dir = abs
	a.series = series
	a.output = ""
	return series, a.transition(Ready, nil)
}

// Invocation returns the converter command for the browsed series
func (a *ConversionAdapter) Invocation() (runner.Command, error) {
	if err := a.require("convert", Ready, Done); err != nil {
		return runner.Command{}, err
	}
	return runner.Command{
		Tool: "converter",
		Path: a.settings.Tools.Converter,
		Args: []string{a.dir, convention.ConversionName(a.series.Label()), a.settings.Modality},
		Dir:  filepath.Dir(a.dir),
	}, nil
}

// Convert runs the converter. The output lands next to the series directory.
func (a *ConversionAdapter) Convert(ctx context.Context) (string, error) {
	cmd, err := a.Invocation()
	if err != nil {
		return "", err
	}
	a.output = ""
	if err := a.transition(Running, nil); err != nil {
		return "", err
	}
	if _, err := run(ctx, a.deps.Runner, "conversion", cmd); err != nil {
		a.logger.Warn("conversion failed", zap.Error(err))
		return "", a.fail(err)
	}

	a.output = convention.ConversionOutput(a.dir, a.series.Label())
	a.logger.Info("series converted", zap.String("output", a.output))
	return a.output, a.transition(Done, nil)
}

// OpenResult shows the converted volume in the viewer
func (a *ConversionAdapter) OpenResult(ctx context.Context) error {
	if err := a.require("open result", Done); err != nil {
		return err
	}
	return a.viewer.Open(ctx, ViewRequest{Path: a.output})
}
