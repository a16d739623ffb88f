// Package workflow composes path conventions, DICOM discovery, mesh export
// and external tool invocation into the four pipeline adapters.
//
// Each adapter owns its own selections and derived paths and moves through
// NoInput, Ready, Running and Done. A step only advances when the tool it
// runs succeeds; failures come back as *StageError and leave the next action
// disabled. Adapters are driven by one caller at a time and are not safe for
// concurrent use.
package workflow

import (
	"context"

	"go.uber.org/zap"

	"medpipe/pkg/config"
	"medpipe/pkg/dicomseries"
	"medpipe/pkg/metrics"
	"medpipe/pkg/runner"
)

// Tools are the resolved executables of the external collaborators
type Tools struct {
	Crop         string
	Registration string
	Converter    string
	Viewer       string
}

// Settings are the fixed parameters of the pipeline
type Settings struct {
	Tools Tools

	// RigidOnly adds the rigid-only flag to the registration call
	RigidOnly bool

	// Levels is the registration pyramid level count
	Levels int

	// Modality is the converter's trailing flag
	Modality string

	// DicomOrder decides the representative file of a series directory
	DicomOrder dicomseries.Order
}

// Deps are the collaborators shared by all adapters
type Deps struct {
	Runner   runner.Runner
	Logger   *zap.Logger
	Metrics  *metrics.Recorder
	Observer Observer
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// SettingsFromConfig resolves the configured tools against the resource
// directory and copies the fixed parameters.
func SettingsFromConfig(cfg *config.Config, logger *zap.Logger) (Settings, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	order, err := dicomseries.ParseOrder(cfg.Dicom.Order)
	if err != nil {
		return Settings{}, err
	}

	resolve := func(name string) string {
		path, found := cfg.ResolveTool(name)
		if !found {
			logger.Debug("tool not bundled, using PATH lookup", zap.String("tool", name))
		}
		return path
	}

	return Settings{
		Tools: Tools{
			Crop:         resolve(cfg.Tools.Crop),
			Registration: resolve(cfg.Tools.Registration),
			Converter:    resolve(cfg.Tools.Converter),
			Viewer:       resolve(cfg.Tools.Viewer),
		},
		RigidOnly:  cfg.Registration.RigidOnly,
		Levels:     cfg.Registration.Levels,
		Modality:   cfg.Converter.Modality,
		DicomOrder: order,
	}, nil
}

// run executes cmd and folds start failures and non-zero exits into a *StageError
func run(ctx context.Context, r runner.Runner, stage string, cmd runner.Command) (*runner.Result, error) {
	result, err := r.Run(ctx, cmd)
	if err != nil {
		return nil, &StageError{Stage: stage, Err: err}
	}
	if err := result.Err(); err != nil {
		return result, &StageError{Stage: stage, Err: err}
	}
	return result, nil
}
