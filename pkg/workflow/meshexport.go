package workflow

import (
	"go.uber.org/zap"

	"medpipe/internal/models"
	"medpipe/pkg/mesh"
	"medpipe/pkg/metrics"
)

// MeshAdapter exports a selected STL mesh in the planning system's orientation
type MeshAdapter struct {
	machine

	deps   Deps
	logger *zap.Logger

	input  models.InputSelection
	output string
}

// NewMeshAdapter creates an adapter with no mesh selected
func NewMeshAdapter(deps Deps) *MeshAdapter {
	return &MeshAdapter{
		machine: newMachine("mesh-export", deps.Observer),
		deps:    deps,
		logger:  deps.logger().With(zap.String("adapter", "mesh-export")),
	}
}

// State returns the current lifecycle state
func (a *MeshAdapter) State() State { return a.state }

// Input returns the selected mesh
func (a *MeshAdapter) Input() models.InputSelection { return a.input }

// Output returns the exported mesh path once an export has succeeded
func (a *MeshAdapter) Output() string { return a.output }

// Select chooses the mesh to export
func (a *MeshAdapter) Select(path string) error {
	if err := a.require("select", NoInput, Ready, Done); err != nil {
		return err
	}
	sel, err := models.NewInputSelection(path, false)
	if err != nil {
		return err
	}
	a.input = sel
	a.output = ""
	return a.transition(Ready, nil)
}

// Export mirrors the mesh and writes it next to the source
func (a *MeshAdapter) Export() (string, error) {
	if err := a.require("export", Ready, Done); err != nil {
		return "", err
	}
	a.output = ""
	if err := a.transition(Running, nil); err != nil {
		return "", err
	}

	out, err := mesh.ExportForTargetSystem(a.input.Path)
	if err != nil {
		a.deps.Metrics.ObserveMeshExport(metrics.OutcomeFailure)
		a.logger.Warn("mesh export failed", zap.String("path", a.input.Path), zap.Error(err))
		return "", a.fail(&StageError{Stage: "mesh-export", Err: err})
	}

	a.deps.Metrics.ObserveMeshExport(metrics.OutcomeSuccess)
	a.output = out
	a.logger.Info("mesh exported", zap.String("output", out))
	return out, a.transition(Done, nil)
}
