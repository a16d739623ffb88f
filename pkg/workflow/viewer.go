package workflow

import (
	"context"

	"go.uber.org/zap"

	"medpipe/pkg/runner"
)

// ViewRequest lists what the viewer should show
type ViewRequest struct {
	// Grey is the main image (-g)
	Grey string

	// Segmentation is a label image drawn over Grey (-s)
	Segmentation string

	// Overlay is an additional image blended over Grey (-o)
	Overlay string

	// Path is a single image given without a flag
	Path string
}

// Args builds the viewer argument vector
func (v ViewRequest) Args() []string {
	var args []string
	if v.Grey != "" {
		args = append(args, "-g", v.Grey)
	}
	if v.Segmentation != "" {
		args = append(args, "-s", v.Segmentation)
	}
	if v.Overlay != "" {
		args = append(args, "-o", v.Overlay)
	}
	if v.Path != "" {
		args = append(args, v.Path)
	}
	return args
}

// Viewer launches the external image viewer. The call blocks until the viewer exits.
type Viewer struct {
	path   string
	runner runner.Runner
	logger *zap.Logger
}

// NewViewer creates a launcher for the configured viewer
func NewViewer(settings Settings, deps Deps) *Viewer {
	return &Viewer{path: settings.Tools.Viewer, runner: deps.Runner, logger: deps.logger()}
}

// Command returns the invocation for req without running it
func (v *Viewer) Command(req ViewRequest) runner.Command {
	return runner.Command{Tool: "viewer", Path: v.path, Args: req.Args()}
}

// Open shows the requested images. No existence check is made; the viewer reports missing files itself.
func (v *Viewer) Open(ctx context.Context, req ViewRequest) error {
	_, err := run(ctx, v.runner, "viewer", v.Command(req))
	if err != nil {
		v.logger.Warn("viewer failed", zap.Error(err))
	}
	return err
}
