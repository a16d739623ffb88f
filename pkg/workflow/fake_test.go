package workflow

import (
	"context"

	"medpipe/pkg/dicomseries"
	"medpipe/pkg/runner"
)

// fakeRunner records commands and replays a scripted outcome
type fakeRunner struct {
	calls    []runner.Command
	exitCode int
	stderr   string
	startErr error
}

func (f *fakeRunner) Run(_ context.Context, cmd runner.Command) (*runner.Result, error) {
	f.calls = append(f.calls, cmd)
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &runner.Result{
		RunID:    "test-run",
		Tool:     cmd.Tool,
		ExitCode: f.exitCode,
		Stderr:   []byte(f.stderr),
	}, nil
}

func (f *fakeRunner) last() runner.Command {
	return f.calls[len(f.calls)-1]
}

func testSettings() Settings {
	return Settings{
		Tools: Tools{
			Crop:         "crop",
			Registration: "reg_aladin",
			Converter:    "dicom2file",
			Viewer:       "ITK-SNAP",
		},
		RigidOnly:  true,
		Levels:     4,
		Modality:   "1",
		DicomOrder: dicomseries.OrderByName,
	}
}

// eventLog collects observer events
type eventLog struct {
	events []Event
}

func (l *eventLog) observe(e Event) {
	l.events = append(l.events, e)
}

func (l *eventLog) states() []State {
	out := make([]State, len(l.events))
	for i, e := range l.events {
		out[i] = e.To
	}
	return out
}
