package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"medpipe/pkg/config"
	"medpipe/pkg/logging"
	"medpipe/pkg/metrics"
	"medpipe/pkg/runner"
	"medpipe/pkg/workflow"
)

const usage = `usage: medpipe [-config file] <command> [flags] [args]

commands:
  crop        crop a volume with the external crop tool
  register    rigidly register a floating image and tumor mask onto a reference
  dicom       show the identifying tags of the series in a DICOM directory
  convert     convert a DICOM series directory to NIfTI; the volume is written
              next to the directory as "<number>-<description>.nii", with any
              "/" in the label replaced by "_" (N/A-T1 becomes N_A-T1.nii)
  stl         export an STL mesh mirrored in X and Y for Mimics
  view        open images in the viewer
  init-config write the default configuration file
`

// app carries what every subcommand needs
type app struct {
	cfg      *config.Config
	settings workflow.Settings
	deps     workflow.Deps
	logger   *zap.Logger
	metrics  *metrics.Recorder
}

func main() {
	configPath := flag.String("config", "medpipe.yaml", "Path to the YAML configuration file")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command, args := flag.Arg(0), flag.Args()[1:]

	if command == "init-config" {
		path := *configPath
		if len(args) > 0 {
			path = args[0]
		}
		if err := config.CreateDefaultConfigFile(path); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", path)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = a.dispatch(ctx, command, args)
	stop()

	if cfg.Metrics.Textfile != "" {
		if werr := a.metrics.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			a.logger.Warn("failed to write metrics textfile", zap.Error(werr))
		}
	}

	if err != nil {
		report(err)
		a.logger.Sync()
		os.Exit(1)
	}
}

func newApp(cfg *config.Config) (*app, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPath:  cfg.Logging.OutputPath,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	settings, err := workflow.SettingsFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	rec := metrics.NewRecorder()
	return &app{
		cfg:      cfg,
		settings: settings,
		logger:   logger,
		metrics:  rec,
		deps: workflow.Deps{
			Runner:  runner.NewExecRunner(logger, rec),
			Logger:  logger,
			Metrics: rec,
			Observer: func(e workflow.Event) {
				logger.Debug("state changed",
					zap.String("adapter", e.Adapter),
					zap.Stringer("from", e.From),
					zap.Stringer("to", e.To),
					zap.Error(e.Err),
				)
			},
		},
	}, nil
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "crop":
		return a.crop(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "dicom":
		return a.dicom(args)
	case "convert":
		return a.convert(ctx, args)
	case "stl":
		return a.stl(args)
	case "view":
		return a.view(ctx, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// report prints a failure with the external tool's own diagnostic
func report(err error) {
	var stageErr *workflow.StageError
	if !errors.As(err, &stageErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(os.Stderr, "Stage %q failed.\n", stageErr.Stage)
	var toolErr *runner.ToolError
	if errors.As(err, &toolErr) {
		fmt.Fprintf(os.Stderr, "%s exited with status %d\n", toolErr.Tool, toolErr.ExitCode)
		if diag := toolErr.Diagnostic(); diag != "" {
			fmt.Fprintf(os.Stderr, "Tool output:\n%s\n", diag)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "%v\n", stageErr.Err)
}
