package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"medpipe/internal/models"
	"medpipe/pkg/dicomseries"
	"medpipe/pkg/workflow"
)

// oneArg parses fs and returns its single positional argument
func oneArg(fs *flag.FlagSet, args []string, what string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return "", fmt.Errorf("%s: expected exactly one %s", fs.Name(), what)
	}
	return fs.Arg(0), nil
}

func (a *app) crop(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("crop", flag.ContinueOnError)
	region := models.DefaultCropRegion()
	fs.IntVar(&region.StartX, "x", region.StartX, "First voxel kept along X (1-based)")
	fs.IntVar(&region.StartY, "y", region.StartY, "First voxel kept along Y (1-based)")
	fs.IntVar(&region.StartZ, "z", region.StartZ, "First voxel kept along Z (1-based)")
	fs.IntVar(&region.ExtentX, "dx", region.ExtentX, "Voxels kept along X")
	fs.IntVar(&region.ExtentY, "dy", region.ExtentY, "Voxels kept along Y")
	fs.IntVar(&region.ExtentZ, "dz", region.ExtentZ, "Voxels kept along Z")
	open := fs.Bool("open", false, "Open the cropped volume in the viewer")

	input, err := oneArg(fs, args, "volume")
	if err != nil {
		return err
	}

	adapter := workflow.NewCropAdapter(a.settings, a.deps)
	if err := adapter.Select(input); err != nil {
		return err
	}
	if err := adapter.SetRegion(region); err != nil {
		return err
	}

	fmt.Println("Cropping volume...")
	out, err := adapter.Crop(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Cropped volume saved to: %s\n", out)

	if *open {
		return adapter.OpenResult(ctx)
	}
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	ref := fs.String("ref", "", "Reference image (CT)")
	flo := fs.String("flo", "", "Floating image (MRI)")
	tum := fs.String("tum", "", "Tumor mask in floating space")
	show := fs.Bool("show", false, "Open the results in the viewer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	adapter := workflow.NewRegistrationAdapter(a.settings, a.deps)
	for _, set := range []struct {
		path  string
		apply func(string) error
	}{
		{*ref, adapter.SetReference},
		{*flo, adapter.SetFloating},
		{*tum, adapter.SetTumor},
	} {
		if set.path == "" {
			continue
		}
		if err := set.apply(set.path); err != nil {
			return err
		}
	}
	if !adapter.Ready() {
		fs.Usage()
		return fmt.Errorf("register: -ref, -flo and -tum are all required")
	}

	fmt.Println("Running rigid registration...")
	if err := adapter.Run(ctx); err != nil {
		return err
	}

	paths, err := adapter.Results()
	if err != nil {
		return err
	}
	fmt.Println("Registration finished. Expected results:")
	fmt.Printf("- Segmentation: %s\n", paths.Segmentation)
	fmt.Printf("- Overlay:      %s\n", paths.Overlay)

	if *show {
		return adapter.ShowResults(ctx)
	}
	return nil
}

func (a *app) dicom(args []string) error {
	fs := flag.NewFlagSet("dicom", flag.ContinueOnError)
	dir, err := oneArg(fs, args, "directory")
	if err != nil {
		return err
	}

	adapter := workflow.NewConversionAdapter(a.settings, a.deps)
	series, err := adapter.Browse(dir)
	if err != nil {
		return err
	}
	printSeries(series)
	return nil
}

func (a *app) convert(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	open := fs.Bool("open", false, "Open the converted volume in the viewer")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: medpipe convert [-open] <dicom-dir>")
		fmt.Fprintln(fs.Output(), `Writes "<number>-<description>.nii" next to <dicom-dir>; "/" in the label becomes "_".`)
		fs.PrintDefaults()
	}
	dir, err := oneArg(fs, args, "directory")
	if err != nil {
		return err
	}

	adapter := workflow.NewConversionAdapter(a.settings, a.deps)
	series, err := adapter.Browse(dir)
	if err != nil {
		return err
	}
	printSeries(series)

	fmt.Println("\nConverting series...")
	out, err := adapter.Convert(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Converted volume saved to: %s\n", out)

	if *open {
		return adapter.OpenResult(ctx)
	}
	return nil
}

func (a *app) stl(args []string) error {
	fs := flag.NewFlagSet("stl", flag.ContinueOnError)
	input, err := oneArg(fs, args, "mesh")
	if err != nil {
		return err
	}

	adapter := workflow.NewMeshAdapter(a.deps)
	if err := adapter.Select(input); err != nil {
		return err
	}
	out, err := adapter.Export()
	if err != nil {
		return err
	}
	fmt.Printf("Mesh exported to: %s\n", out)
	return nil
}

func (a *app) view(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	var req workflow.ViewRequest
	fs.StringVar(&req.Grey, "g", "", "Main image")
	fs.StringVar(&req.Segmentation, "s", "", "Segmentation image")
	fs.StringVar(&req.Overlay, "o", "", "Overlay image")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("view: at most one positional image")
	}
	req.Path = fs.Arg(0)
	if len(req.Args()) == 0 {
		fs.Usage()
		return fmt.Errorf("view: nothing to open")
	}
	return workflow.NewViewer(a.settings, a.deps).Open(ctx, req)
}

func printSeries(series *dicomseries.SeriesIdentity) {
	fmt.Printf("Series: %s\n", series.Label())
	fmt.Printf("Read from: %s\n\n", series.File)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Tag\tValue")
	for _, attr := range series.Attributes {
		fmt.Fprintf(w, "%s\t%s\n", attr.Name, attr.Value)
	}
	w.Flush()
}
