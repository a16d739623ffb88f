// Package dicomseries identifies the DICOM series stored in a directory.
//
// Discovery picks one representative file: entries are enumerated in a
// chosen order, files that are not DICOM are skipped, and the first DICOM
// file found is parsed. Its identifying attributes describe the series.
// No later file is examined, not even when parsing the representative fails.
package dicomseries

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
	"go.uber.org/zap"

	"medpipe/pkg/metrics"
)

// ErrNoSeries is returned when no file in the directory is DICOM
var ErrNoSeries = errors.New("no DICOM series found")

// Order decides which DICOM file is the representative one
type Order int

const (
	// OrderByName sorts entries by name so results are reproducible
	OrderByName Order = iota

	// OrderNative keeps the filesystem's own enumeration order, which may
	// differ between filesystems and runs
	OrderNative
)

// ParseOrder maps a configuration value ("name" or "native") to an Order
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "name":
		return OrderByName, nil
	case "native":
		return OrderNative, nil
	default:
		return OrderByName, fmt.Errorf("unknown DICOM enumeration order %q", s)
	}
}

// ParseError reports a representative file that passed the DICOM check but
// could not be parsed
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse DICOM file %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Options configure discovery
type Options struct {
	Order   Order
	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// SeriesIdentity describes a series through its representative file
type SeriesIdentity struct {
	// Dir is the browsed directory
	Dir string

	// File is the representative file the attributes were read from
	File string

	// SeriesNumber and SeriesDescription build the label; NotAvailable when absent
	SeriesNumber      string
	SeriesDescription string

	// Attributes holds the nine displayed attributes in display order
	Attributes []Attribute
}

// Label returns "{SeriesNumber}-{SeriesDescription}".
func (s *SeriesIdentity) Label() string {
	return s.SeriesNumber + "-" + s.SeriesDescription
}

// Attribute returns the displayed attribute read from t.
func (s *SeriesIdentity) Attribute(t tag.Tag) (Attribute, bool) {
	for _, a := range s.Attributes {
		if a.Tag == t {
			return a, true
		}
	}
	return Attribute{}, false
}

// Discover finds the representative DICOM file in dir and extracts its
// identifying attributes. It returns ErrNoSeries when no file qualifies and
// a *ParseError when the representative file cannot be parsed.
func Discover(dir string, opts Options) (*SeriesIdentity, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("dir", dir))

	names, err := listNames(dir, opts.Order)
	if err != nil {
		opts.Metrics.ObserveDiscovery("error")
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for _, name := range names {
		path := filepath.Join(dir, name)
		if !isRegular(path) || !IsDICOM(path) {
			continue
		}

		ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
		if err != nil {
			// The first DICOM-looking file decides the outcome; later files are not tried.
			opts.Metrics.ObserveDiscovery("error")
			log.Warn("failed to read DICOM file", zap.String("file", path), zap.Error(err))
			return nil, &ParseError{File: path, Err: err}
		}

		identity := identify(dir, path, ds)
		opts.Metrics.ObserveDiscovery("found")
		log.Info("DICOM series found",
			zap.String("file", path),
			zap.String("label", identity.Label()),
		)
		return identity, nil
	}

	opts.Metrics.ObserveDiscovery("none")
	log.Warn("no valid DICOM file found in directory")
	return nil, ErrNoSeries
}

func identify(dir, file string, ds dicom.Dataset) *SeriesIdentity {
	number, _ := lookup(ds, tag.SeriesNumber)
	description, _ := lookup(ds, tag.SeriesDescription)
	return &SeriesIdentity{
		Dir:               dir,
		File:              file,
		SeriesNumber:      number,
		SeriesDescription: description,
		Attributes:        extractAttributes(ds),
	}
}

func listNames(dir string, order Order) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, err
	}
	if order == OrderByName {
		sort.Strings(names)
	}
	return names, nil
}

// isRegular follows symlinks, so a link to a DICOM file still counts
func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
