package dicomseries

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// NotAvailable is shown for every attribute missing from the dataset
const NotAvailable = "N/A"

// Attribute is one displayed identifying tag
type Attribute struct {
	// Name is the display label, including the (group,element) pair
	Name string

	// Tag is the DICOM tag the value was read from
	Tag tag.Tag

	// Value is the rendered value, or NotAvailable
	Value string

	// Present is false when the tag is absent from the dataset
	Present bool
}

type attributeSpec struct {
	name string
	tag  tag.Tag
}

// displayed lists the identifying attributes in display order
var displayed = []attributeSpec{
	{"Description (0008,103E)", tag.SeriesDescription},
	{"Series Number (0020,0011)", tag.SeriesNumber},
	{"Patient's Name (0010,0010)", tag.PatientName},
	{"Patient ID (0010,0020)", tag.PatientID},
	{"Coordinates (0020,0032)", tag.ImagePositionPatient},
	{"Image Number (0020,0013)", tag.InstanceNumber},
	{"Age (0010,1010)", tag.PatientAge},
	{"Birthday (0010,0030)", tag.PatientBirthDate},
	{"Sex (0010,0040)", tag.PatientSex},
}

// extractAttributes looks every displayed tag up independently, so one
// missing or odd element never hides the others.
func extractAttributes(ds dicom.Dataset) []Attribute {
	attrs := make([]Attribute, 0, len(displayed))
	for _, spec := range displayed {
		value, ok := lookup(ds, spec.tag)
		attrs = append(attrs, Attribute{
			Name:    spec.name,
			Tag:     spec.tag,
			Value:   value,
			Present: ok,
		})
	}
	return attrs
}

// lookup renders the element for t, or NotAvailable when it is absent
func lookup(ds dicom.Dataset, t tag.Tag) (string, bool) {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil || elem.Value == nil {
		return NotAvailable, false
	}
	return render(elem.Value), true
}

// render formats a value the way it is displayed: a single value as itself,
// several values as "[a, b, c]"
func render(v dicom.Value) string {
	var parts []string
	switch vals := v.GetValue().(type) {
	case []string:
		for _, s := range vals {
			parts = append(parts, strings.TrimRight(s, " \x00"))
		}
	case []int:
		for _, i := range vals {
			parts = append(parts, strconv.Itoa(i))
		}
	case []float64:
		for _, f := range vals {
			parts = append(parts, strconv.FormatFloat(f, 'g', -1, 64))
		}
	default:
		return v.String()
	}

	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
	}
}
