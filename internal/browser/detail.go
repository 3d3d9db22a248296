package browser

import (
	"fmt"
	"strings"

	"github.com/smileynet/multiverse/internal/selection"
)

// renderDetail builds the right pane: a pending line while a portrait is in
// flight, the last fetch error, then the last-good record.
func renderDetail(ctrl selection.Controller, spinnerView string) string {
	var b strings.Builder

	if r, ok := ctrl.Pending(); ok {
		fmt.Fprintf(&b, "%s Loading %s...\n\n", spinnerView, r.Name)
	}
	if err := ctrl.Err(); err != nil {
		b.WriteString(errorText.Render("Image unavailable: "+err.Error()) + "\n\n")
	}

	d, ok := ctrl.Shown()
	if !ok {
		if b.Len() == 0 {
			b.WriteString(mutedText.Render("Select a character"))
		}
		return strings.TrimRight(b.String(), "\n")
	}

	if d.Image != nil && d.Image.Bitmap != nil {
		b.WriteString(RenderImage(d.Image.Bitmap))
		b.WriteString("\n\n")
	} else {
		b.WriteString(mutedText.Render("(no portrait)") + "\n\n")
	}

	r := d.Record
	b.WriteString(titleText.Render(r.Name) + "\n\n")
	field(&b, "ID", fmt.Sprint(r.ID))
	field(&b, "Species", r.Species)
	field(&b, "Status", r.Status)
	field(&b, "Origin", r.Origin)
	return strings.TrimRight(b.String(), "\n")
}

func field(b *strings.Builder, label, value string) {
	if value == "" {
		value = "-"
	}
	b.WriteString(labelText.Render(label+":") + " " + value + "\n")
}
