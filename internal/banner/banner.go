// Package banner prints the startup banner.
package banner

import (
	"fmt"
	"io"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
)

// Tagline is the line printed under the figure.
const Tagline = "Visit totals per redirect key (bulk or per-path counters)"

// Print writes the banner to w. The rule under the figure is sized to the
// tagline. Colors follow color.NoColor.
func Print(w io.Writer) {
	title := color.New(color.FgGreen, color.Bold)
	rule := color.New(color.FgCyan).Sprint(strings.Repeat("=", len(Tagline)+4))

	_, _ = title.Fprint(w, figure.NewFigure("RCOUNTER", "doom", true).String())
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  %s\n", color.GreenString(Tagline))
	fmt.Fprintln(w, rule)
}
