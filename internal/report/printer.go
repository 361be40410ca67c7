// Package report writes human-readable run diagnostics to a terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	"github.com/fatih/color"
)

// Printer prints one status line per geocoding lookup and a capture summary.
// It is safe for concurrent use.
type Printer struct {
	mu   sync.Mutex
	w    io.Writer
	okay *color.Color
	fail *color.Color
}

// NewPrinter writes to w. With colored false the tags are plain text.
func NewPrinter(w io.Writer, colored bool) *Printer {
	okay := color.New(color.FgGreen)
	fail := color.New(color.FgRed)
	if colored {
		okay.EnableColor()
		fail.EnableColor()
	} else {
		okay.DisableColor()
		fail.DisableColor()
	}
	return &Printer{w: w, okay: okay, fail: fail}
}

// LookupDone prints "[OKAY] Querying location for 'x'" or the [FAIL] variant.
func (p *Printer) LookupDone(res domain.Resolution) {
	tag := p.okay.Sprint("[OKAY]")
	if !res.Resolved() {
		tag = p.fail.Sprint("[FAIL]")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s Querying location for '%s'\n", tag, res.Query)
}

// Summary prints the number of scanned items and the counts found.
func (p *Printer) Summary(scanned int, mentions domain.Mentions) error {
	if mentions == nil {
		mentions = domain.Mentions{}
	}
	// encoding/json sorts map keys.
	body, err := json.MarshalIndent(mentions, "", "    ")
	if err != nil {
		return fmt.Errorf("format summary: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = fmt.Fprintf(p.w, "Searched in %d items and found:\n%s\n", scanned, body)
	return err
}
