package statuscolor

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/fatih/color"

	"github.com/selimozcann/RedirectCounter/internal/counter"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	gray   = color.New(color.FgHiBlack)
)

func colorFor(status int) *color.Color {
	switch {
	case status == http.StatusOK:
		return green
	case status == 0:
		return gray
	case status >= 400:
		return red
	default:
		return yellow
	}
}

// Sprint returns a colorized status code string.
func Sprint(status int) string {
	if status == 0 {
		return gray.Sprint("—")
	}
	return colorFor(status).Sprint(status)
}

// Printer writes the console status lines of a run. Color is disabled by
// fatih/color when NO_COLOR is set or stdout is not a terminal.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	err     io.Writer
	verbose bool
	silent  bool
}

// New returns a Printer on stdout/stderr.
func New(verbose, silent bool) *Printer {
	return NewWriters(color.Output, color.Error, verbose, silent)
}

// NewWriters returns a Printer on the given writers.
func NewWriters(out, errOut io.Writer, verbose, silent bool) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{out: out, err: errOut, verbose: verbose, silent: silent}
}

// Success prints a green [+] line unless silent.
func (p *Printer) Success(format string, args ...any) {
	if p.silent {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = green.Fprintf(p.out, "[+] "+format+"\n", args...)
}

// Verbose prints a "[tag] ..." line to stderr when verbose.
func (p *Printer) Verbose(tag, format string, args ...any) {
	if !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.err, "[%s] "+format+"\n", append([]any{tag}, args...)...)
}

// Warn prints a yellow [!] line to stderr unless silent.
func (p *Printer) Warn(format string, args ...any) {
	if p.silent {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = yellow.Fprintf(p.err, "[!] "+format+"\n", args...)
}

// Error prints a red [-] line to stderr.
func (p *Printer) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = red.Fprintf(p.err, "[-] Error: %v\n", err)
}

// LookupFailed reports a count lookup that degraded to zero. It matches
// counter.FailureFunc.
func (p *Printer) LookupFailed(target string, err error) {
	var se *counter.StatusError
	if errors.As(err, &se) {
		p.Warn("Failed to fetch counts: %s %s", target, Sprint(se.StatusCode))
		return
	}
	p.Warn("Exception fetching counts: %s: %v", target, err)
}
