// Package output renders command results either as JSON or as text.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrReported marks an error that has already been printed to the user.
// Callers should exit non-zero without printing it again.
var ErrReported = errors.New("error already reported")

// errorBody is the JSON shape of a failed command.
type errorBody struct {
	Error string `json:"error"`
}

// Printer writes results to Out and failures to Err.
type Printer struct {
	Out io.Writer
	Err io.Writer

	// JSON selects JSON output. Indent is applied to JSON documents; an
	// empty Indent produces compact single-line JSON.
	JSON   bool
	Indent string
}

func (p *Printer) encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if p.Indent != "" {
		enc.SetIndent("", p.Indent)
	}
	return enc.Encode(v)
}

// Print writes data as JSON in JSON mode and calls textFn otherwise.
func (p *Printer) Print(data any, textFn func(w io.Writer)) error {
	if p.JSON {
		if err := p.encode(p.Out, data); err != nil {
			return p.Fail(err)
		}
		return nil
	}
	textFn(p.Out)
	return nil
}

// Fail reports err and returns ErrReported. In JSON mode the error is a
// {"error": msg} document; otherwise an "Error: msg" line.
func (p *Printer) Fail(err error) error {
	if p.JSON {
		_ = p.encode(p.Err, errorBody{Error: err.Error()})
	} else {
		fmt.Fprintf(p.Err, "Error: %v\n", err)
	}
	return ErrReported
}

// Failf is Fail with a formatted message.
func (p *Printer) Failf(format string, args ...any) error {
	return p.Fail(fmt.Errorf(format, args...))
}
