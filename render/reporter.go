package render

import (
	"fmt"

	"github.com/SaiNageswarS/doqq/controller"
)

// Reporter prints controller progress as it arrives.
type Reporter struct {
	printer *Printer
	verbose bool
}

// NewReporter prints transcript lines and, when verbose, one line per
// primed file.
func NewReporter(printer *Printer, verbose bool) *Reporter {
	return &Reporter{printer: printer, verbose: verbose}
}

func (r *Reporter) Send(event controller.Event) error {
	switch event.Kind {
	case controller.EventLine:
		r.printer.Line(event.Line)
	case controller.EventFilePrimed:
		if event.Err != nil {
			r.printer.Error(event.Err)
		} else if r.verbose {
			r.printer.Line(controller.Line{Content: "sent " + event.Path, Status: true})
		}
	case controller.EventPhase:
		if event.Err != nil && event.Phase != controller.PhaseServerUnavailable {
			r.printer.Error(fmt.Errorf("%s: %w", event.Phase, event.Err))
		}
	}
	return nil
}
