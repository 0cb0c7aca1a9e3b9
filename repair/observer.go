package repair

import (
	"fmt"
	"io"

	"github.com/nihei9/tether/driver/parser"
)

// Observer is notified of what happens during a generation. Its methods are called synchronously from
// Generate.
type Observer interface {
	Fragment(text string)
	Repair(ev RepairEvent)
	Overflow(ev OverflowEvent)
}

type RepairEvent struct {
	Err *parser.SyntaxError
	// Removed is the text rolled back.
	Removed string
	// Validated is the text kept.
	Validated string
	// Backoff is the number of characters this repair tried to roll back.
	Backoff int
}

type OverflowEvent struct {
	Pending    string
	MaxPending int
}

type nopObserver struct{}

func (nopObserver) Fragment(string)        {}
func (nopObserver) Repair(RepairEvent)     {}
func (nopObserver) Overflow(OverflowEvent) {}

// NewWriterObserver returns an observer that writes fragments to w as they arrive, followed by a note
// on each repair and overflow.
func NewWriterObserver(w io.Writer) Observer {
	return &writerObserver{
		w: w,
	}
}

type writerObserver struct {
	w io.Writer
}

func (o *writerObserver) Fragment(text string) {
	fmt.Fprint(o.w, text)
}

func (o *writerObserver) Repair(ev RepairEvent) {
	tail := []rune(ev.Validated)
	if len(tail) > 10 {
		tail = tail[len(tail)-10:]
	}
	fmt.Fprintf(o.w, "\n\nError: %v\nTrimming away %v chars. Now ...%q\n\n", ev.Err, len([]rune(ev.Removed)), string(tail))
}

func (o *writerObserver) Overflow(ev OverflowEvent) {
	fmt.Fprintf(o.w, "\n\nNo token completed within %v chars. Requesting again.\n\n", ev.MaxPending)
}
