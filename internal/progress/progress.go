// Package progress reports validate/extract run progress to a terminal,
// as JSON events, or not at all.
package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Reporter is implemented by every progress backend used while batch
// validating or extracting across many files.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Finish()
	SetWriter(w io.Writer)
}

// Terminal renders a live progress bar with an ETA estimate.
type Terminal struct {
	total     int
	current   int
	startTime time.Time
	writer    io.Writer
	width     int
	lastLine  string
}

// NewTerminal returns a Terminal reporter writing to stdout.
func NewTerminal() *Terminal {
	return &Terminal{
		writer: os.Stdout,
		width:  50,
	}
}

func (tp *Terminal) Start(total int) {
	tp.total = total
	tp.current = 0
	tp.startTime = time.Now()
	tp.render("Starting...")
}

func (tp *Terminal) Update(current int, message string) {
	tp.current = current
	tp.render(message)
}

func (tp *Terminal) Finish() {
	tp.current = tp.total
	elapsed := time.Since(tp.startTime)
	tp.render(fmt.Sprintf("Completed in %s", elapsed.Round(time.Millisecond)))
	fmt.Fprintln(tp.writer)
}

func (tp *Terminal) SetWriter(w io.Writer) {
	tp.writer = w
}

func (tp *Terminal) render(message string) {
	if tp.total == 0 {
		return
	}

	percentage := float64(tp.current) / float64(tp.total)
	filled := int(float64(tp.width) * percentage)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", tp.width-filled)

	eta := ""
	if tp.current > 0 {
		elapsed := time.Since(tp.startTime)
		rate := float64(tp.current) / elapsed.Seconds()
		remaining := tp.total - tp.current
		if rate > 0 {
			etaSeconds := float64(remaining) / rate
			eta = fmt.Sprintf(" ETA: %s", time.Duration(etaSeconds*float64(time.Second)).Round(time.Second))
		}
	}

	line := fmt.Sprintf("\r[%s] %d/%d (%.1f%%)%s - %s",
		bar, tp.current, tp.total, percentage*100, eta, message)

	if len(tp.lastLine) > len(line) {
		fmt.Fprint(tp.writer, "\r"+strings.Repeat(" ", len(tp.lastLine))+"\r")
	}

	fmt.Fprint(tp.writer, line)
	tp.lastLine = line
}

// Silent discards every event, used under --quiet.
type Silent struct{}

func NewSilent() *Silent { return &Silent{} }

func (sp *Silent) Start(total int)              {}
func (sp *Silent) Update(current int, msg string) {}
func (sp *Silent) Finish()                      {}
func (sp *Silent) SetWriter(w io.Writer)        {}

// JSON emits one JSON object per line, for consumption by editor/CI
// integrations watching a validate or extract run.
type JSON struct {
	writer    io.Writer
	startTime time.Time
	total     int
}

// Event is one JSON progress line.
type Event struct {
	Type       string    `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	Current    int       `json:"current"`
	Total      int       `json:"total"`
	Percentage float64   `json:"percentage"`
	Message    string    `json:"message"`
	Elapsed    string    `json:"elapsed,omitempty"`
}

func NewJSON() *JSON {
	return &JSON{writer: os.Stdout}
}

func (jp *JSON) Start(total int) {
	jp.total = total
	jp.startTime = time.Now()
	jp.emit(Event{
		Type:      "start",
		Timestamp: jp.startTime,
		Total:     total,
		Message:   "Starting run",
	})
}

func (jp *JSON) Update(current int, message string) {
	percentage := 0.0
	if jp.total > 0 {
		percentage = float64(current) / float64(jp.total) * 100
	}
	jp.emit(Event{
		Type:       "progress",
		Timestamp:  time.Now(),
		Current:    current,
		Total:      jp.total,
		Percentage: percentage,
		Message:    message,
		Elapsed:    time.Since(jp.startTime).String(),
	})
}

func (jp *JSON) Finish() {
	elapsed := time.Since(jp.startTime)
	jp.emit(Event{
		Type:       "complete",
		Timestamp:  time.Now(),
		Current:    jp.total,
		Total:      jp.total,
		Percentage: 100.0,
		Message:    "Run completed",
		Elapsed:    elapsed.String(),
	})
}

func (jp *JSON) SetWriter(w io.Writer) {
	jp.writer = w
}

func (jp *JSON) emit(event Event) {
	b, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintln(jp.writer, string(b))
}

// Options selects and configures a Reporter.
type Options struct {
	Type   string // "terminal", "json", "silent"
	Writer io.Writer
	Width  int // terminal bar width, ignored by other backends
}

// NewReporter builds the Reporter named by opts.Type, defaulting to
// Terminal.
func NewReporter(opts Options) Reporter {
	switch opts.Type {
	case "json":
		reporter := NewJSON()
		if opts.Writer != nil {
			reporter.SetWriter(opts.Writer)
		}
		return reporter
	case "silent":
		return NewSilent()
	default:
		reporter := NewTerminal()
		if opts.Writer != nil {
			reporter.SetWriter(opts.Writer)
		}
		if opts.Width > 0 {
			reporter.width = opts.Width
		}
		return reporter
	}
}
