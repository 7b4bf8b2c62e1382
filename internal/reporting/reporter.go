// internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/xkilldash9x/demoqa-e2e/internal/observability"
)

// Formats lists the accepted values of the format argument of New.
var Formats = []string{"text", "json", "junit"}

// Reporter writes run reports to an output.
type Reporter interface {
	// Write buffers a report.
	Write(report *Report) error
	// Close renders everything written and closes any underlying file.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format writing to outputPath. An empty path or
// "stdout" writes to standard output, which is never closed.
func New(format, outputPath string) (Reporter, error) {
	if _, ok := renderers[format]; !ok {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}
	return NewWriterReporter(format, writer)
}

// NewWriterReporter creates a reporter for format that takes ownership of writer.
func NewWriterReporter(format string, writer io.WriteCloser) (Reporter, error) {
	render, ok := renderers[format]
	if !ok {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	return &reporter{
		format: format,
		render: render,
		writer: writer,
		logger: observability.GetLogger().Named("reporter").With(zap.String("format", format)),
	}, nil
}

type renderFunc func(w io.Writer, reports []*Report) error

var renderers = map[string]renderFunc{
	"text":  renderText,
	"json":  renderJSON,
	"junit": renderJUnit,
}

type reporter struct {
	format  string
	render  renderFunc
	writer  io.WriteCloser
	logger  *zap.Logger
	reports []*Report
	closed  bool
}

func (r *reporter) Write(report *Report) error {
	if r.closed {
		return fmt.Errorf("%s reporter is closed", r.format)
	}
	if report == nil {
		return fmt.Errorf("nil report")
	}
	r.reports = append(r.reports, report)
	return nil
}

func (r *reporter) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	renderErr := r.render(r.writer, r.reports)
	// Always attempt to close the writer, regardless of rendering success.
	closeErr := r.writer.Close()

	if renderErr != nil {
		r.logger.Error("Failed to render report", zap.Error(renderErr))
		return fmt.Errorf("failed to render %s report: %w", r.format, renderErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	r.logger.Debug("Report written", zap.Int("runs", len(r.reports)))
	return nil
}
