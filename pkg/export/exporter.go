package export

import (
	"bytes"
	"context"
	"errors"

	"github.com/dd0wney/cluso-botnetsim/pkg/logging"
)

// Recorder receives export outcomes; *metrics.Registry satisfies it.
type Recorder interface {
	RecordExport(sink, status string, bytes int)
}

// Artifact is one named blob produced from a Document.
type Artifact struct {
	Key         string
	ContentType string
	Data        []byte
}

// Exporter renders documents into artifacts and writes them to every sink.
type Exporter struct {
	sinks    []Sink
	compress bool
	recorder Recorder
	logger   logging.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithCompression snappy-compresses the JSON document.
func WithCompression(enabled bool) Option {
	return func(e *Exporter) { e.compress = enabled }
}

// WithRecorder reports each sink write.
func WithRecorder(r Recorder) Option {
	return func(e *Exporter) { e.recorder = r }
}

// WithLogger sets the exporter logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Exporter) { e.logger = logging.OrNop(logger) }
}

// NewExporter creates an exporter writing to sinks.
func NewExporter(sinks []Sink, opts ...Option) *Exporter {
	e := &Exporter{
		sinks:  sinks,
		logger: logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(logging.Component("export"))
	return e
}

// Artifacts renders the document, history CSV and edge CSV for doc.
func (e *Exporter) Artifacts(doc *Document) ([]Artifact, error) {
	data, err := Marshal(doc, e.compress)
	if err != nil {
		return nil, err
	}
	docKey, docType := doc.RunID+".json", "application/json"
	if e.compress {
		docKey, docType = doc.RunID+".json.sz", "application/octet-stream"
	}

	var history, edges bytes.Buffer
	if err := WriteHistoryCSV(&history, doc.History); err != nil {
		return nil, &ExportError{Op: "marshal", Key: doc.RunID + "-history.csv", Cause: err}
	}
	if err := WriteEdgesCSV(&edges, doc.Edges); err != nil {
		return nil, &ExportError{Op: "marshal", Key: doc.RunID + "-edges.csv", Cause: err}
	}

	return []Artifact{
		{Key: docKey, ContentType: docType, Data: data},
		{Key: doc.RunID + "-history.csv", ContentType: "text/csv", Data: history.Bytes()},
		{Key: doc.RunID + "-edges.csv", ContentType: "text/csv", Data: edges.Bytes()},
	}, nil
}

// Export writes every artifact to every sink. A failing sink does not stop
// the others; all failures are joined into the returned error.
func (e *Exporter) Export(ctx context.Context, doc *Document) ([]Artifact, error) {
	if len(e.sinks) == 0 {
		return nil, ErrNoSinks
	}

	artifacts, err := e.Artifacts(doc)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, sink := range e.sinks {
		for _, a := range artifacts {
			if err := sink.Put(ctx, a.Key, a.Data, a.ContentType); err != nil {
				e.record(sink.Name(), "error", 0)
				e.logger.Error("artifact write failed",
					logging.String("sink", sink.Name()), logging.String("key", a.Key), logging.Error(err))
				errs = append(errs, err)
				continue
			}
			e.record(sink.Name(), "success", len(a.Data))
			e.logger.Debug("artifact written",
				logging.String("sink", sink.Name()), logging.String("key", a.Key), logging.Int("bytes", len(a.Data)))
		}
	}

	return artifacts, errors.Join(errs...)
}

func (e *Exporter) record(sink, status string, n int) {
	if e.recorder != nil {
		e.recorder.RecordExport(sink, status, n)
	}
}
