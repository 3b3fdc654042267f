// Package export turns a finished simulation into artifacts for rendering
// collaborators: a JSON document (optionally snappy-compressed), a CSV of
// the infection history, written to local files or S3-compatible storage.
package export

import (
	"bytes"
	"encoding/binary"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"strconv"
	"time"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-botnetsim/pkg/iotgraph"
	"github.com/dd0wney/cluso-botnetsim/pkg/propagation"
)

// Document is the complete, read-only export of one run.
type Document struct {
	RunID       string              `json:"run_id"`
	CreatedAt   time.Time           `json:"created_at"`
	Seed        uint64              `json:"seed"`
	Config      propagation.Config  `json:"config"`
	Summary     iotgraph.Summary    `json:"summary"`
	Nodes       []iotgraph.Node     `json:"nodes"`
	Edges       []iotgraph.Edge     `json:"edges"`
	Seeds       []int               `json:"seeds"`
	History     []int               `json:"history"`
	FinalStates []propagation.State `json:"final_states"`
}

// NewDocument snapshots the engine's graph, history and final states.
func NewDocument(runID string, e *propagation.Engine, seeds []int) *Document {
	g := e.Graph()
	return &Document{
		RunID:       runID,
		CreatedAt:   time.Now().UTC(),
		Seed:        e.Config().Seed,
		Config:      e.Config(),
		Summary:     g.Summary(),
		Nodes:       g.Nodes(),
		Edges:       g.Edges(),
		Seeds:       append([]int(nil), seeds...),
		History:     e.History(),
		FinalStates: e.States(),
	}
}

// compressed artifacts: magic | crc32(payload) | snappy(payload)
var artifactMagic = [4]byte{'B', 'S', 'Z', '1'}

const headerSize = 8

// Marshal encodes doc as JSON, snappy-compressed with a checksum header when
// compress is set.
func Marshal(doc *Document, compress bool) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, &ExportError{Op: "marshal", Key: doc.RunID, Cause: fmt.Errorf("%w: %v", ErrMarshalFailed, err)}
	}
	if !compress {
		return data, nil
	}

	payload := snappy.Encode(nil, data)
	out := make([]byte, headerSize+len(payload))
	copy(out, artifactMagic[:])
	binary.BigEndian.PutUint32(out[4:headerSize], crc32.ChecksumIEEE(payload))
	copy(out[headerSize:], payload)
	return out, nil
}

// Unmarshal decodes a document written by Marshal, detecting compression
// from the header.
func Unmarshal(data []byte) (*Document, error) {
	if IsCompressed(data) {
		if len(data) < headerSize {
			return nil, &ExportError{Op: "unmarshal", Cause: ErrCorruptArtifact}
		}
		payload := data[headerSize:]
		if crc32.ChecksumIEEE(payload) != binary.BigEndian.Uint32(data[4:headerSize]) {
			return nil, &ExportError{Op: "unmarshal", Cause: fmt.Errorf("%w: checksum mismatch", ErrCorruptArtifact)}
		}
		decoded, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, &ExportError{Op: "unmarshal", Cause: fmt.Errorf("%w: %v", ErrCorruptArtifact, err)}
		}
		data = decoded
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ExportError{Op: "unmarshal", Cause: err}
	}
	return &doc, nil
}

// IsCompressed reports whether data starts with the compressed artifact magic.
func IsCompressed(data []byte) bool {
	return len(data) >= len(artifactMagic) && bytes.Equal(data[:len(artifactMagic)], artifactMagic[:])
}

// WriteHistoryCSV writes "tick,infected" rows for the history.
func WriteHistoryCSV(w io.Writer, history []int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"tick", "infected"}); err != nil {
		return err
	}
	for t, k := range history {
		if err := cw.Write([]string{strconv.Itoa(t), strconv.Itoa(k)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEdgesCSV writes one row per edge with its attributes.
func WriteEdgesCSV(w io.Writer, edges []iotgraph.Edge) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"source", "target", "protocol", "bandwidth", "latency"}); err != nil {
		return err
	}
	for _, e := range edges {
		row := []string{
			strconv.Itoa(e.Source),
			strconv.Itoa(e.Target),
			e.Protocol.String(),
			strconv.FormatFloat(e.Bandwidth, 'f', 4, 64),
			strconv.FormatFloat(e.Latency, 'f', 4, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
