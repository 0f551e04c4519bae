// Package eventlog records broadcast envelopes in a JSON-Lines audit log.
//
// The log begins with a single header line followed by one entry per
// broadcast call, each an array of [timeOffsetSeconds, eventType, payload].
package eventlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Header is the first line of a broadcast log.
type Header struct {
	Version   int   `json:"version"`
	Timestamp int64 `json:"timestamp"`
}

// Entry is a single recorded broadcast.
// Format: [time_offset, event_type, payload]
type Entry struct {
	TimeOffset float64
	EventType  string
	Payload    json.RawMessage
}

// MarshalJSON implements custom JSON marshaling for Entry.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.TimeOffset, e.EventType, e.Payload})
}

// UnmarshalJSON implements custom JSON unmarshaling for Entry.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if len(arr) != 3 {
		return fmt.Errorf("invalid entry format: expected 3 elements, got %d", len(arr))
	}

	if err := json.Unmarshal(arr[0], &e.TimeOffset); err != nil {
		return fmt.Errorf("invalid time offset: %w", err)
	}
	if err := json.Unmarshal(arr[1], &e.EventType); err != nil {
		return fmt.Errorf("invalid event type: %w", err)
	}
	e.Payload = append(json.RawMessage(nil), arr[2]...)

	return nil
}

// Log records broadcast envelopes to a writer, one JSON line per call.
type Log struct {
	writer    io.Writer
	file      *os.File // only set if we own the file
	startTime time.Time
	mu        sync.Mutex
}

// New creates a Log that writes to the given file path.
func New(filePath string) (*Log, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	return &Log{
		writer:    file,
		file:      file,
		startTime: time.Now(),
	}, nil
}

// NewWithWriter creates a Log that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Log {
	return &Log{
		writer:    w,
		startTime: time.Now(),
	}
}

// WriteHeader writes the log header. This should be called once before any
// entries are recorded.
func (l *Log) WriteHeader() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := Header{
		Version:   1,
		Timestamp: l.startTime.Unix(),
	}

	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	return nil
}

// Record writes one broadcast entry. payload must be valid JSON.
func (l *Log) Record(eventType string, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		TimeOffset: time.Since(l.startTime).Seconds(),
		EventType:  eventType,
		Payload:    json.RawMessage(payload),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}

	return nil
}

// Close closes the log file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// StartTime returns when the log was opened.
func (l *Log) StartTime() time.Time {
	return l.startTime
}
