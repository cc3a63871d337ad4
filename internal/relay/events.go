package relay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/BerylCAtieno/getreach/internal/models"
)

type EventType string

const (
	EventChunk EventType = "chunk"
	EventDone  EventType = "done"
	EventError EventType = "error"
)

// StreamEvent is one frame of the analyze event stream. A stream carries zero
// or more chunk events followed by exactly one done or error event.
type StreamEvent struct {
	Type     EventType           `json:"type"`
	Text     string              `json:"text,omitempty"`
	Report   *models.ReachReport `json:"report,omitempty"`
	ReportID string              `json:"reportId,omitempty"`
	Message  string              `json:"message,omitempty"`
}

func ChunkEvent(text string) StreamEvent { return StreamEvent{Type: EventChunk, Text: text} }

func DoneEvent(report *models.ReachReport) StreamEvent {
	return StreamEvent{Type: EventDone, Report: report}
}

func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: EventError, Message: message}
}

// Terminal reports whether no further events may follow e.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// Validate checks that the event is one of the three known shapes.
func (e StreamEvent) Validate() error {
	switch e.Type {
	case EventChunk:
		return nil
	case EventDone:
		if e.Report == nil {
			return errors.New("done event without report")
		}
		return nil
	case EventError:
		if e.Message == "" {
			return errors.New("error event without message")
		}
		return nil
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
}

var dataPrefix = []byte("data: ")

// EncodeFrame renders an event as one server-sent-event frame.
func EncodeFrame(e StreamEvent) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(payload)+len(dataPrefix)+2)
	frame = append(frame, dataPrefix...)
	frame = append(frame, payload...)
	frame = append(frame, '\n', '\n')
	return frame, nil
}

const maxFrameSize = 4 << 20

// ReadEvents decodes frames from an event stream until the terminal event or
// EOF and passes each one to fn. It fails if the stream ends without a
// terminal event or carries anything after it.
func ReadEvents(r io.Reader, fn func(StreamEvent) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	terminated := false
	for scanner.Scan() {
		line := scanner.Bytes()
		if !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		if terminated {
			return errors.New("event after terminal event")
		}

		var ev StreamEvent
		if err := json.Unmarshal(line[len(dataPrefix):], &ev); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if err := ev.Validate(); err != nil {
			return err
		}
		if ev.Report != nil {
			ev.Report.Normalize()
		}
		if err := fn(ev); err != nil {
			return err
		}
		terminated = ev.Terminal()
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if !terminated {
		return io.ErrUnexpectedEOF
	}
	return nil
}
