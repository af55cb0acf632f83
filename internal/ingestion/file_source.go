package ingestion

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"rodeo-indexer/internal/domain"
)

const maxLineSize = 4 << 20

// FileSource reads JSON-lines events from a file.
type FileSource struct {
	path string
}

// NewFileSource creates a new FileSource.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Events streams the file's events in file order.
func (s *FileSource) Events(ctx context.Context) (<-chan *domain.Event, <-chan error) {
	events := make(chan *domain.Event)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(events)

		f, err := os.Open(s.path)
		if err != nil {
			errs <- fmt.Errorf("open event file: %w", err)
			return
		}
		defer f.Close()

		err = scanEvents(f, func(ev *domain.Event) error {
			select {
			case events <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			errs <- err
		}
	}()

	return events, errs
}

// ReadEvents decodes and validates every JSON-lines event from r.
func ReadEvents(r io.Reader) ([]*domain.Event, error) {
	var out []*domain.Event
	err := scanEvents(r, func(ev *domain.Event) error {
		out = append(out, ev)
		return nil
	})
	return out, err
}

func scanEvents(r io.Reader, emit func(*domain.Event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		ev, err := DecodeEvent(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := emit(ev); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	return nil
}

// DecodeEvent decodes one JSON event and validates it.
func DecodeEvent(raw []byte) (*domain.Event, error) {
	var ev domain.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
