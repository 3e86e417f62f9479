package patterns

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MirrorFunc receives a copy of every appended event. It is invoked
// fire-and-forget; a failing mirror never blocks or fails the append.
type MirrorFunc func(Event)

// Spool is the append side of the event log. Any number of Spools (in any
// number of processes) may append to the same path concurrently; appends
// are single O_APPEND writes so lines never interleave.
type Spool struct {
	path   string
	mirror MirrorFunc
}

// NewSpool returns a Spool writing to path. mirror may be nil.
func NewSpool(path string, mirror MirrorFunc) *Spool {
	return &Spool{path: path, mirror: mirror}
}

// Path returns the spool file path.
func (sp *Spool) Path() string {
	return sp.path
}

// Append writes one event as an NDJSON line.
func (sp *Spool) Append(ev Event) error {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("spool: encode event: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(sp.path), 0700); err != nil {
		return fmt.Errorf("spool: create dir: %w", err)
	}
	f, err := os.OpenFile(sp.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("spool: open: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("spool: write: %w", err)
	}

	if sp.mirror != nil {
		go sp.mirror(ev)
	}
	return nil
}

// collectSpool claims the spool file by renaming it to a
// processing-specific path, parses its events, and deletes the renamed
// file. A missing spool yields zero events. Late appenders simply create
// a fresh spool at the original path, so no writer's bytes are lost.
// Malformed lines are counted as processed but skipped.
func collectSpool(path string) ([]Event, int, error) {
	processing := fmt.Sprintf("%s.processing.%d.%d", path, os.Getpid(), time.Now().UnixNano())
	if err := os.Rename(path, processing); err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("spool: rotate: %w", err)
	}
	defer os.Remove(processing)

	f, err := os.Open(processing)
	if err != nil {
		return nil, 0, fmt.Errorf("spool: open rotated: %w", err)
	}
	defer f.Close()

	var events []Event
	lines := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		lines++
		var ev Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return events, lines, fmt.Errorf("spool: read rotated: %w", err)
	}
	return events, lines, nil
}
