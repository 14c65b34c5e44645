package protocol

import (
	"fmt"

	"github.com/thingforge/thingforge/internal/thing"
)

// ProgressBarID lets the foreground drive several progress indicators at
// once.
type ProgressBarID uint8

const (
	BarDefault ProgressBarID = iota
	BarMetadata
	BarSprites
	BarFind
	BarOptimize
)

var barNames = [...]string{"default", "metadata", "sprites", "find", "optimize"}

func (b ProgressBarID) String() string {
	if int(b) < len(barNames) {
		return barNames[b]
	}
	return fmt.Sprintf("bar(%d)", uint8(b))
}

func (b ProgressBarID) MarshalText() ([]byte, error) {
	if int(b) >= len(barNames) {
		return nil, fmt.Errorf("unknown progress bar %d", uint8(b))
	}
	return []byte(b.String()), nil
}

func (b *ProgressBarID) UnmarshalText(text []byte) error {
	for i, name := range barNames {
		if name == string(text) {
			*b = ProgressBarID(i)
			return nil
		}
	}
	return fmt.Errorf("unknown progress bar %q", text)
}

// Level is the severity of a log notification.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("LEVEL(%d)", uint8(l))
}

func (l Level) MarshalText() ([]byte, error) {
	if int(l) >= len(levelNames) {
		return nil, fmt.Errorf("unknown level %d", uint8(l))
	}
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	for i, name := range levelNames {
		if name == string(text) {
			*l = Level(i)
			return nil
		}
	}
	return fmt.Errorf("unknown level %q", text)
}

// Result answers one request.
type Result struct {
	RequestID string `json:"requestId"`
	Request   Kind   `json:"request"`
	Value     any    `json:"value,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

// Failed reports whether the request ended in an error.
func (r Result) Failed() bool { return r.Error != "" }

// Progress reports the advance of a long operation.
type Progress struct {
	Bar   ProgressBarID `json:"bar"`
	Value int           `json:"value"`
	Total int           `json:"total"`
	Label string        `json:"label,omitempty"`
}

// Log carries a message for the foreground log view.
type Log struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
	Source  string `json:"source,omitempty"`
}

// StorageEventKind tells what changed in the project store.
type StorageEventKind string

const (
	StorageLoaded   StorageEventKind = "loaded"
	StorageUnloaded StorageEventKind = "unloaded"
	StorageCompiled StorageEventKind = "compiled"
	StorageAdded    StorageEventKind = "added"
	StorageChanged  StorageEventKind = "changed"
	StorageRemoved  StorageEventKind = "removed"
)

// StorageEvent announces a change of things or sprites. A zero Category
// refers to sprites or to the project as a whole.
type StorageEvent struct {
	Event    StorageEventKind `json:"event"`
	Category thing.Category   `json:"category,omitempty"`
	IDs      []uint32         `json:"ids,omitempty"`
}

func (Result) Kind() Kind       { return KindResult }
func (Progress) Kind() Kind     { return KindProgress }
func (Log) Kind() Kind          { return KindLog }
func (StorageEvent) Kind() Kind { return KindStorage }
