package events

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/minutesapp/minutes-pipeline/webhook/payload"
	"gopkg.in/yaml.v3"
)

/* Loader manages the supported-event registry from events.yaml
 * Provides in-memory lookup for fast access
 */

// Config represents the structure of events.yaml
type Config struct {
	Events []EventConfig `yaml:"events"`
}

// EventConfig represents a single event registration in the YAML file
type EventConfig struct {
	EventType             string `yaml:"event_type"`
	Enabled               bool   `yaml:"enabled"`
	TranscriptWaitSeconds int    `yaml:"transcript_wait_seconds"` // Optional: override pipeline default
	MaxRetries            *int   `yaml:"max_retries"`             // Optional: override pipeline default
}

// Loader holds the loaded registrations
type Loader struct {
	regs map[string]*Registration
}

// NewLoader creates a loader pre-seeded with the default registrations,
// so a deployment without an events.yaml still handles meeting-ended
func NewLoader() *Loader {
	l := &Loader{
		regs: make(map[string]*Registration),
	}
	l.regs[payload.MeetingEnded] = &Registration{
		EventType: payload.MeetingEnded,
		Enabled:   true,
	}
	return l
}

// Load reads and parses the events.yaml file, replacing the defaults
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading events file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing events YAML: %w", err)
	}

	regs := make(map[string]*Registration, len(config.Events))
	for _, ec := range config.Events {
		reg := &Registration{
			EventType:      ec.EventType,
			Enabled:        ec.Enabled,
			TranscriptWait: time.Duration(ec.TranscriptWaitSeconds) * time.Second,
			MaxRetries:     ec.MaxRetries,
		}

		if err := reg.Validate(); err != nil {
			return fmt.Errorf("validating event registration: %w", err)
		}

		regs[reg.EventType] = reg
	}

	l.regs = regs
	return nil
}

// Get retrieves a registration by event type
func (l *Loader) Get(eventType string) (*Registration, error) {
	reg, exists := l.regs[eventType]
	if !exists {
		return nil, fmt.Errorf("event type not registered: %s", eventType)
	}
	return reg, nil
}

// List returns all loaded registrations
func (l *Loader) List() []*Registration {
	regs := make([]*Registration, 0, len(l.regs))
	for _, reg := range l.regs {
		regs = append(regs, reg)
	}
	return regs
}

// Exists checks if an event type is registered
func (l *Loader) Exists(eventType string) bool {
	_, exists := l.regs[eventType]
	return exists
}

// Supported returns the enabled event types in stable order,
// for the health endpoint
func (l *Loader) Supported() []string {
	types := make([]string, 0, len(l.regs))
	for _, reg := range l.regs {
		if reg.Enabled {
			types = append(types, reg.EventType)
		}
	}
	sort.Strings(types)
	return types
}
