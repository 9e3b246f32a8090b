package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is one timed step of a run (load schema, build index, scan, ...).
type Phase struct {
	Name     string
	Start    time.Time
	Duration time.Duration
	done     bool
}

// PhaseTimer stops a single phase; meant for use with defer.
type PhaseTimer struct {
	timer *Timer
	name  string
}

// Stop records the phase duration. Only the first call has effect.
func (pt *PhaseTimer) Stop() time.Duration {
	return pt.timer.stop(pt.name)
}

// Timer records the duration of sequential run phases.
type Timer struct {
	mu     sync.Mutex
	name   string
	clock  Clock
	logger Logger
	start  time.Time
	phases []*Phase
	byName map[string]*Phase
}

// TimerOption configures a Timer instance.
type TimerOption func(*Timer)

// WithLogger sets the logger LogSummary writes to.
func WithLogger(logger Logger) TimerOption {
	return func(t *Timer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithClock sets a custom clock.
func WithClock(clock Clock) TimerOption {
	return func(t *Timer) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// NewTimer creates a new Timer with the given name and options.
func NewTimer(name string, opts ...TimerOption) *Timer {
	t := &Timer{
		name:   name,
		clock:  NewRealClock(),
		logger: &NullLogger{},
		byName: make(map[string]*Phase),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.start = t.clock.Now()
	return t
}

// Start begins timing a phase. Restarting a name replaces the earlier entry.
func (t *Timer) Start(name string) *PhaseTimer {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := &Phase{Name: name, Start: t.clock.Now()}
	if _, exists := t.byName[name]; !exists {
		t.phases = append(t.phases, p)
	} else {
		for i, old := range t.phases {
			if old.Name == name {
				t.phases[i] = p
			}
		}
	}
	t.byName[name] = p

	return &PhaseTimer{timer: t, name: name}
}

func (t *Timer) stop(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.byName[name]
	if !ok {
		return 0
	}
	if !p.done {
		p.Duration = t.clock.Since(p.Start)
		p.done = true
	}
	return p.Duration
}

// Time runs fn as a named phase and returns its error.
func (t *Timer) Time(name string, fn func() error) error {
	pt := t.Start(name)
	defer pt.Stop()
	return fn()
}

// Duration returns the recorded duration of a phase.
func (t *Timer) Duration(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.byName[name]; ok {
		return p.Duration
	}
	return 0
}

// Phases returns copies of all phases in start order.
func (t *Timer) Phases() []Phase {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Phase, 0, len(t.phases))
	for _, p := range t.phases {
		out = append(out, *p)
	}
	return out
}

// Total returns the time elapsed since the timer was created.
func (t *Timer) Total() time.Duration {
	return t.clock.Since(t.start)
}

// Summary renders all phases, one per line.
func (t *Timer) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s timing ===\n", t.name)
	for i, p := range t.Phases() {
		fmt.Fprintf(&sb, "%d. %s: %v\n", i+1, p.Name, p.Duration)
	}
	fmt.Fprintf(&sb, "Total: %v\n", t.Total())
	return sb.String()
}

// LogSummary writes each summary line at debug level.
func (t *Timer) LogSummary() {
	for _, line := range strings.Split(strings.TrimSpace(t.Summary()), "\n") {
		t.logger.Debug("%s", line)
	}
}

// ToMap returns the timing data for JSON reports.
func (t *Timer) ToMap() map[string]interface{} {
	phases := t.Phases()
	list := make([]map[string]interface{}, 0, len(phases))
	for _, p := range phases {
		list = append(list, map[string]interface{}{
			"name": p.Name,
			"ms":   p.Duration.Milliseconds(),
		})
	}
	return map[string]interface{}{
		"name":     t.name,
		"total_ms": t.Total().Milliseconds(),
		"phases":   list,
	}
}
