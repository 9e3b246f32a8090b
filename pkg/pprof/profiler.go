package pprof

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sort"
	"sync"

	"github.com/storage-analysis/pkg/utils"
)

// Profiler records a CPU profile between Start and Stop, and snapshots the
// other requested profiles at Stop.
type Profiler struct {
	config *Config
	logger utils.Logger
	clock  utils.Clock

	mu      sync.Mutex
	running bool
	cpuFile *os.File
	cpuPath string
}

// Option configures a Profiler.
type Option func(*Profiler)

// WithLogger sets the logger.
func WithLogger(logger utils.Logger) Option {
	return func(p *Profiler) { p.logger = logger }
}

// WithClock sets the clock used to name profile files.
func WithClock(clock utils.Clock) Option {
	return func(p *Profiler) { p.clock = clock }
}

// New creates a Profiler. A nil config uses DefaultConfig.
func New(cfg *Config, opts ...Option) (*Profiler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p := &Profiler{
		config: cfg,
		logger: &utils.NullLogger{},
		clock:  utils.NewRealClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start creates the output directories and begins CPU profiling.
func (p *Profiler) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("profiler is already running")
	}

	for _, pt := range p.config.Profiles {
		dir := filepath.Join(p.config.OutputDir, string(pt))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create profile directory %s: %w", pt, err)
		}
	}

	if p.config.HasProfile(ProfileBlock) {
		runtime.SetBlockProfileRate(1)
	}
	if p.config.HasProfile(ProfileMutex) {
		runtime.SetMutexProfileFraction(1)
	}

	if p.config.HasProfile(ProfileCPU) {
		path := p.path(ProfileCPU)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			os.Remove(path)
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		p.cpuFile = f
		p.cpuPath = path
	}

	p.running = true
	p.logger.Debug("Profiling started (%v) into %s", p.config.Profiles, p.config.OutputDir)
	return nil
}

// Stop ends CPU profiling, writes the remaining profiles and returns the
// paths of every file written. Failures on single profiles are logged and
// do not stop the others.
func (p *Profiler) Stop() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil, nil
	}
	p.running = false

	var written []string
	var firstErr error

	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := p.cpuFile.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close CPU profile: %w", err)
		} else {
			written = append(written, p.cpuPath)
		}
		p.cpuFile = nil
	}

	for _, pt := range p.config.Profiles {
		if pt == ProfileCPU {
			continue
		}
		path, err := p.snapshot(pt)
		if err != nil {
			p.logger.Warn("Failed to write %s profile: %v", pt, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		written = append(written, path)
	}

	runtime.SetBlockProfileRate(0)
	runtime.SetMutexProfileFraction(0)

	for _, pt := range p.config.Profiles {
		if err := p.rotate(pt); err != nil {
			p.logger.Warn("Failed to rotate %s profiles: %v", pt, err)
		}
	}

	return written, firstErr
}

// Running reports whether Start has been called without a matching Stop.
func (p *Profiler) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Profiler) path(pt ProfileType) string {
	name := fmt.Sprintf("%s_%s.pprof", pt, p.clock.Now().Format("20060102_150405"))
	return filepath.Join(p.config.OutputDir, string(pt), name)
}

func (p *Profiler) snapshot(pt ProfileType) (string, error) {
	prof := pprof.Lookup(string(pt))
	if prof == nil {
		return "", fmt.Errorf("%s profile not found", pt)
	}
	if pt == ProfileHeap {
		runtime.GC()
	}

	path := p.path(pt)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := prof.WriteTo(f, 0); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// rotate removes the oldest files of a profile type beyond MaxFiles.
func (p *Profiler) rotate(pt ProfileType) error {
	if p.config.MaxFiles <= 0 {
		return nil
	}

	dir := filepath.Join(p.config.OutputDir, string(pt))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".pprof" {
			names = append(names, entry.Name())
		}
	}
	// Names embed the timestamp, so lexical order is age order.
	sort.Strings(names)

	for len(names) > p.config.MaxFiles {
		if err := os.Remove(filepath.Join(dir, names[0])); err != nil {
			return fmt.Errorf("failed to remove old file %s: %w", names[0], err)
		}
		names = names[1:]
	}
	return nil
}
