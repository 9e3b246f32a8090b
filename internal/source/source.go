// Package source provides the record producers that feed a scan.
// Each source type is a strategy registered under its SourceType.
package source

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/storage-analysis/internal/queue"
	apperrors "github.com/storage-analysis/pkg/errors"
	"github.com/storage-analysis/pkg/utils"
)

// SourceType names a record source strategy.
type SourceType string

// RecordSource streams the records of one snapshot into a queue.
type RecordSource interface {
	// Type returns the strategy type.
	Type() SourceType

	// Name returns the instance name, usually the network name.
	Name() string

	// Produce pushes every record into q and closes q before returning,
	// whether or not it succeeded.
	Produce(ctx context.Context, q *queue.Queue) error

	// Close releases any resources held by the source.
	Close() error
}

// SourceConfig holds the configuration for a record source.
type SourceConfig struct {
	Type    SourceType             `yaml:"type" mapstructure:"type"`
	Name    string                 `yaml:"name" mapstructure:"name"`
	Path    string                 `yaml:"path" mapstructure:"path"`
	Options map[string]interface{} `yaml:"options" mapstructure:"options"`

	Logger utils.Logger `yaml:"-" mapstructure:"-"`
}

// GetString retrieves a string option with a default value.
func (c *SourceConfig) GetString(key, defaultValue string) string {
	if v, ok := c.Options[key].(string); ok {
		return v
	}
	return defaultValue
}

// GetInt retrieves an int option with a default value.
func (c *SourceConfig) GetInt(key string, defaultValue int) int {
	switch v := c.Options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultValue
}

// GetBool retrieves a bool option with a default value.
func (c *SourceConfig) GetBool(key string, defaultValue bool) bool {
	if v, ok := c.Options[key].(bool); ok {
		return v
	}
	return defaultValue
}

func (c *SourceConfig) logger() utils.Logger {
	if c.Logger == nil {
		return &utils.NullLogger{}
	}
	return c.Logger
}

func (c *SourceConfig) name() string {
	if c.Name != "" {
		return c.Name
	}
	return NetworkName(c.Path)
}

// NetworkName derives a network name from a snapshot path: the base name
// without its last extension.
func NetworkName(path string) string {
	base := filepath.Base(strings.TrimRight(path, "/"))
	if base == "." || base == "/" {
		return "unknown"
	}
	if ext := filepath.Ext(base); ext != "" && ext != base {
		return strings.TrimSuffix(base, ext)
	}
	return base
}

// SourceCreator creates a RecordSource from configuration.
type SourceCreator func(cfg *SourceConfig) (RecordSource, error)

var (
	registry   = make(map[SourceType]SourceCreator)
	registryMu sync.RWMutex
)

// Register registers a creator for a source type. Strategies call it from init.
func Register(sourceType SourceType, creator SourceCreator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[sourceType] = creator
}

// IsRegistered checks if a source type is registered.
func IsRegistered(sourceType SourceType) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, exists := registry[sourceType]
	return exists
}

// RegisteredTypes returns all registered source types, sorted.
func RegisteredTypes() []SourceType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]SourceType, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Create builds a RecordSource from configuration.
func Create(cfg *SourceConfig) (RecordSource, error) {
	registryMu.RLock()
	creator, exists := registry[cfg.Type]
	registryMu.RUnlock()

	if !exists {
		return nil, apperrors.Newf(apperrors.CodeConfigError, "unknown source type: %s (registered types: %v)", cfg.Type, RegisteredTypes())
	}

	src, err := creator(cfg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSourceError, fmt.Sprintf("create %s source", cfg.Type), err)
	}
	return src, nil
}
