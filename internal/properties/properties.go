// Package properties resolves the layered configuration of the application
// and keeps runtime-set values apart from file-sourced ones.
package properties

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
	"gopkg.in/yaml.v3"
)

// PropertyNotFoundError is returned by Get for unknown keys.
type PropertyNotFoundError struct {
	Key string
}

func (e *PropertyNotFoundError) Error() string {
	return fmt.Sprintf("property %q not found", e.Key)
}

type Options struct {
	// Directory holds main.yml, common.yml and <environment>.yml.
	Directory string
	// Defaults is the lowest layer. Defaults() is used when nil.
	Defaults map[string]interface{}
	// LookupEnv resolves environment variables. os.LookupEnv when nil.
	LookupEnv func(key string) (string, bool)
}

type Properties struct {
	options     Options
	mu          sync.RWMutex
	config      map[string]interface{}
	runtime     map[string]interface{}
	environment string
}

// Load resolves defaults, the YAML files of options.Directory and
// environment variable overrides.
func Load(options Options) (*Properties, error) {
	if options.Directory == "" {
		options.Directory = DefaultDirectory
	}
	if options.Defaults == nil {
		options.Defaults = Defaults()
	}
	if options.LookupEnv == nil {
		options.LookupEnv = os.LookupEnv
	}

	p := &Properties{
		options: options,
		runtime: map[string]interface{}{},
	}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads every file and environment variable. Runtime values set
// through Set are kept.
func (p *Properties) Reload() error {
	config := DeepMerge(map[string]interface{}{}, p.options.Defaults)
	for _, name := range []string{"main.yml", "common.yml"} {
		if err := mergeFile(config, filepath.Join(p.options.Directory, name)); err != nil {
			return err
		}
	}

	environment := strings.ToLower(fmt.Sprint(config["environment"]))
	if value, ok := p.options.LookupEnv("ENVIRONMENT"); ok && value != "" {
		environment = strings.ToLower(value)
	}
	switch environment {
	case EnvironmentProduction, EnvironmentStaging, EnvironmentDevelopment:
	default:
		return fmt.Errorf("unknown environment %q", environment)
	}
	if err := mergeFile(config, filepath.Join(p.options.Directory, environment+".yml")); err != nil {
		return err
	}
	for _, path := range LeafPaths(config) {
		if value, ok := p.lookupEnv(path); ok {
			DeepSet(config, path, value)
		}
	}
	config["environment"] = environment

	p.mu.Lock()
	p.config = config
	p.environment = environment
	p.mu.Unlock()

	logger.LogDebugf("Configuration loaded for environment %q", environment)
	return nil
}

func mergeFile(config map[string]interface{}, path string) error {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.LogDebugf("Configuration file %s not found, skipping", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var layer map[string]interface{}
	if err = yaml.Unmarshal(content, &layer); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	DeepMerge(config, layer)
	return nil
}

// lookupEnv tries a.b.c as a_b_c and A_B_C.
func (p *Properties) lookupEnv(key string) (interface{}, bool) {
	name := strings.ReplaceAll(key, ".", "_")
	for _, candidate := range []string{name, strings.ToUpper(name)} {
		if value, ok := p.options.LookupEnv(candidate); ok {
			return parseScalar(value), true
		}
	}
	return nil, false
}

// parseScalar turns "true", "12" or "1.5" into typed values and keeps any
// other input as a string.
func parseScalar(value string) interface{} {
	var out interface{}
	if err := yaml.Unmarshal([]byte(value), &out); err != nil {
		return value
	}
	switch out.(type) {
	case bool, int, int64, float64:
		return out
	default:
		return value
	}
}

// Environment returns the resolved environment name.
func (p *Properties) Environment() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.environment
}

// Get resolves key from the runtime layer, then the configuration, then the
// environment. Maps and slices are returned as copies.
func (p *Properties) Get(key string) (interface{}, error) {
	p.mu.RLock()
	runtimeValue, inRuntime := DeepGet(p.runtime, key)
	configValue, inConfig := DeepGet(p.config, key)
	switch {
	case inRuntime:
		if runtimeMap, isMap := asMap(runtimeValue); isMap {
			if configMap, ok := asMap(configValue); inConfig && ok {
				merged := DeepMerge(DeepMerge(map[string]interface{}{}, configMap), runtimeMap)
				p.mu.RUnlock()
				return merged, nil
			}
		}
		value := deepCopy(runtimeValue)
		p.mu.RUnlock()
		return value, nil
	case inConfig:
		value := deepCopy(configValue)
		p.mu.RUnlock()
		return value, nil
	}
	p.mu.RUnlock()

	if value, ok := p.lookupEnv(key); ok {
		return value, nil
	}
	return nil, &PropertyNotFoundError{Key: key}
}

// GetOrDefault returns def when key cannot be resolved.
func (p *Properties) GetOrDefault(key string, def interface{}) interface{} {
	value, err := p.Get(key)
	if err != nil {
		return def
	}
	return value
}

// Set stores value in the runtime layer.
func (p *Properties) Set(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	DeepSet(p.runtime, key, value)
}

func (p *Properties) GetString(key, def string) string {
	value, err := p.Get(key)
	if err != nil || value == nil {
		return def
	}
	return fmt.Sprint(value)
}

func (p *Properties) GetInt(key string, def int) int {
	value, err := p.Get(key)
	if err != nil {
		return def
	}
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

func (p *Properties) GetBool(key string, def bool) bool {
	value, err := p.Get(key)
	if err != nil {
		return def
	}
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

// GetDuration reads numbers as seconds and strings as time.ParseDuration input.
func (p *Properties) GetDuration(key string, def time.Duration) time.Duration {
	value, err := p.Get(key)
	if err != nil {
		return def
	}
	switch v := value.(type) {
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case string:
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(v); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return def
}

// GetStringSlice accepts YAML lists and comma separated strings.
func (p *Properties) GetStringSlice(key string, def []string) []string {
	value, err := p.Get(key)
	if err != nil {
		return def
	}
	switch v := value.(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return v
	case string:
		var out []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	return def
}
