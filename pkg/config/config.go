// Package config loads the gpv settings file. The JSON layout is the one the
// app has always used (settings.json); a YAML twin (settings.yaml) is
// accepted as well.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks configuration that parsed but cannot be used.
var ErrInvalid = errors.New("config: invalid configuration")

// DefaultAPIURL is the public GitLab API endpoint.
const DefaultAPIURL = "https://gitlab.com/api/v4"

// Settings holds every recognized option.
type Settings struct {
	Debug               bool                `json:"debug" yaml:"debug"`
	GitLabAPIURL        string              `json:"gitlab_api_url" yaml:"gitlab_api_url"`
	GroupName           string              `json:"group_name" yaml:"group_name"`
	CacheRefreshSeconds int                 `json:"cache_refresh_seconds" yaml:"cache_refresh_seconds"`
	RefreshRateSeconds  int                 `json:"refresh_rate_seconds" yaml:"refresh_rate_seconds"`
	IgnoredGroups       []string            `json:"ignored_groups" yaml:"ignored_groups"`
	Branches            map[string][]string `json:"branches" yaml:"branches"`
	DarkMode            bool                `json:"dark_mode" yaml:"dark_mode"`
}

// Defaults returns the settings used when keys are absent.
func Defaults() Settings {
	return Settings{
		GitLabAPIURL:        DefaultAPIURL,
		CacheRefreshSeconds: 10 * 60,
		RefreshRateSeconds:  5 * 60,
		DarkMode:            true,
	}
}

// Load reads settings.json (preferred) or settings.yaml from dir. It returns
// the parsed settings and the path that was read; when neither file exists,
// the defaults are returned with an empty path and no error.
func Load(dir string) (Settings, string, error) {
	s := Defaults()

	jsonPath := filepath.Join(dir, "settings.json")
	if data, err := os.ReadFile(jsonPath); err == nil {
		if err := json.Unmarshal(data, &s); err != nil {
			return s, jsonPath, fmt.Errorf("%w: %s: %v", ErrInvalid, jsonPath, err)
		}
		return s, jsonPath, s.Validate()
	}

	yamlPath := filepath.Join(dir, "settings.yaml")
	if data, err := os.ReadFile(yamlPath); err == nil {
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, yamlPath, fmt.Errorf("%w: %s: %v", ErrInvalid, yamlPath, err)
		}
		return s, yamlPath, s.Validate()
	}

	return s, "", nil
}

// LoadFile reads one specific settings file, choosing the codec by
// extension. Used by the hot-reload watcher.
func LoadFile(path string) (Settings, error) {
	s := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &s)
	default:
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return s, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	return s, s.Validate()
}

// Validate rejects settings the engine cannot run with.
func (s Settings) Validate() error {
	if s.GitLabAPIURL == "" {
		return fmt.Errorf("%w: gitlab_api_url must not be empty", ErrInvalid)
	}
	if s.CacheRefreshSeconds < 0 {
		return fmt.Errorf("%w: cache_refresh_seconds must not be negative", ErrInvalid)
	}
	if s.RefreshRateSeconds <= 0 {
		return fmt.Errorf("%w: refresh_rate_seconds must be positive", ErrInvalid)
	}
	return nil
}

// CacheRefresh is the snapshot staleness threshold.
func (s Settings) CacheRefresh() time.Duration {
	return time.Duration(s.CacheRefreshSeconds) * time.Second
}

// RefreshRate is the periodic refresh interval.
func (s Settings) RefreshRate() time.Duration {
	return time.Duration(s.RefreshRateSeconds) * time.Second
}

// IgnoredGroupSet returns the ignored group IDs as a set.
func (s Settings) IgnoredGroupSet() map[string]bool {
	set := make(map[string]bool, len(s.IgnoredGroups))
	for _, id := range s.IgnoredGroups {
		set[id] = true
	}
	return set
}
