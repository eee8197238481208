package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	MinFontSize = 12
	MaxFontSize = 32

	MinContentPadding = 8
	MaxContentPadding = 64

	MinContentWidth = 600
	MaxContentWidth = 1600
)

// Source is one configured root directory.
type Source struct {
	Path    string `json:"path"`
	Enabled bool   `json:"enabled"`
}

// RootConfiguration is what the scanner and watcher read when they start.
type RootConfiguration struct {
	Sources    []Source `json:"sources"`
	Exclusions []string `json:"exclusions"`
}

type Settings struct {
	RootConfiguration
	Theme          string  `json:"theme"`
	FontSize       int     `json:"fontSize"`
	ContentPadding int     `json:"contentPadding"`
	ContentWidth   int     `json:"contentWidth"`
	LastOpenedFile *string `json:"lastOpenedFile"`
}

// ConfigDir returns the settings directory. MDINDEX_CONFIG_DIR overrides
// the default of ~/.config/mdindex.
func ConfigDir() (string, error) {
	if dir := os.Getenv("MDINDEX_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "mdindex"), nil
}

func settingsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.json"), nil
}

// DBPath is the location of the snapshot cache.
func DBPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache.db"), nil
}

func Load() (*Settings, error) {
	path, err := settingsPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads settings from path. A missing file yields the defaults.
func LoadFrom(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := DefaultSettings()
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg Settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

func (c *Settings) Save() error {
	path, err := settingsPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

func (c *Settings) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	data = append(data, '\n')
	return os.WriteFile(path, data, 0600)
}

// ApplyDefaults fills zero values. Sources and exclusions are left as
// loaded: an empty list is a valid user choice.
func (c *Settings) ApplyDefaults() {
	if c.Theme == "" {
		c.Theme = "system"
	}
	if c.FontSize == 0 {
		c.FontSize = 18
	}
	if c.ContentPadding == 0 {
		c.ContentPadding = 16
	}
	if c.ContentWidth == 0 {
		c.ContentWidth = 896
	}
}

// Validate checks the theme and the display ranges.
func (c *Settings) Validate() error {
	switch c.Theme {
	case "light", "dark", "system":
	default:
		return fmt.Errorf("invalid theme %q: must be light, dark or system", c.Theme)
	}
	if c.FontSize < MinFontSize || c.FontSize > MaxFontSize {
		return fmt.Errorf("font size %d out of range [%d, %d]", c.FontSize, MinFontSize, MaxFontSize)
	}
	if c.ContentPadding < MinContentPadding || c.ContentPadding > MaxContentPadding {
		return fmt.Errorf("content padding %d out of range [%d, %d]", c.ContentPadding, MinContentPadding, MaxContentPadding)
	}
	if c.ContentWidth < MinContentWidth || c.ContentWidth > MaxContentWidth {
		return fmt.Errorf("content width %d out of range [%d, %d]", c.ContentWidth, MinContentWidth, MaxContentWidth)
	}
	for _, s := range c.Sources {
		if s.Path == "" {
			return fmt.Errorf("source path must not be empty")
		}
	}
	return nil
}

// EnabledRoots returns the paths of enabled sources in order.
func (rc RootConfiguration) EnabledRoots() []string {
	var roots []string
	for _, s := range rc.Sources {
		if s.Enabled {
			roots = append(roots, s.Path)
		}
	}
	return roots
}

func (rc RootConfiguration) Clone() RootConfiguration {
	return RootConfiguration{
		Sources:    append([]Source(nil), rc.Sources...),
		Exclusions: append([]string(nil), rc.Exclusions...),
	}
}

func (c Settings) Clone() Settings {
	cp := c
	cp.RootConfiguration = c.RootConfiguration.Clone()
	if c.LastOpenedFile != nil {
		last := *c.LastOpenedFile
		cp.LastOpenedFile = &last
	}
	return cp
}

func DefaultSettings() Settings {
	return Settings{
		RootConfiguration: RootConfiguration{
			Sources: []Source{
				{Path: "~/Code", Enabled: true},
				{Path: "~/Notes", Enabled: true},
			},
			Exclusions: []string{"node_modules", ".git", "vendor", "dist", "build", "target"},
		},
		Theme:          "system",
		FontSize:       18,
		ContentPadding: 16,
		ContentWidth:   896,
	}
}
