package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Preset is the persisted text style. The file format follows the extension:
// .yaml/.yml, .toml or .json.
type Preset struct {
	Text       string `yaml:"text" toml:"text" json:"text"`
	Font       string `yaml:"font" toml:"font" json:"font"`
	Size       int    `yaml:"size" toml:"size" json:"size"`
	Color      string `yaml:"color" toml:"color" json:"color"`
	Anchor     string `yaml:"anchor" toml:"anchor" json:"anchor"`
	Margin     int    `yaml:"margin" toml:"margin" json:"margin"`
	UseMargin  bool   `yaml:"use_margin" toml:"use_margin" json:"use_margin"`
	ExifDate   bool   `yaml:"exif_date,omitempty" toml:"exif_date,omitempty" json:"exif_date,omitempty"`
	DateLayout string `yaml:"date_layout,omitempty" toml:"date_layout,omitempty" json:"date_layout,omitempty"`
}

var presetKeys = map[string]bool{
	"text": true, "font": true, "size": true, "color": true, "anchor": true,
	"margin": true, "use_margin": true, "exif_date": true, "date_layout": true,
}

// Key names used by presets saved from the desktop version of the tool.
var legacyKeys = map[string]string{
	"texto":       "text",
	"fuente":      "font",
	"tam":         "size",
	"pos":         "anchor",
	"margen":      "margin",
	"usar_margen": "use_margin",
}

type presetFormat int

const (
	formatYAML presetFormat = iota
	formatTOML
	formatJSON
)

func formatFor(path string) (presetFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	case ".json":
		return formatJSON, nil
	default:
		return 0, fmt.Errorf("preset %s: unsupported extension (want .yaml, .toml or .json)", path)
	}
}

// Marshal encodes p in the format matching path.
func (p Preset) Marshal(path string) ([]byte, error) {
	format, err := formatFor(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case formatYAML:
		return yaml.Marshal(p)
	case formatTOML:
		return toml.Marshal(p)
	default:
		data, err := json.MarshalIndent(p, "", "    ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}

// SavePreset writes p to path.
func SavePreset(path string, p Preset) error {
	data, err := p.Marshal(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save preset: %w", err)
	}
	return nil
}

// ReadPreset decodes a preset file into configuration keys ready to merge
// over the config file layer. Only keys present in the file are returned.
func ReadPreset(path string) (map[string]any, error) {
	format, err := formatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}

	raw := map[string]any{}
	switch format {
	case formatYAML:
		err = yaml.Unmarshal(data, &raw)
	case formatTOML:
		err = toml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("decode preset %s: %w", path, err)
	}
	return normalizePreset(path, raw)
}

func normalizePreset(path string, raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	var unknown []string
	for k, v := range raw {
		key := strings.ToLower(k)
		if mapped, ok := legacyKeys[key]; ok {
			key = mapped
		}
		if !presetKeys[key] {
			unknown = append(unknown, k)
			continue
		}
		if key == "color" {
			c, err := colorValue(v)
			if err != nil {
				return nil, fmt.Errorf("preset %s: %w", path, err)
			}
			v = c
		}
		out[key] = v
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("preset %s: unknown keys %s", path, strings.Join(unknown, ", "))
	}
	return out, nil
}

// colorValue accepts a color string or an [r, g, b] list.
func colorValue(v any) (string, error) {
	switch c := v.(type) {
	case string:
		return c, nil
	case []any:
		if len(c) != 3 {
			return "", fmt.Errorf("color: want 3 channels, got %d", len(c))
		}
		parts := make([]string, 3)
		for i, ch := range c {
			switch n := ch.(type) {
			case int:
				parts[i] = fmt.Sprint(n)
			case int64:
				parts[i] = fmt.Sprint(n)
			case float64:
				parts[i] = fmt.Sprint(int(n))
			default:
				return "", fmt.Errorf("color: channel %d has type %T", i, ch)
			}
		}
		return strings.Join(parts, ","), nil
	default:
		return "", fmt.Errorf("color: unsupported value %v", v)
	}
}
