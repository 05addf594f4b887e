package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fechador/internal/stamp"
)

// Config is the effective configuration of a run.
type Config struct {
	Text       string   `mapstructure:"text"`
	Font       string   `mapstructure:"font"`
	Size       int      `mapstructure:"size"`
	Color      string   `mapstructure:"color"`
	Anchor     string   `mapstructure:"anchor"`
	Margin     int      `mapstructure:"margin"`
	UseMargin  bool     `mapstructure:"use_margin"`
	ExifDate   bool     `mapstructure:"exif_date"`
	DateLayout string   `mapstructure:"date_layout"`
	FontDirs   []string `mapstructure:"font_dirs"`

	Turbo       bool   `mapstructure:"turbo"`
	Parallelism int    `mapstructure:"parallelism"`
	Output      string `mapstructure:"output"`
	Recursive   bool   `mapstructure:"recursive"`
	Preset      string `mapstructure:"preset"`
	MetricsFile string `mapstructure:"metrics_file"`

	Log LogConfig `mapstructure:"log"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Validate checks everything that can be checked without touching images.
func (c *Config) Validate() error {
	style, err := c.Style()
	if err != nil {
		return err
	}
	if err := style.Validate(); err != nil {
		return err
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism must not be negative, got %d", c.Parallelism)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log format: unsupported value %q", c.Log.Format)
	}
	return nil
}

// Style converts the text settings into a stamp.Style.
func (c *Config) Style() (stamp.Style, error) {
	rgb, err := stamp.ParseColor(c.Color)
	if err != nil {
		return stamp.Style{}, err
	}
	anchor, err := stamp.ParseAnchor(c.Anchor)
	if err != nil {
		return stamp.Style{}, err
	}
	return stamp.Style{
		Text:         c.Text,
		Font:         c.Font,
		Size:         c.Size,
		Color:        rgb,
		Anchor:       anchor,
		Margin:       c.Margin,
		UseMargin:    c.UseMargin,
		DateFromExif: c.ExifDate,
		DateLayout:   c.DateLayout,
	}, nil
}

// Fonts returns the font resolver for the configured directories, with a
// leading "~/" expanded.
func (c *Config) Fonts() stamp.Fonts {
	dirs := make([]string, 0, len(c.FontDirs))
	for _, d := range c.FontDirs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if strings.HasPrefix(d, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				d = filepath.Join(home, d[2:])
			}
		}
		dirs = append(dirs, d)
	}
	return stamp.Fonts{Dirs: dirs}
}

// StylePreset extracts the persisted subset of c. Color and anchor are written in
// canonical form when they parse.
func (c *Config) StylePreset() Preset {
	p := Preset{
		Text:       c.Text,
		Font:       c.Font,
		Size:       c.Size,
		Color:      c.Color,
		Anchor:     c.Anchor,
		Margin:     c.Margin,
		UseMargin:  c.UseMargin,
		ExifDate:   c.ExifDate,
		DateLayout: c.DateLayout,
	}
	if rgb, err := stamp.ParseColor(c.Color); err == nil {
		p.Color = rgb.String()
	}
	if a, err := stamp.ParseAnchor(c.Anchor); err == nil {
		p.Anchor = a.String()
	}
	return p
}
