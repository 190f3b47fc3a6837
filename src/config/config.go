// Package config loads run configuration from YAML, environment variables and CLI flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

// DefaultFilePrefix is the fixed part of every sample file name before the identifier.
const DefaultFilePrefix = "RcpNo=1(Hp-R)_ElmNo="

// Config holds all pipeline settings.
type Config struct {
	CSVDir     string `yaml:"csv_dir"`
	FilePrefix string `yaml:"file_prefix"`
	Encoding   string `yaml:"encoding"` // auto, cp932, utf-8

	XColumn  string `yaml:"x_column"`
	YColumn1 string `yaml:"y_column1"`
	YColumn2 string `yaml:"y_column2"`
	FigSize  string `yaml:"figsize"` // "<width>x<height>" in pixels

	SavePath       string `yaml:"save_path"`
	ChartsPerImage int    `yaml:"charts_per_image"`
	ElmNoMax       int    `yaml:"elm_no_max"`

	// Grid overrides; 0 picks the smallest near-square grid.
	GridRows   int  `yaml:"grid_rows"`
	GridCols   int  `yaml:"grid_cols"`
	LabelCells bool `yaml:"label_cells"`

	Gallery GalleryConfig `yaml:"gallery"`

	Workers     int    `yaml:"workers"`
	FeaturesDB  string `yaml:"features_db"`
	SummaryXLSX string `yaml:"summary_xlsx"`
	LogLevel    string `yaml:"log_level"`
}

// GalleryConfig configures the HTML gallery.
type GalleryConfig struct {
	Columns int    `yaml:"columns"`
	MaxSize int    `yaml:"max_size"`
	Title   string `yaml:"title"`
}

// DefaultConfig returns the stock settings.
func DefaultConfig() *Config {
	return &Config{
		CSVDir:         ".",
		FilePrefix:     DefaultFilePrefix,
		Encoding:       "auto",
		XColumn:        "H(kOe)",
		YColumn1:       "Rh(Ω)",
		YColumn2:       "dRh/dH(mΩ/Oe)",
		FigSize:        "800x800",
		SavePath:       "gallery.html",
		ChartsPerImage: 9,
		ElmNoMax:       900,
		Gallery: GalleryConfig{
			Columns: 10,
			MaxSize: 1000,
			Title:   "Hysteresis gallery",
		},
		Workers:  1,
		LogLevel: "info",
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	str := map[string]*string{
		"CSV_DIR":   &c.CSVDir,
		"X_COLUMN":  &c.XColumn,
		"Y_COLUMN1": &c.YColumn1,
		"Y_COLUMN2": &c.YColumn2,
		"FIGSIZE":   &c.FigSize,
		"SAVE_PATH": &c.SavePath,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	ints := map[string]*int{
		"CHARTS_PER_IMAGE": &c.ChartsPerImage,
		"ELM_NO_MAX":       &c.ElmNoMax,
		"GALLERY_COLUMNS":  &c.Gallery.Columns,
		"GALLERY_MAX_SIZE": &c.Gallery.MaxSize,
		"HYSTAN_WORKERS":   &c.Workers,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", types.ErrConfig, key, v)
		}
		*dst = n
	}
	return nil
}

// Validate checks ranges and formats.
func (c *Config) Validate() error {
	if c.ElmNoMax < 1 {
		return fmt.Errorf("%w: elm_no_max must be >= 1, got %d", types.ErrConfig, c.ElmNoMax)
	}
	if c.ChartsPerImage < 1 {
		return fmt.Errorf("%w: charts_per_image must be >= 1, got %d", types.ErrConfig, c.ChartsPerImage)
	}
	if c.GridRows < 0 || c.GridCols < 0 {
		return fmt.Errorf("%w: grid rows/cols must not be negative", types.ErrConfig)
	}
	if c.GridRows > 0 && c.GridCols > 0 && c.GridRows*c.GridCols < c.ChartsPerImage {
		return fmt.Errorf("%w: grid %dx%d cannot hold %d charts", types.ErrConfig, c.GridRows, c.GridCols, c.ChartsPerImage)
	}
	if _, _, err := ParseFigSize(c.FigSize); err != nil {
		return err
	}
	if c.Gallery.Columns < 1 || c.Gallery.MaxSize < 1 {
		return fmt.Errorf("%w: gallery columns and max_size must be >= 1", types.ErrConfig)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", types.ErrConfig, c.Workers)
	}
	switch strings.ToLower(c.Encoding) {
	case "auto", "cp932", "shift_jis", "sjis", "utf-8", "utf8":
	default:
		return fmt.Errorf("%w: unknown encoding %q", types.ErrConfig, c.Encoding)
	}
	for name, v := range map[string]string{"x_column": c.XColumn, "y_column1": c.YColumn1, "y_column2": c.YColumn2, "save_path": c.SavePath, "file_prefix": c.FilePrefix} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s must not be empty", types.ErrConfig, name)
		}
	}
	return nil
}

// ParseFigSize parses "800x800" (also "800X800" or "800,800") into pixel dimensions.
func ParseFigSize(s string) (int, int, error) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, "xX,")
	if sep < 0 {
		return 0, 0, fmt.Errorf("%w: figsize %q, want <width>x<height>", types.ErrConfig, s)
	}
	w, errW := strconv.Atoi(strings.TrimSpace(s[:sep]))
	h, errH := strconv.Atoi(strings.TrimSpace(s[sep+1:]))
	if errW != nil || errH != nil || w < 1 || h < 1 {
		return 0, 0, fmt.Errorf("%w: figsize %q, want positive <width>x<height>", types.ErrConfig, s)
	}
	return w, h, nil
}
