// config loads the server configuration: a yaml file in a {kind, def} envelope, then
// .env and BRHEATMAP_* environment overrides on top.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"brheatmap/color_pool"
	"brheatmap/row_source"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Kind is the envelope kind of a server config file.
const Kind = "brheatmap"

// EnvPrefix prefixes the environment overrides, e.g. BRHEATMAP_PORT.
const EnvPrefix = "brheatmap"

// OuterConfig is the file envelope: a kind and a definition of that kind.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// BRRange is a bracket range selectable on the page, with its vertical axis bottom to top.
// Brackets must be quoted in yaml, or 1.0 reads as 1.
type BRRange struct {
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label"`
	Brackets []string `yaml:"brackets"`
}

// Config is the server configuration. Keys are snake_case since viper folds case.
type Config struct {
	Title    string `yaml:"title"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	// BaseURL is where the ranking csv files are published.
	BaseURL string `yaml:"base_url"`
	// DataDir, when set, serves the csv files from disk instead of BaseURL.
	DataDir      string        `yaml:"data_dir"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	Nations      []string      `yaml:"nations"`
	BRRanges     []BRRange     `yaml:"br_ranges"`
	Width        float64       `yaml:"width"`
	Height       float64       `yaml:"height"`
	Palette      []string      `yaml:"palette"`
}

// Addr is the listen address.
func (cfg *Config) Addr() string {
	return cfg.Host + ":" + cfg.Port
}

// Brackets maps each range name to its brackets.
func (cfg *Config) Brackets() map[string][]string {
	brackets := make(map[string][]string, len(cfg.BRRanges))
	for _, r := range cfg.BRRanges {
		brackets[r.Name] = r.Brackets
	}
	return brackets
}

// Level is the parsed log level; Validate rejects unparseable ones.
func (cfg *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Title:        "War Thunder BR heatmap",
		Port:         "8080",
		LogLevel:     "info",
		BaseURL:      row_source.DefaultBaseURL,
		FetchTimeout: 10 * time.Second,
		Nations: []string{
			"USA", "Germany", "USSR", "Britain", "Japan",
			"China", "Italy", "France", "Sweden", "Israel",
		},
		BRRanges: []BRRange{
			{Name: "0", Label: "whole brackets", Brackets: brackets(1.0, 12.0, []float64{0})},
			{Name: "1", Label: "fine brackets", Brackets: brackets(1.0, 12.0, []float64{0, 0.3, 0.7})},
		},
		Width:   600,
		Height:  600,
		Palette: color_pool.Category10,
	}
}

// brackets lists the battle ratings from lo to hi, taking each step within every whole number.
func brackets(lo, hi float64, steps []float64) (out []string) {
	for whole := lo; whole <= hi; whole++ {
		for _, step := range steps {
			if br := whole + step; br <= hi {
				out = append(out, fmt.Sprintf("%.1f", br))
			}
		}
	}
	return
}

var (
	ErrKind    error = errors.New("config kind mismatch")
	ErrInvalid error = errors.New("invalid config")
)

// FromYaml reads a config file. Fields the file omits keep their Default values.
func FromYaml(path string) (*Config, error) {
	vp := viper.New()
	vp.SetConfigFile(filepath.Clean(path))
	vp.SetConfigType("yaml")
	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, err
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, err
	}
	if outerConfig.Kind != Kind {
		return nil, fmt.Errorf("%w: %q, expected %q", ErrKind, outerConfig.Kind, Kind)
	}

	var raw []byte
	if raw, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, err
	}

	innerConfig := Default()
	if err = yaml.Unmarshal(raw, innerConfig); err != nil {
		return nil, err
	}
	return innerConfig, nil
}

// Load reads path, or the defaults when path is empty, then applies the environment.
// A missing .env file is not an error.
func Load(path string, logger zerolog.Logger) (cfg *Config, err error) {
	if path == "" {
		cfg = Default()
	} else if cfg, err = FromYaml(path); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or config")
	}
	ApplyEnv(cfg)

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("addr", cfg.Addr()).
		Str("base_url", cfg.BaseURL).
		Str("data_dir", cfg.DataDir).
		Str("log_level", cfg.LogLevel).
		Dur("fetch_timeout", cfg.FetchTimeout).
		Msg("configuration loaded")
	return cfg, nil
}

// ApplyEnv overrides cfg from BRHEATMAP_HOST, _PORT, _LOG_LEVEL, _BASE_URL and _DATA_DIR.
func ApplyEnv(cfg *Config) {
	env := viper.New()
	env.SetEnvPrefix(EnvPrefix)
	env.AutomaticEnv()

	for key, field := range map[string]*string{
		"host":      &cfg.Host,
		"port":      &cfg.Port,
		"log_level": &cfg.LogLevel,
		"base_url":  &cfg.BaseURL,
		"data_dir":  &cfg.DataDir,
	} {
		if v := env.GetString(key); v != "" {
			*field = v
		}
	}
}

// Validate checks the fields the heatmap cannot run without.
func (cfg *Config) Validate() error {
	switch {
	case len(cfg.Nations) == 0:
		return fmt.Errorf("%w: no nations", ErrInvalid)
	case len(cfg.BRRanges) == 0:
		return fmt.Errorf("%w: no bracket ranges", ErrInvalid)
	case cfg.Width <= 0 || cfg.Height <= 0:
		return fmt.Errorf("%w: size %vx%v", ErrInvalid, cfg.Width, cfg.Height)
	case len(cfg.Palette) == 0:
		return fmt.Errorf("%w: empty palette", ErrInvalid)
	case cfg.Port == "":
		return fmt.Errorf("%w: no port", ErrInvalid)
	}
	for _, r := range cfg.BRRanges {
		if r.Name == "" || len(r.Brackets) == 0 {
			return fmt.Errorf("%w: bracket range %q has no brackets", ErrInvalid, r.Name)
		}
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
