// Package config holds the reconciler's settings.
//
// Matching settings are a plain value type: callers copy them into the engine
// and nothing mutates them afterwards. The surrounding Config adds server and
// logging options and can be loaded from YAML with RECON_* environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Matching controls scoring and assignment.
type Matching struct {
	// NameThreshold is the minimum total score for a pair to be assigned at all
	// (suggested or matched).
	NameThreshold int `yaml:"name_threshold" json:"name_threshold"`
	// AmountTolerance is the absolute difference treated as an exact amount match.
	AmountTolerance decimal.Decimal `yaml:"amount_tolerance" json:"amount_tolerance"`
	// AmountClosePercent and AmountNearPercent are the relative bands scoring 80 and 50.
	AmountClosePercent decimal.Decimal `yaml:"amount_close_percent" json:"amount_close_percent"`
	AmountNearPercent  decimal.Decimal `yaml:"amount_near_percent" json:"amount_near_percent"`
	DateRangeDays      int             `yaml:"date_range_days" json:"date_range_days"`
	AutoMatchThreshold int             `yaml:"auto_match_threshold" json:"auto_match_threshold"`
	PossibleMatchFloor int             `yaml:"possible_match_floor" json:"possible_match_floor"`
	MaxPossibleMatches int             `yaml:"max_possible_matches" json:"max_possible_matches"`
	// PrefilterByAmount skips scoring pairs outside the near-amount band.
	PrefilterByAmount bool `yaml:"prefilter_by_amount" json:"prefilter_by_amount"`
}

// DefaultMatching returns the standard reconciliation settings.
func DefaultMatching() Matching {
	return Matching{
		NameThreshold:      80,
		AmountTolerance:    decimal.NewFromFloat(0.01),
		AmountClosePercent: decimal.NewFromInt(1),
		AmountNearPercent:  decimal.NewFromInt(5),
		DateRangeDays:      3,
		AutoMatchThreshold: 90,
		PossibleMatchFloor: 50,
		MaxPossibleMatches: 5,
	}
}

// Validate checks the matching settings for consistency.
func (m Matching) Validate() error {
	if m.NameThreshold < 0 || m.NameThreshold > 100 {
		return fmt.Errorf("name_threshold must be between 0 and 100: %d", m.NameThreshold)
	}
	if m.AutoMatchThreshold < m.NameThreshold || m.AutoMatchThreshold > 100 {
		return fmt.Errorf("auto_match_threshold must be between name_threshold (%d) and 100: %d", m.NameThreshold, m.AutoMatchThreshold)
	}
	if m.PossibleMatchFloor < 0 || m.PossibleMatchFloor > m.NameThreshold {
		return fmt.Errorf("possible_match_floor must be between 0 and name_threshold (%d): %d", m.NameThreshold, m.PossibleMatchFloor)
	}
	if m.AmountTolerance.IsNegative() {
		return fmt.Errorf("amount_tolerance cannot be negative: %s", m.AmountTolerance)
	}
	if m.AmountClosePercent.IsNegative() || m.AmountNearPercent.LessThan(m.AmountClosePercent) {
		return fmt.Errorf("amount bands must satisfy 0 <= close (%s) <= near (%s)", m.AmountClosePercent, m.AmountNearPercent)
	}
	if m.DateRangeDays < 0 {
		return fmt.Errorf("date_range_days cannot be negative: %d", m.DateRangeDays)
	}
	if m.MaxPossibleMatches < 0 {
		return fmt.Errorf("max_possible_matches cannot be negative: %d", m.MaxPossibleMatches)
	}
	return nil
}

// Server configures the HTTP API.
type Server struct {
	Addr        string `yaml:"addr"`
	BodyLimitMB int    `yaml:"body_limit_mb"`
	AllowOrigin string `yaml:"allow_origin"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Config is the full application configuration.
type Config struct {
	Matching Matching `yaml:"matching"`
	Server   Server   `yaml:"server"`
	Log      Log      `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Matching: DefaultMatching(),
		Server: Server{
			Addr:        ":8080",
			BodyLimitMB: 32,
			AllowOrigin: "*",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file over the defaults, then applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %q: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Matching.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	ints := map[string]*int{
		"RECON_NAME_THRESHOLD":       &cfg.Matching.NameThreshold,
		"RECON_DATE_RANGE_DAYS":      &cfg.Matching.DateRangeDays,
		"RECON_AUTO_MATCH_THRESHOLD": &cfg.Matching.AutoMatchThreshold,
		"RECON_POSSIBLE_MATCH_FLOOR": &cfg.Matching.PossibleMatchFloor,
		"RECON_MAX_POSSIBLE_MATCHES": &cfg.Matching.MaxPossibleMatches,
		"RECON_BODY_LIMIT_MB":        &cfg.Server.BodyLimitMB,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: expected integer, got %q", key, v)
			}
			*dst = n
		}
	}

	decimals := map[string]*decimal.Decimal{
		"RECON_AMOUNT_TOLERANCE":     &cfg.Matching.AmountTolerance,
		"RECON_AMOUNT_CLOSE_PERCENT": &cfg.Matching.AmountClosePercent,
		"RECON_AMOUNT_NEAR_PERCENT":  &cfg.Matching.AmountNearPercent,
	}
	for key, dst := range decimals {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			d, err := decimal.NewFromString(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: expected decimal, got %q", key, v)
			}
			*dst = d
		}
	}

	if v, ok := lookup("RECON_PREFILTER_BY_AMOUNT"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RECON_PREFILTER_BY_AMOUNT: expected boolean, got %q", v)
		}
		cfg.Matching.PrefilterByAmount = b
	}

	strs := map[string]*string{
		"RECON_ADDR":         &cfg.Server.Addr,
		"RECON_ALLOW_ORIGIN": &cfg.Server.AllowOrigin,
		"RECON_LOG_LEVEL":    &cfg.Log.Level,
		"RECON_LOG_FORMAT":   &cfg.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	return nil
}
