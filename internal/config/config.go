package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Process ProcessConfig `yaml:"process" mapstructure:"process"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ProcessConfig configures the calculation engine and the staleness policy.
type ProcessConfig struct {
	TargetVersion        string               `yaml:"target_version" mapstructure:"target_version"`
	Workers              int                  `yaml:"workers" mapstructure:"workers"`
	StrengthThresholds   StrengthThresholds   `yaml:"strength_thresholds" mapstructure:"strength_thresholds"`
	ExtractionThresholds ExtractionThresholds `yaml:"extraction_thresholds" mapstructure:"extraction_thresholds"`
	ZoneBonuses          ZoneBonuses          `yaml:"zone_bonuses" mapstructure:"zone_bonuses"`
	ValidationRanges     map[string]Range     `yaml:"validation_ranges" mapstructure:"validation_ranges"`
	RawHashFields        []string             `yaml:"raw_hash_fields" mapstructure:"raw_hash_fields"`
	Tolerances           Tolerances           `yaml:"validation_tolerances" mapstructure:"validation_tolerances"`
	Score                ScoreConfig          `yaml:"score" mapstructure:"score"`
}

// StrengthThresholds classify TDS percent into Weak/Ideal/Strong.
// The upper bound of each band is inclusive.
type StrengthThresholds struct {
	WeakMax  float64 `yaml:"weak_max" mapstructure:"weak_max"`
	IdealMax float64 `yaml:"ideal_max" mapstructure:"ideal_max"`
}

// ExtractionThresholds classify extraction yield into Under/Ideal/Over.
type ExtractionThresholds struct {
	UnderMax float64 `yaml:"under_max" mapstructure:"under_max"`
	IdealMax float64 `yaml:"ideal_max" mapstructure:"ideal_max"`
}

// ZoneBonuses weight the brewing zone in the composite brew score.
type ZoneBonuses struct {
	IdealIdeal float64 `yaml:"ideal_ideal" mapstructure:"ideal_ideal"`
	IdealOther float64 `yaml:"ideal_other" mapstructure:"ideal_other"`
	Other      float64 `yaml:"other" mapstructure:"other"`
}

// Range bounds a numeric raw field, inclusive on both ends.
type Range struct {
	Min float64 `yaml:"min" mapstructure:"min"`
	Max float64 `yaml:"max" mapstructure:"max"`
}

// Tolerances bound the drift allowed between stored calculated values and
// values recomputed from current raw fields before the row is re-flagged.
type Tolerances struct {
	Ratio           float64 `yaml:"ratio" mapstructure:"ratio"`
	ExtractionYield float64 `yaml:"extraction_yield" mapstructure:"extraction_yield"`
}

// ScoreConfig parameterizes the unified brewing score.
type ScoreConfig struct {
	SigmaE           float64 `yaml:"sigma_e" mapstructure:"sigma_e"`
	SigmaT           float64 `yaml:"sigma_t" mapstructure:"sigma_t"`
	DecayK           float64 `yaml:"decay_k" mapstructure:"decay_k"`
	TargetExtraction float64 `yaml:"target_extraction" mapstructure:"target_extraction"`
	TargetTDS        float64 `yaml:"target_tds" mapstructure:"target_tds"`
}

// StoreConfig configures the run-history database.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultRawHashFields is the ordered raw-field subset fingerprinted by the
// content hash. Order matters: the hash is order-sensitive.
var DefaultRawHashFields = []string{
	"coffee_dose_grams", "water_volume_ml", "final_tds_percent",
	"final_brew_mass_grams", "bean_name", "brew_date", "bean_purchase_date",
	"score_overall_rating",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BREWLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.database_url", "brewlog.db")
	v.SetDefault("process.target_version", "1.2.0")
	v.SetDefault("process.workers", 4)
	v.SetDefault("process.strength_thresholds.weak_max", 1.15)
	v.SetDefault("process.strength_thresholds.ideal_max", 1.35)
	v.SetDefault("process.extraction_thresholds.under_max", 18.0)
	v.SetDefault("process.extraction_thresholds.ideal_max", 22.0)
	v.SetDefault("process.zone_bonuses.ideal_ideal", 10.0)
	v.SetDefault("process.zone_bonuses.ideal_other", 7.0)
	v.SetDefault("process.zone_bonuses.other", 4.0)
	v.SetDefault("process.validation_ranges", map[string]map[string]float64{
		"coffee_dose_grams":     {"min": 0.1, "max": 50.0},
		"water_volume_ml":       {"min": 1, "max": 1000},
		"final_tds_percent":     {"min": 0.1, "max": 3.0},
		"final_brew_mass_grams": {"min": 0.1, "max": 1000.0},
		"score_overall_rating":  {"min": 0, "max": 10},
	})
	v.SetDefault("process.raw_hash_fields", DefaultRawHashFields)
	v.SetDefault("process.validation_tolerances.ratio", 0.1)
	v.SetDefault("process.validation_tolerances.extraction_yield", 0.1)
	v.SetDefault("process.score.sigma_e", 2.0)
	v.SetDefault("process.score.sigma_t", 0.1)
	v.SetDefault("process.score.decay_k", 0.5)
	v.SetDefault("process.score.target_extraction", 19.5)
	v.SetDefault("process.score.target_tds", 1.25)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects malformed thresholds, ranges, and tolerances. A failure
// here aborts before any row is processed.
func (c *Config) Validate() error {
	p := c.Process
	if p.TargetVersion == "" {
		return eris.New("config: target_version must not be empty")
	}
	if p.Workers < 1 {
		return eris.Errorf("config: workers must be >= 1, got %d", p.Workers)
	}
	if p.StrengthThresholds.WeakMax >= p.StrengthThresholds.IdealMax {
		return eris.Errorf("config: strength weak_max %.3f must be below ideal_max %.3f",
			p.StrengthThresholds.WeakMax, p.StrengthThresholds.IdealMax)
	}
	if p.ExtractionThresholds.UnderMax >= p.ExtractionThresholds.IdealMax {
		return eris.Errorf("config: extraction under_max %.3f must be below ideal_max %.3f",
			p.ExtractionThresholds.UnderMax, p.ExtractionThresholds.IdealMax)
	}
	for field, r := range p.ValidationRanges {
		if r.Min >= r.Max {
			return eris.Errorf("config: validation range for %s has min %.3f >= max %.3f", field, r.Min, r.Max)
		}
	}
	if len(p.RawHashFields) == 0 {
		return eris.New("config: raw_hash_fields must not be empty")
	}
	if p.Tolerances.Ratio <= 0 || p.Tolerances.ExtractionYield <= 0 {
		return eris.New("config: validation tolerances must be positive")
	}
	if p.Score.SigmaE <= 0 || p.Score.SigmaT <= 0 || p.Score.DecayK <= 0 {
		return eris.New("config: score sigma_e, sigma_t, and decay_k must be positive")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
