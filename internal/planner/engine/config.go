// Package engine holds the pure BioAdaptive planning pipeline: sub-scores, phenotype,
// the ordered dosing-rule table, and the safety guardrails. Nothing here performs I/O
// except LoadConfig.
package engine

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	plandomain "bioadaptive/backend/internal/plan/domain"
)

// ConfigVersion identifies the built-in weight and threshold tables.
const ConfigVersion = "2024-06"

// ErrInvalidConfig is wrapped by every engine configuration validation failure.
var ErrInvalidConfig = errors.New("invalid engine config")

// GLSWeights weights the gut-load factors.
type GLSWeights struct {
	Bloating float64 `yaml:"bloating"`
	Bowel    float64 `yaml:"bowel"`
	Sleep    float64 `yaml:"sleep"`
	Fiber    float64 `yaml:"fiber"`
}

// ACSWeights weights the appetite factors.
type ACSWeights struct {
	Hunger   float64 `yaml:"hunger"`
	Cravings float64 `yaml:"cravings"`
	Sleep    float64 `yaml:"sleep"`
	Stress   float64 `yaml:"stress"`
}

// SCSWeights weights the stress factors.
type SCSWeights struct {
	Stress   float64 `yaml:"stress"`
	Sleep    float64 `yaml:"sleep"`
	Insomnia float64 `yaml:"insomnia"`
}

// EDSWeights weights the energy-deficit factors.
type EDSWeights struct {
	Sleep    float64 `yaml:"sleep"`
	Energy   float64 `yaml:"energy"`
	Focus    float64 `yaml:"focus"`
	Activity float64 `yaml:"activity"`
}

// MSSWeights weights the metabolic-sluggishness factors.
type MSSWeights struct {
	BMI           float64 `yaml:"bmi"`
	Steps         float64 `yaml:"steps"`
	WeightTrend   float64 `yaml:"weight_trend"`
	MorningEnergy float64 `yaml:"morning_energy"`
}

// Weights holds one table per score; each table sums to 1.0.
type Weights struct {
	GLS GLSWeights `yaml:"gls"`
	ACS ACSWeights `yaml:"acs"`
	SCS SCSWeights `yaml:"scs"`
	EDS EDSWeights `yaml:"eds"`
	MSS MSSWeights `yaml:"mss"`
}

// Thresholds are the numeric cut-offs referenced by the scoring and rule tables.
type Thresholds struct {
	GutrifyGLS          int     `yaml:"gutrify_gls"`
	GutrifyGLSHigh      int     `yaml:"gutrify_gls_high"`
	GutrifyBloating     int     `yaml:"gutrify_bloating"`
	FiberACS            int     `yaml:"fiber_acs"`
	ObeCalmSCS          int     `yaml:"obecalm_scs"`
	ObeCalmSCSHigh      int     `yaml:"obecalm_scs_high"`
	ShortSleepHours     float64 `yaml:"short_sleep_hours"`
	StimulantSleepHours float64 `yaml:"stimulant_sleep_hours"`
	LeanPulseEDS        int     `yaml:"leanpulse_eds"`
	MetaboFixMSS        int     `yaml:"metabofix_mss"`
	PersistentMSS       int     `yaml:"persistent_mss"`
	PersistentWindow    int     `yaml:"persistent_window"`
	PhenotypeSecondary  float64 `yaml:"phenotype_secondary"`
	PhenotypeWindow     int     `yaml:"phenotype_window"`
	WeightTrendWindow   int     `yaml:"weight_trend_window"`
	BMIHigh             float64 `yaml:"bmi_high"`
	StepsLow            int     `yaml:"steps_low"`
	MorningEnergyLow    int     `yaml:"morning_energy_low"`
	SleepTargetHours    float64 `yaml:"sleep_target_hours"`
	PalpitationLookback int     `yaml:"palpitation_lookback"`
	HistoryDays         int     `yaml:"history_days"`
}

// Config is the versioned, data-only configuration of the engine.
type Config struct {
	Version    string           `yaml:"version"`
	SKUOrder   []plandomain.SKU `yaml:"sku_order"`
	Weights    Weights          `yaml:"weights"`
	Thresholds Thresholds       `yaml:"thresholds"`
}

// DefaultConfig returns the built-in tables.
func DefaultConfig() Config {
	return Config{
		Version:  ConfigVersion,
		SKUOrder: plandomain.Catalog(),
		Weights: Weights{
			GLS: GLSWeights{Bloating: 0.35, Bowel: 0.30, Sleep: 0.15, Fiber: 0.20},
			ACS: ACSWeights{Hunger: 0.35, Cravings: 0.30, Sleep: 0.20, Stress: 0.15},
			SCS: SCSWeights{Stress: 0.50, Sleep: 0.30, Insomnia: 0.20},
			EDS: EDSWeights{Sleep: 0.25, Energy: 0.25, Focus: 0.25, Activity: 0.25},
			MSS: MSSWeights{BMI: 0.25, Steps: 0.25, WeightTrend: 0.25, MorningEnergy: 0.25},
		},
		Thresholds: Thresholds{
			GutrifyGLS:          70,
			GutrifyGLSHigh:      80,
			GutrifyBloating:     6,
			FiberACS:            70,
			ObeCalmSCS:          70,
			ObeCalmSCSHigh:      80,
			ShortSleepHours:     6,
			StimulantSleepHours: 6.5,
			LeanPulseEDS:        65,
			MetaboFixMSS:        65,
			PersistentMSS:       70,
			PersistentWindow:    7,
			PhenotypeSecondary:  50,
			PhenotypeWindow:     7,
			WeightTrendWindow:   7,
			BMIHigh:             27,
			StepsLow:            6000,
			MorningEnergyLow:    6,
			SleepTargetHours:    7,
			PalpitationLookback: 3,
			HistoryDays:         7,
		},
	}
}

// LoadConfig decodes a YAML document at path over DefaultConfig and validates the result.
// Unknown keys are rejected. An empty file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open engine config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode engine config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

const weightTolerance = 1e-6

// Validate checks that weight tables sum to 1.0, thresholds are in range, and the SKU order
// is a permutation of the catalog.
func (c Config) Validate() error {
	w := c.Weights
	tables := []struct {
		name    string
		weights []float64
	}{
		{"gls", []float64{w.GLS.Bloating, w.GLS.Bowel, w.GLS.Sleep, w.GLS.Fiber}},
		{"acs", []float64{w.ACS.Hunger, w.ACS.Cravings, w.ACS.Sleep, w.ACS.Stress}},
		{"scs", []float64{w.SCS.Stress, w.SCS.Sleep, w.SCS.Insomnia}},
		{"eds", []float64{w.EDS.Sleep, w.EDS.Energy, w.EDS.Focus, w.EDS.Activity}},
		{"mss", []float64{w.MSS.BMI, w.MSS.Steps, w.MSS.WeightTrend, w.MSS.MorningEnergy}},
	}
	for _, t := range tables {
		sum := 0.0
		for _, v := range t.weights {
			if v < 0 {
				return fmt.Errorf("%w: negative weight in %s", ErrInvalidConfig, t.name)
			}
			sum += v
		}
		if math.Abs(sum-1.0) > weightTolerance {
			return fmt.Errorf("%w: %s weights sum to %.4f, want 1.0", ErrInvalidConfig, t.name, sum)
		}
	}

	if len(c.SKUOrder) != len(plandomain.Catalog()) {
		return fmt.Errorf("%w: sku_order must list all %d SKUs", ErrInvalidConfig, len(plandomain.Catalog()))
	}
	seen := make(map[plandomain.SKU]bool, len(c.SKUOrder))
	for _, s := range c.SKUOrder {
		if !s.Valid() || seen[s] {
			return fmt.Errorf("%w: sku_order has unknown or duplicate SKU %q", ErrInvalidConfig, s)
		}
		seen[s] = true
	}

	t := c.Thresholds
	scoreThresholds := []struct {
		name string
		v    int
	}{
		{"gutrify_gls", t.GutrifyGLS},
		{"gutrify_gls_high", t.GutrifyGLSHigh},
		{"fiber_acs", t.FiberACS},
		{"obecalm_scs", t.ObeCalmSCS},
		{"obecalm_scs_high", t.ObeCalmSCSHigh},
		{"leanpulse_eds", t.LeanPulseEDS},
		{"metabofix_mss", t.MetaboFixMSS},
		{"persistent_mss", t.PersistentMSS},
	}
	for _, s := range scoreThresholds {
		if s.v < 0 || s.v > 100 {
			return fmt.Errorf("%w: %s=%d out of [0,100]", ErrInvalidConfig, s.name, s.v)
		}
	}
	if t.PhenotypeSecondary < 0 || t.PhenotypeSecondary > 100 {
		return fmt.Errorf("%w: phenotype_secondary=%v out of [0,100]", ErrInvalidConfig, t.PhenotypeSecondary)
	}
	if t.GutrifyBloating < 0 || t.GutrifyBloating > 10 || t.MorningEnergyLow < 0 || t.MorningEnergyLow > 10 {
		return fmt.Errorf("%w: 0-10 scale thresholds out of range", ErrInvalidConfig)
	}
	if t.ShortSleepHours < 0 || t.StimulantSleepHours < 0 || t.SleepTargetHours <= 0 || t.SleepTargetHours > 24 {
		return fmt.Errorf("%w: sleep thresholds out of range", ErrInvalidConfig)
	}
	if t.BMIHigh <= 0 || t.StepsLow < 0 {
		return fmt.Errorf("%w: bmi_high and steps_low must be positive", ErrInvalidConfig)
	}
	if t.HistoryDays < 1 {
		return fmt.Errorf("%w: history_days must be at least 1", ErrInvalidConfig)
	}
	for _, w := range []int{t.PersistentWindow, t.PalpitationLookback, t.PhenotypeWindow, t.WeightTrendWindow} {
		if w < 1 {
			return fmt.Errorf("%w: look-back windows must be at least 1", ErrInvalidConfig)
		}
		if w > t.HistoryDays {
			return fmt.Errorf("%w: look-back windows exceed history_days=%d", ErrInvalidConfig, t.HistoryDays)
		}
	}
	return nil
}

// skuRank returns the position of each SKU in c.SKUOrder.
func (c Config) skuRank() map[plandomain.SKU]int {
	rank := make(map[plandomain.SKU]int, len(c.SKUOrder))
	for i, s := range c.SKUOrder {
		rank[s] = i
	}
	return rank
}
