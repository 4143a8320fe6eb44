package validation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meridian-msr/tapecheck/internal/domain"
)

// FeeBand is the expected net servicing fee range for one investor.
type FeeBand struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Config carries every threshold the engine applies, so a run is fully
// reproducible from its explicit inputs. No ambient state.
type Config struct {
	// Layer 1.
	RateWholeNumberAbove float64                     `yaml:"rate_whole_number_above" json:"rate_whole_number_above"`
	RateFloor            float64                     `yaml:"rate_floor" json:"rate_floor"`
	NSFWholeBpsAbove     float64                     `yaml:"nsf_whole_bps_above" json:"nsf_whole_bps_above"`
	NSFPercentMin        float64                     `yaml:"nsf_percent_min" json:"nsf_percent_min"`
	NSFPercentMax        float64                     `yaml:"nsf_percent_max" json:"nsf_percent_max"`
	FeeBands             map[domain.Investor]FeeBand `yaml:"fee_bands" json:"fee_bands"`

	// Layer 2.
	StatusSkipBuckets  int     `yaml:"status_skip_buckets" json:"status_skip_buckets"`
	PIInflationPct     float64 `yaml:"pi_inflation_pct" json:"pi_inflation_pct"`
	RateDriftTolerance float64 `yaml:"rate_drift_tolerance" json:"rate_drift_tolerance"`

	// Bridge.
	BridgeEpsilon      float64 `yaml:"bridge_epsilon" json:"bridge_epsilon"`
	CurtailmentFactor  float64 `yaml:"curtailment_factor" json:"curtailment_factor"`
}

// feeBandTolerance absorbs float noise on exact-valued bands (FNMA/FHLMC
// NSF is contractually 25bps flat).
const feeBandTolerance = 1e-9

// DefaultConfig returns the standard agency thresholds.
func DefaultConfig() Config {
	return Config{
		RateWholeNumberAbove: 1.0,
		RateFloor:            0.005,
		NSFWholeBpsAbove:     1.0,
		NSFPercentMin:        0.05,
		NSFPercentMax:        1.0,
		FeeBands: map[domain.Investor]FeeBand{
			domain.InvestorGNMA:      {Min: 0.0019, Max: 0.0069},
			domain.InvestorFNMA:      {Min: 0.0025, Max: 0.0025},
			domain.InvestorFHLMC:     {Min: 0.0025, Max: 0.0025},
			domain.InvestorPortfolio: {Min: 0.0025, Max: 0.0025},
		},
		StatusSkipBuckets:  2,
		PIInflationPct:     0.10,
		RateDriftTolerance: 1e-4,
		BridgeEpsilon:      1.0,
		CurtailmentFactor:  2.5,
	}
}

// LoadConfig reads a YAML override file on top of the defaults. A missing
// path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// feeBand returns the band for an investor, falling back to the non-GNMA
// flat band for unknown investors.
func (c Config) feeBand(inv domain.Investor) FeeBand {
	if b, ok := c.FeeBands[inv]; ok {
		return b
	}
	return FeeBand{Min: 0.0025, Max: 0.0025}
}
