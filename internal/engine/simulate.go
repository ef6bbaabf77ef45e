package engine

import (
	"fmt"
	"math/rand/v2"

	"github.com/ginjaninja78/po-budget-report/internal/model"
	"github.com/shopspring/decimal"
)

// SimulationConfig controls Simulate.
type SimulationConfig struct {
	// Seed makes the perturbation reproducible.
	Seed uint64

	// Fraction is the share of lines whose po_value is perturbed, in [0, 1].
	Fraction float64

	// MinFactor and MaxFactor bound the uniform multiplier applied to a
	// perturbed line.
	MinFactor float64
	MaxFactor float64
}

// DefaultSimulation perturbs roughly 30% of lines by up to +/-10%.
func DefaultSimulation() SimulationConfig {
	return SimulationConfig{Seed: 42, Fraction: 0.3, MinFactor: 0.9, MaxFactor: 1.1}
}

// Validate checks the configuration bounds.
func (c SimulationConfig) Validate() error {
	if c.Fraction < 0 || c.Fraction > 1 {
		return fmt.Errorf("simulation fraction must be within [0, 1], got %g", c.Fraction)
	}
	if c.MinFactor < 0 || c.MaxFactor < c.MinFactor {
		return fmt.Errorf("invalid simulation factor range [%g, %g]", c.MinFactor, c.MaxFactor)
	}
	return nil
}

// Simulate derives a synthetic previous version from ds when no second
// snapshot is available. Each line is independently selected with
// probability Fraction and its po_value multiplied by a factor drawn from
// [MinFactor, MaxFactor), rounded to cents. Every other field is unchanged.
// The same seed and input always produce the same result.
func Simulate(ds *model.Dataset, cfg SimulationConfig) (*model.Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	span := cfg.MaxFactor - cfg.MinFactor

	return ds.Map(func(_ int, r model.PORecord) model.PORecord {
		// Both draws happen for every line so selection stays aligned with
		// input order regardless of Fraction.
		pick := rng.Float64()
		factor := cfg.MinFactor + rng.Float64()*span
		if pick < cfg.Fraction {
			r.POValue = r.POValue.Mul(decimal.NewFromFloat(factor)).Round(2)
		}
		return r
	}, "previous (simulated)")
}
