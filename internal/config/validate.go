package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// validate is a singleton validator instance
var validate = validator.New()

// Validate rejects out-of-range or inconsistent values. Nothing is clamped.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, formatValidationError(err))
	}

	switch c.ScenarioVariant() {
	case ScenarioRandom, ScenarioLeadership, ScenarioProlonged:
	default:
		return fmt.Errorf("%w: Scenario: unknown variant %q", ErrInvalidConfig, c.Scenario)
	}

	if uint64(c.DisruptionTick) > c.TotalTicks() && c.ArrestScenario > 0 {
		return fmt.Errorf("%w: DisruptionTick: %d is beyond the horizon of %d ticks",
			ErrInvalidConfig, c.DisruptionTick, c.TotalTicks())
	}

	m := c.Market
	if m.UnitDoseMin.Start > m.UnitDoseMax.Start || m.UnitDoseMin.End > m.UnitDoseMax.End {
		return fmt.Errorf("%w: Market.UnitDoseMin: exceeds Market.UnitDoseMax", ErrInvalidConfig)
	}

	prev := -1.0
	for i, r := range m.ProfitRanges {
		if r.Level <= prev {
			return fmt.Errorf("%w: ProfitRanges[%d]: levels must be strictly ascending", ErrInvalidConfig, i)
		}
		if r.TraffickersMin > r.TraffickersMax || r.PackagersMin > r.PackagersMax {
			return fmt.Errorf("%w: ProfitRanges[%d]: min exceeds max", ErrInvalidConfig, i)
		}
		prev = r.Level
	}
	if first, last := m.ProfitRanges[0], m.ProfitRanges[len(m.ProfitRanges)-1]; first.Level != 0 || last.Level != 1 {
		return fmt.Errorf("%w: ProfitRanges: table must span levels 0 and 1", ErrInvalidConfig)
	}

	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Report the first failure only.
	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "lt":
			return fmt.Errorf("%s: must be less than %s", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}
	return err
}
