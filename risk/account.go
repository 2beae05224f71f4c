package risk

import (
	"fmt"
	"time"

	"github.com/rustyeddy/algotrader/portfolio"
)

// AccountControl checks a whole-account snapshot. It accepts or fails; it
// never clips.
type AccountControl interface {
	Validate(p portfolio.Portfolio, a portfolio.Account, dt time.Time) error
	String() string
}

var _ AccountControl = (*NetLeverage)(nil)

// NetLeverage fails while the account leverage is at or below Base.
//
// TODO: confirm whether Base was meant as a cap, failing above it instead.
type NetLeverage struct {
	Base float64
}

// NewNetLeverage rejects a negative base.
func NewNetLeverage(base float64) (*NetLeverage, error) {
	if base < 0 {
		return nil, fmt.Errorf("net leverage: base must be >= 0, got %g", base)
	}
	return &NetLeverage{Base: base}, nil
}

func (c *NetLeverage) Validate(_ portfolio.Portfolio, a portfolio.Account, dt time.Time) error {
	if a.Leverage <= c.Base {
		return &AccountControlViolation{Time: dt, Constraint: c.String()}
	}
	return nil
}

func (c *NetLeverage) String() string {
	return fmt.Sprintf("NetLeverage(base=%g)", c.Base)
}

// ValidateAccount runs every control and returns the first violation.
func ValidateAccount(controls []AccountControl, p portfolio.Portfolio, a portfolio.Account, dt time.Time) error {
	for _, c := range controls {
		if err := c.Validate(p, a, dt); err != nil {
			return err
		}
	}
	return nil
}
