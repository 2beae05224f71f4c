package risk

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/algotrader/market"
)

var (
	// ErrViolation is wrapped by every control violation.
	ErrViolation = errors.New("control violation")
)

// TradingControlViolation rejects a single order.
type TradingControlViolation struct {
	Asset      market.Asset
	Amount     float64
	Time       time.Time
	Constraint string
}

func (v *TradingControlViolation) Error() string {
	return fmt.Sprintf("order for %v shares of %s at %s violates trading constraint %s",
		v.Amount, v.Asset, v.Time.Format(time.RFC3339), v.Constraint)
}

func (v *TradingControlViolation) Unwrap() error { return ErrViolation }

// AccountControlViolation reports an account state that breaches a control.
type AccountControlViolation struct {
	Time       time.Time
	Constraint string
}

func (v *AccountControlViolation) Error() string {
	return fmt.Sprintf("account at %s violates account constraint %s", v.Time.Format(time.RFC3339), v.Constraint)
}

func (v *AccountControlViolation) Unwrap() error { return ErrViolation }
