// Package risk holds the order-level trading controls, the whole-account
// controls and the capital models that size new positions.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rustyeddy/algotrader/market"
)

// OnViolation selects what a control does when an order breaches it.
type OnViolation string

const (
	// Fail rejects the order with a *TradingControlViolation.
	Fail OnViolation = "fail"
	// Log records the breach at info level and continues with the clipped amount.
	Log OnViolation = "log"
	// Warn records the breach at warn level and continues with the clipped amount.
	Warn OnViolation = "warn"
)

// ParseOnViolation reads a config value. Empty means Log; anything
// unrecognised is kept as is and behaves like Fail.
func ParseOnViolation(s string) OnViolation {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Log
	}
	return OnViolation(s)
}

// Policy is the violation behaviour shared by trading controls.
type Policy struct {
	OnError OnViolation
	Logger  *slog.Logger
}

func (p Policy) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// handleViolation dispatches a breach by policy. It returns a non-nil error
// only when the order must be rejected.
func (p Policy) handleViolation(ctx context.Context, asset market.Asset, amount float64, dt time.Time, constraint fmt.Stringer) error {
	attrs := []any{
		"asset", asset,
		"amount", amount,
		"time", dt,
		"constraint", constraint.String(),
	}
	switch p.OnError {
	case Log:
		p.logger().InfoContext(ctx, "order violates trading constraint", attrs...)
		return nil
	case Warn:
		p.logger().WarnContext(ctx, "order violates trading constraint", attrs...)
		return nil
	}
	return &TradingControlViolation{
		Asset:      asset,
		Amount:     amount,
		Time:       dt,
		Constraint: constraint.String(),
	}
}
