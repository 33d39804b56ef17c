package sizing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"strategycoordinator/src/model"
)

// ----- errors -----

var (
	ErrInvalidPrice     = errors.New("price must be positive")
	ErrInvalidEquityPct = errors.New("equity_pct must be between 0 and 1")
	ErrUnknownIntent    = errors.New("unknown sizing intent kind")
)

// ----- public API -----

// CalculatePositionSize turns an abstract sizing intent into a broker-legal
// quantity. The raw quantity is resolved from the intent first, then broker
// constraints are applied in a fixed order where every step consumes the
// previous step's output. The returned reasoning is the ordered list of
// steps that fired, kept for the audit trail rather than just debugging.
func CalculatePositionSize(
	intent model.SizingIntent,
	price decimal.Decimal,
	caps model.BrokerCapabilities,
	accountValue decimal.Decimal,
	availableCash decimal.Decimal,
) (decimal.Decimal, []string, error) {

	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, nil, ErrInvalidPrice
	}

	raw, err := resolveRaw(intent, price, accountValue)
	if err != nil {
		return decimal.Zero, nil, err
	}

	reasoning := []string{
		fmt.Sprintf("resolved %s intent %s to raw quantity %s", intent.Kind, intent.Value, raw),
	}

	sign := decimal.NewFromInt(1)
	if raw.IsNegative() {
		sign = decimal.NewFromInt(-1)
	}
	abs := raw.Abs()

	// 1) hard reject when the unconstrained order is already too small
	if abs.Mul(price).LessThan(caps.MinNotional) {
		reasoning = append(reasoning, fmt.Sprintf(
			"rejected: notional %s below min notional %s", abs.Mul(price), caps.MinNotional))
		return decimal.Zero, reasoning, nil
	}

	// 2) cash clamp
	if abs.Mul(price).GreaterThan(availableCash) {
		abs = availableCash.Div(price)
		reasoning = append(reasoning, fmt.Sprintf(
			"clamped to available cash %s, quantity now %s", availableCash, abs))
	}

	// 3) whole-unit floor for brokers without fractional shares
	if !caps.FractionalShares && abs.IsPositive() && abs.LessThan(decimal.NewFromInt(1)) {
		abs = decimal.NewFromInt(1)
		reasoning = append(reasoning, "rounded fractional quantity up to 1 whole unit")
	}

	// 4) lot size quantization
	if caps.MinLotSize.IsPositive() {
		rounded := roundToMultiple(abs, caps.MinLotSize)
		if !rounded.Equal(abs) {
			reasoning = append(reasoning, fmt.Sprintf(
				"rounded to lot size %s, quantity now %s", caps.MinLotSize, rounded))
			abs = rounded
		}
	}

	// 5) step size quantization
	if caps.StepSize.IsPositive() {
		rounded := roundToMultiple(abs, caps.StepSize)
		if !rounded.Equal(abs) {
			reasoning = append(reasoning, fmt.Sprintf(
				"rounded to step size %s, quantity now %s", caps.StepSize, rounded))
			abs = rounded
		}
	}

	// 6) whole-number safety net, lot/step rounding may reintroduce fractions
	if !caps.FractionalShares {
		rounded := abs.Round(0)
		if !rounded.Equal(abs) {
			reasoning = append(reasoning, fmt.Sprintf(
				"rounded to whole shares, quantity now %s", rounded))
			abs = rounded
		}
	}

	// 7) max position clamp
	if caps.MaxPositionSize != nil && abs.GreaterThan(*caps.MaxPositionSize) {
		abs = *caps.MaxPositionSize
		reasoning = append(reasoning, fmt.Sprintf(
			"clamped to max position size %s", caps.MaxPositionSize))
	}

	// 8) re-check min notional with the fully constrained quantity
	if !abs.IsZero() && abs.Mul(price).LessThan(caps.MinNotional) {
		reasoning = append(reasoning, fmt.Sprintf(
			"rejected: constrained notional %s below min notional %s", abs.Mul(price), caps.MinNotional))
		return decimal.Zero, reasoning, nil
	}

	return abs.Mul(sign), reasoning, nil
}

// ----- helpers -----

func resolveRaw(intent model.SizingIntent, price, accountValue decimal.Decimal) (decimal.Decimal, error) {
	switch intent.Kind {
	case model.SizingUnits:
		return intent.Value, nil
	case model.SizingEquityPct:
		if intent.Value.IsNegative() || intent.Value.GreaterThan(decimal.NewFromInt(1)) {
			return decimal.Zero, ErrInvalidEquityPct
		}
		return accountValue.Mul(intent.Value).Div(price), nil
	case model.SizingNotional:
		return intent.Value.Div(price), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownIntent, intent.Kind)
	}
}

// roundToMultiple rounds v to the nearest integer multiple of m.
func roundToMultiple(v, m decimal.Decimal) decimal.Decimal {
	return v.Div(m).Round(0).Mul(m)
}
