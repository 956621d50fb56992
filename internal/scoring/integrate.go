// Package scoring combines micro confidence scores with macro factors.
package scoring

import "math"

// NeutralFactor is used when no macro factor is available.
const NeutralFactor = 1.0

// Integrate combines a micro confidence score with a macro multiplier into
// one bounded integer: clamp(round(confidence * factor), 0, 100).
//
// The function is total: a missing (zero), negative, or non-finite factor
// falls back to NeutralFactor. Valid factors are strictly positive
// multipliers (nominally 0.5-1.5), so anything at or below zero can only
// come from absent or corrupt macro data and is treated as no factor at
// all, not as a maximal drag that would zero every score in the sector.
func Integrate(confidenceScore int, macroFactor float64) int {
	if macroFactor <= 0 || math.IsNaN(macroFactor) || math.IsInf(macroFactor, 0) {
		macroFactor = NeutralFactor
	}

	integrated := int(math.Round(float64(confidenceScore) * macroFactor))
	if integrated < 0 {
		return 0
	}
	if integrated > 100 {
		return 100
	}
	return integrated
}
