package types

import (
	"fmt"
	"strings"
)

// AccuracyTier is a named bundle of geolocation accuracy/power/timeout settings,
// ordered from most to least demanding.
type AccuracyTier int

const (
	TierHigh AccuracyTier = iota
	TierMedium
	TierLow
	TierFallback
)

var tierNames = [...]string{"high", "medium", "low", "fallback"}

// Tiers lists all tiers from most to least demanding.
var Tiers = []AccuracyTier{TierHigh, TierMedium, TierLow, TierFallback}

func (t AccuracyTier) String() string {
	if t < TierHigh || t > TierFallback {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// Degrade returns the next less demanding tier. Fallback degrades to itself.
func (t AccuracyTier) Degrade() AccuracyTier {
	if t >= TierFallback {
		return TierFallback
	}
	return t + 1
}

// Upgrade returns the next more demanding tier. High upgrades to itself.
func (t AccuracyTier) Upgrade() AccuracyTier {
	if t <= TierHigh {
		return TierHigh
	}
	return t - 1
}

// Less reports whether t is less demanding than other.
func (t AccuracyTier) Less(other AccuracyTier) bool {
	return t > other
}

func ParseAccuracyTier(s string) (AccuracyTier, error) {
	for i, name := range tierNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return AccuracyTier(i), nil
		}
	}
	return 0, fmt.Errorf("unknown accuracy tier %q", s)
}
