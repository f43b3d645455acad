package sampler

import (
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
)

// TierTable maps each accuracy tier to its watch parameters.
type TierTable map[types.AccuracyTier]WatchOptions

func DefaultTiers() TierTable {
	return TierTable{
		types.TierHigh:     {EnableHighAccuracy: true, MaximumAge: 0, Timeout: 30 * time.Second},
		types.TierMedium:   {EnableHighAccuracy: true, MaximumAge: 60 * time.Second, Timeout: 20 * time.Second},
		types.TierLow:      {EnableHighAccuracy: false, MaximumAge: 300 * time.Second, Timeout: 15 * time.Second},
		types.TierFallback: {EnableHighAccuracy: false, MaximumAge: 600 * time.Second, Timeout: 10 * time.Second},
	}
}

// Options returns the parameters for tier, falling back to the defaults for tiers
// missing from the table.
func (t TierTable) Options(tier types.AccuracyTier) WatchOptions {
	if opts, ok := t[tier]; ok {
		return opts
	}
	return DefaultTiers()[tier]
}
