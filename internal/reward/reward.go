// Package reward picks collectibles from the local catalog by weighted
// rarity.
package reward

import (
	"errors"
	"fmt"

	"pokequest/internal/model"
	"pokequest/internal/random"
)

var ErrEmptyCatalogTier = errors.New("reward: catalog tier has no entries")

// EmptyTierError names the tier that was drawn but had nothing to pick.
type EmptyTierError struct {
	Tier model.RarityTier
}

func (e *EmptyTierError) Error() string {
	return fmt.Sprintf("reward: no catalog entries for tier %q", e.Tier)
}

func (e *EmptyTierError) Is(target error) bool {
	return target == ErrEmptyCatalogTier
}

// Cumulative upper bounds of the rarity draw. Anything at or above the last
// bound is common.
const (
	legendaryBound = 0.05
	rareBound      = 0.20
	uncommonBound  = 0.50
)

// DrawTier maps u in [0,1) onto a rarity tier.
func DrawTier(u float64) model.RarityTier {
	switch {
	case u < legendaryBound:
		return model.RarityLegendary
	case u < rareBound:
		return model.RarityRare
	case u < uncommonBound:
		return model.RarityUncommon
	default:
		return model.RarityCommon
	}
}

// Resolve draws a tier and then an item uniformly within it. An empty tier
// is reported, never papered over.
func Resolve(catalog []model.CollectibleItem, rng random.Source) (model.CollectibleItem, error) {
	return PickFromTier(catalog, DrawTier(rng.Float64()), rng)
}

func PickFromTier(catalog []model.CollectibleItem, tier model.RarityTier, rng random.Source) (model.CollectibleItem, error) {
	candidates := inTier(catalog, tier)
	if len(candidates) == 0 {
		return model.CollectibleItem{}, &EmptyTierError{Tier: tier}
	}
	return candidates[rng.Intn(len(candidates))], nil
}

// AdjacentTiers lists the other tiers ordered by distance from tier, the
// more common neighbour first on ties.
func AdjacentTiers(tier model.RarityTier) []model.RarityTier {
	idx := indexOf(tier)
	if idx < 0 {
		return append([]model.RarityTier(nil), model.RarityTiers...)
	}
	out := make([]model.RarityTier, 0, len(model.RarityTiers)-1)
	for dist := 1; dist < len(model.RarityTiers); dist++ {
		if lower := idx - dist; lower >= 0 {
			out = append(out, model.RarityTiers[lower])
		}
		if upper := idx + dist; upper < len(model.RarityTiers) {
			out = append(out, model.RarityTiers[upper])
		}
	}
	return out
}

// ValidateCatalog returns the tiers that have no entries.
func ValidateCatalog(catalog []model.CollectibleItem) []model.RarityTier {
	var missing []model.RarityTier
	for _, tier := range model.RarityTiers {
		if len(inTier(catalog, tier)) == 0 {
			missing = append(missing, tier)
		}
	}
	return missing
}

func inTier(catalog []model.CollectibleItem, tier model.RarityTier) []model.CollectibleItem {
	out := make([]model.CollectibleItem, 0, len(catalog))
	for _, item := range catalog {
		if item.RarityTier == tier {
			out = append(out, item)
		}
	}
	return out
}

func indexOf(tier model.RarityTier) int {
	for i, t := range model.RarityTiers {
		if t == tier {
			return i
		}
	}
	return -1
}
