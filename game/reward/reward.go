// Package reward maps the outcome of a finished game to a reward tier.
//
// Tiers are configuration data. A Table resolves the highest tile a game
// reached; a TimeTable resolves how long the game took.
package reward

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wricardo/mcp-training/mergegame/game/engine"
)

var (
	ErrDuplicateTier = errors.New("duplicate tier threshold")
	ErrInvalidTier   = errors.New("invalid tier")
)

// Tier describes what a player earns
type Tier struct {
	Name        string `json:"name"`
	MinTile     int    `json:"min_tile,omitempty"`
	MaxElapsed  int    `json:"max_seconds,omitempty"`
	Gold        int    `json:"gold"`
	Gems        int    `json:"gems"`
	BonusStat   string `json:"bonus_stat,omitempty"`
	BonusAmount int    `json:"bonus_amount,omitempty"`
}

// Table resolves tiers by highest tile. Tiers are kept in ascending MinTile order.
type Table struct {
	tiers []Tier
}

// NewTable validates and sorts tiers
func NewTable(tiers []Tier) (*Table, error) {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinTile < sorted[j].MinTile })

	for i, tier := range sorted {
		if tier.Name == "" || tier.MinTile <= 0 {
			return nil, fmt.Errorf("%w: %+v", ErrInvalidTier, tier)
		}
		if i > 0 && sorted[i-1].MinTile == tier.MinTile {
			return nil, fmt.Errorf("%w: min_tile %d", ErrDuplicateTier, tier.MinTile)
		}
	}
	return &Table{tiers: sorted}, nil
}

// DefaultTable is used when a game config carries no tiers. It names the
// milestones without granting anything.
func DefaultTable() *Table {
	return &Table{tiers: []Tier{
		{Name: "tile-128", MinTile: 128},
		{Name: "tile-512", MinTile: 512},
		{Name: "tile-2048", MinTile: 2048},
	}}
}

// FromConfig builds a Table from config tiers, falling back to DefaultTable
func FromConfig(tiers []engine.RewardTier) (*Table, error) {
	if len(tiers) == 0 {
		return DefaultTable(), nil
	}
	converted := make([]Tier, 0, len(tiers))
	for _, t := range tiers {
		converted = append(converted, Tier{
			Name:        t.Name,
			MinTile:     t.MinTile,
			Gold:        t.Gold,
			Gems:        t.Gems,
			BonusStat:   t.BonusStat,
			BonusAmount: t.BonusAmount,
		})
	}
	return NewTable(converted)
}

// Resolve returns the best tier whose MinTile is at most highestTile
func (t *Table) Resolve(highestTile int) (Tier, bool) {
	idx := sort.Search(len(t.tiers), func(i int) bool { return t.tiers[i].MinTile > highestTile })
	if idx == 0 {
		return Tier{}, false
	}
	return t.tiers[idx-1], true
}

// Tiers returns a copy of the tiers in ascending order
func (t *Table) Tiers() []Tier {
	out := make([]Tier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// TimeTable resolves tiers by elapsed time. Faster is better; tiers are kept
// in ascending MaxElapsed order.
type TimeTable struct {
	tiers []Tier
}

// NewTimeTable validates and sorts tiers by MaxElapsed (seconds)
func NewTimeTable(tiers []Tier) (*TimeTable, error) {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MaxElapsed < sorted[j].MaxElapsed })

	for i, tier := range sorted {
		if tier.Name == "" || tier.MaxElapsed <= 0 {
			return nil, fmt.Errorf("%w: %+v", ErrInvalidTier, tier)
		}
		if i > 0 && sorted[i-1].MaxElapsed == tier.MaxElapsed {
			return nil, fmt.Errorf("%w: max_seconds %d", ErrDuplicateTier, tier.MaxElapsed)
		}
	}
	return &TimeTable{tiers: sorted}, nil
}

// TimeTableFromConfig builds a TimeTable from config tiers. An empty list
// yields an empty table that never resolves.
func TimeTableFromConfig(tiers []engine.TimeRewardTier) (*TimeTable, error) {
	converted := make([]Tier, 0, len(tiers))
	for _, t := range tiers {
		converted = append(converted, Tier{
			Name:        t.Name,
			MaxElapsed:  t.MaxSeconds,
			Gold:        t.Gold,
			Gems:        t.Gems,
			BonusStat:   t.BonusStat,
			BonusAmount: t.BonusAmount,
		})
	}
	return NewTimeTable(converted)
}

// ResolveElapsed returns the fastest tier whose limit d fits within
func (t *TimeTable) ResolveElapsed(d time.Duration) (Tier, bool) {
	if d < 0 {
		return Tier{}, false
	}
	for _, tier := range t.tiers {
		if d <= time.Duration(tier.MaxElapsed)*time.Second {
			return tier, true
		}
	}
	return Tier{}, false
}

// Len returns the number of tiers
func (t *TimeTable) Len() int {
	return len(t.tiers)
}
