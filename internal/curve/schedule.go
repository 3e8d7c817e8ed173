// internal/curve/schedule.go
package curve

import (
	"github.com/rovshanmuradov/launchpad/internal/domain"
)

// FeeInfo describes where a pool is in its fee schedule.
type FeeInfo struct {
	ElapsedBlocks    uint64 `json:"elapsed_blocks"`
	CurrentTier      int    `json:"current_tier"`
	CurrentBps       uint64 `json:"current_bps"`
	FloorBps         uint64 `json:"floor_bps"`
	NextBps          uint64 `json:"next_bps"`
	BlocksToNextTier uint64 `json:"blocks_to_next_tier"`
	AtFloor          bool   `json:"at_floor"`
}

// tierAt returns the index of the tier active after elapsed blocks. Tiers are
// sorted by FromBlock and the first starts at 0.
func tierAt(tiers []domain.FeeTier, elapsed uint64) int {
	idx := 0
	for i, t := range tiers {
		if elapsed >= t.FromBlock {
			idx = i
		}
	}
	return idx
}

// CurrentFeeRate returns the fee in bps after elapsed blocks since launch.
// It never increases as elapsed grows.
func CurrentFeeRate(tiers []domain.FeeTier, elapsed uint64) uint64 {
	if len(tiers) == 0 {
		return 0
	}
	return tiers[tierAt(tiers, elapsed)].Bps
}

// Schedule builds FeeInfo for elapsed blocks since launch.
func Schedule(tiers []domain.FeeTier, elapsed uint64) FeeInfo {
	if len(tiers) == 0 {
		return FeeInfo{ElapsedBlocks: elapsed, AtFloor: true}
	}
	i := tierAt(tiers, elapsed)
	info := FeeInfo{
		ElapsedBlocks: elapsed,
		CurrentTier:   i,
		CurrentBps:    tiers[i].Bps,
		FloorBps:      tiers[len(tiers)-1].Bps,
		NextBps:       tiers[i].Bps,
		AtFloor:       i == len(tiers)-1,
	}
	if !info.AtFloor {
		info.NextBps = tiers[i+1].Bps
		info.BlocksToNextTier = tiers[i+1].FromBlock - elapsed
	}
	return info
}

func elapsedBlocks(pool domain.PoolState, block uint64) uint64 {
	if block < pool.LaunchBlock {
		return 0
	}
	return block - pool.LaunchBlock
}
