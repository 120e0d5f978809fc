// Package service implements broker gamification: XP awards and penalties,
// level progression and performance counters, driven by assignment lifecycle
// events.
package service

// XP awards per event. A fast accept replaces the base award, it does not
// stack on top of it.
const (
	XPAccept     = 10
	XPFastAccept = 25
	XPVisit      = 15
	XPSale       = 100

	// XPExpirePenalty is subtracted on expiration; totals never go below zero.
	XPExpirePenalty = 5

	// FastAcceptThresholdSeconds is the accept latency under which the fast
	// award applies.
	FastAcceptThresholdSeconds = 300

	// LevelBase is the XP width of one level. Level is xp/LevelBase + 1, so a
	// fresh broker starts at level 1.
	LevelBase = 100
)

// Level computes the level for an XP total.
func Level(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/LevelBase + 1
}

// AcceptAward returns the XP for an accept with the given latency.
func AcceptAward(timeToAcceptSeconds int64) int {
	if timeToAcceptSeconds < FastAcceptThresholdSeconds {
		return XPFastAccept
	}
	return XPAccept
}

// ApplyExpire returns the XP total after an expiration penalty, clamped at
// zero.
func ApplyExpire(xp int) int {
	xp -= XPExpirePenalty
	if xp < 0 {
		return 0
	}
	return xp
}

// NextAvgResponse folds one more accept latency into the running average.
// The first sample becomes the average directly; afterwards each new sample
// is averaged against the previous value. The repository's SQL mirrors this
// exactly, so tests against this function pin the persisted behavior.
func NextAvgResponse(current *float64, sampleSeconds int64) float64 {
	if current == nil {
		return float64(sampleSeconds)
	}
	return (*current + float64(sampleSeconds)) / 2
}
