package service

import "testing"

func TestAcceptAward(t *testing.T) {
	tests := []struct {
		name string
		tta  int64
		want int
	}{
		{"instant accept", 0, XPFastAccept},
		{"just under threshold", FastAcceptThresholdSeconds - 1, XPFastAccept},
		{"at threshold", FastAcceptThresholdSeconds, XPAccept},
		{"slow accept", 3600, XPAccept},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AcceptAward(tt.tta); got != tt.want {
				t.Errorf("AcceptAward(%d) = %d, want %d", tt.tta, got, tt.want)
			}
		})
	}
	if XPFastAccept <= XPAccept {
		t.Errorf("fast accept must award strictly more than a regular accept")
	}
}

func TestApplyExpireClampsAtZero(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{100, 95},
		{XPExpirePenalty, 0},
		{3, 0},
		{0, 0},
	}
	for _, tt := range tests {
		if got := ApplyExpire(tt.xp); got != tt.want {
			t.Errorf("ApplyExpire(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{250, 3},
		{-10, 1},
	}
	for _, tt := range tests {
		if got := Level(tt.xp); got != tt.want {
			t.Errorf("Level(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestNextAvgResponse(t *testing.T) {
	// First sample lands directly.
	if got := NextAvgResponse(nil, 120); got != 120 {
		t.Errorf("first sample = %v, want 120", got)
	}

	// Each later sample averages against the previous value, so older
	// samples decay geometrically rather than weighting all samples equally.
	first := 120.0
	if got := NextAvgResponse(&first, 60); got != 90 {
		t.Errorf("second sample = %v, want 90", got)
	}
	second := 90.0
	if got := NextAvgResponse(&second, 30); got != 60 {
		t.Errorf("third sample = %v, want 60", got)
	}
}
