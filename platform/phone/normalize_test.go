package phone

import "testing"

func TestNormalizeE164_BrazilianMobile(t *testing.T) {
	got := NormalizeE164("11 98765-4321")
	if got != "+5511987654321" {
		t.Fatalf("expected +5511987654321, got %q", got)
	}
}

func TestNormalizeE164_AlreadyInternational(t *testing.T) {
	got := NormalizeE164("+5511987654321")
	if got != "+5511987654321" {
		t.Fatalf("expected +5511987654321, got %q", got)
	}
}

func TestNormalizeE164_UnparseableInputPassesThrough(t *testing.T) {
	got := NormalizeE164("  not a number  ")
	if got != "not a number" {
		t.Fatalf("expected trimmed input back, got %q", got)
	}
}

func TestNormalizeE164_Empty(t *testing.T) {
	if got := NormalizeE164("   "); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
