//go:build !integration

package reco

import (
	"math"
	"testing"
	"time"

	"campusBooks/domain"
)

func TestRecencyBoost(t *testing.T) {
	cfg := DefaultConfig()

	for _, age := range []int{-3, 0, 1, 7} {
		if got := cfg.RecencyBoost(age); got != 1 {
			t.Fatalf("age %d: expected 1, got %v", age, got)
		}
	}

	want := math.Exp(-0.1 * 3)
	if got := cfg.RecencyBoost(10); math.Abs(got-want) > 1e-12 {
		t.Fatalf("age 10: expected %v, got %v", want, got)
	}

	prev := cfg.RecencyBoost(7)
	for age := 8; age < 200; age++ {
		got := cfg.RecencyBoost(age)
		if got >= prev || got < 0 {
			t.Fatalf("boost not strictly decreasing at age %d: %v >= %v", age, got, prev)
		}
		prev = got
	}
}

func TestSignalWeight(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		kind domain.SignalKind
		age  time.Duration
		want float64
	}{
		{domain.SignalClick, time.Hour, 1.0},
		{domain.SignalWishlist, 24 * time.Hour, 0.7},
		{domain.SignalView, 0, 0.3},
		{domain.SignalClick, 17 * 24 * time.Hour, math.Exp(-1)},
	}

	for _, tt := range tests {
		got, err := cfg.SignalWeight(tt.kind, tt.age)
		if err != nil {
			t.Fatalf("%s: %v", tt.kind, err)
		}
		if math.Abs(got-tt.want) > 1e-12 {
			t.Fatalf("%s age %v: expected %v, got %v", tt.kind, tt.age, tt.want, got)
		}
	}

	if _, err := cfg.SignalWeight("SHARE", 0); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestAffinitiesKeepStrongest(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	got := cfg.affinities(now, []domain.BehaviorSignal{
		{ListingID: 1, Kind: domain.SignalView, CreatedAt: now},
		{ListingID: 1, Kind: domain.SignalClick, CreatedAt: now},
		{ListingID: 2, Kind: domain.SignalWishlist, CreatedAt: now},
	})

	if got[1] != 1.0 || got[2] != 0.7 {
		t.Fatalf("unexpected affinities: %v", got)
	}
}

func TestNormalizeISBN(t *testing.T) {
	tests := map[string]string{
		"978-0-13-468599-1": "9780134685991",
		" 0 306 40615 x ":   "030640615X",
		"9780134685991":     "9780134685991",
		"n/a":               "",
	}
	for in, want := range tests {
		if got := normalizeISBN(in); got != want {
			t.Fatalf("normalizeISBN(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeISBN_ASCIIDigitsOnly(t *testing.T) {
	// Arabic-Indic and full-width digits are dropped like in the SQL key
	tests := []struct{ in, want string }{
		{"\u0669\u0667\u0668-0-13", "013"},
		{"\uff19\uff17\uff180134", "0134"},
	}
	for _, tt := range tests {
		if got := normalizeISBN(tt.in); got != tt.want {
			t.Fatalf("normalizeISBN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractFeatures(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	anchors := newAnchors([]domain.Listing{
		{ID: 1, ISBN: "978-0-13-468599-1", Subject: "Calculus", Department: "Math"},
		{ID: 2, Subject: "Organic Chemistry", Department: "Chemistry"},
	}, map[uint64]float64{1: 0.3, 2: 1.0})

	f, aff := extractFeatures(now, domain.Listing{
		ID:         10,
		ISBN:       "9780134685991",
		Subject:    " calculus ",
		Department: "Physics",
		CreatedAt:  now.AddDate(0, 0, -3),
	}, anchors)

	if !f.ISBNMatch || !f.SubjectMatch || f.DepartmentMatch {
		t.Fatalf("unexpected features: %+v", f)
	}
	if f.AgeInDays != 3 {
		t.Fatalf("expected age 3, got %d", f.AgeInDays)
	}
	if aff != 0.3 {
		t.Fatalf("expected affinity 0.3, got %v", aff)
	}

	_, aff = extractFeatures(now, domain.Listing{ID: 11, Department: "chemistry"}, anchors)
	if aff != 1.0 {
		t.Fatalf("expected affinity 1.0, got %v", aff)
	}
}
