package reco

import (
	"strings"
	"time"

	"campusBooks/domain"
)

// normalizeISBN strips separators so "978-0-13-468599-1" and "9780134685991" match.
// Only ASCII digits and X survive, mirroring the SQL key expression.
func normalizeISBN(isbn string) string {
	var b strings.Builder
	b.Grow(len(isbn))
	for _, r := range isbn {
		switch {
		case r >= '0' && r <= '9', r == 'X':
			b.WriteRune(r)
		case r == 'x':
			b.WriteRune('X')
		}
	}
	return b.String()
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// anchor is a history listing with the user's affinity to it.
type anchor struct {
	listing  domain.Listing
	isbn     string
	subject  string
	dept     string
	affinity float64
}

func newAnchors(listings []domain.Listing, affinity map[uint64]float64) []anchor {
	out := make([]anchor, 0, len(listings))
	for _, l := range listings {
		out = append(out, anchor{
			listing:  l,
			isbn:     normalizeISBN(l.ISBN),
			subject:  normalizeText(l.Subject),
			dept:     normalizeText(l.Department),
			affinity: affinity[l.ID],
		})
	}
	return out
}

func matchKeys(anchors []anchor) MatchKeys {
	var keys MatchKeys
	seen := make(map[string]struct{})

	add := func(dst *[]string, prefix, v string) {
		if v == "" {
			return
		}
		k := prefix + v
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		*dst = append(*dst, v)
	}

	for _, a := range anchors {
		add(&keys.ISBNs, "i:", a.isbn)
		add(&keys.Subjects, "s:", a.subject)
		add(&keys.Departments, "d:", a.dept)
	}
	return keys
}

// extractFeatures compares a listing against every anchor. A feature matches
// when any anchor shares it; affinity is the strongest matching anchor's weight.
func extractFeatures(now time.Time, l domain.Listing, anchors []anchor) (Features, float64) {
	f := Features{AgeInDays: ageInDays(now, l.CreatedAt)}
	isbn := normalizeISBN(l.ISBN)
	subject := normalizeText(l.Subject)
	dept := normalizeText(l.Department)

	var affinity float64
	for _, a := range anchors {
		matched := false
		if isbn != "" && isbn == a.isbn {
			f.ISBNMatch = true
			matched = true
		}
		if subject != "" && subject == a.subject {
			f.SubjectMatch = true
			matched = true
		}
		if dept != "" && dept == a.dept {
			f.DepartmentMatch = true
			matched = true
		}
		if matched && a.affinity > affinity {
			affinity = a.affinity
		}
	}
	return f, affinity
}
