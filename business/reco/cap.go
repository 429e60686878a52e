package reco

import "sort"

// capCandidates keeps the limit strongest candidates: highest affinity first,
// then newest listing, then lowest id.
func capCandidates(cands []Candidate, limit int) []Candidate {
	if limit <= 0 {
		return cands[:0]
	}
	if len(cands) <= limit {
		return cands
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Affinity != cands[j].Affinity {
			return cands[i].Affinity > cands[j].Affinity
		}
		if !cands[i].CreatedAt.Equal(cands[j].CreatedAt) {
			return cands[i].CreatedAt.After(cands[j].CreatedAt)
		}
		return cands[i].ListingID < cands[j].ListingID
	})

	return cands[:limit]
}
