package reco

import "sort"

// ContentScore is the weighted feature match plus the recency boost.
func (c Config) ContentScore(f Features) float64 {
	return c.IsbnWeight*boolToFloat(f.ISBNMatch) +
		c.SubjectWeight*boolToFloat(f.SubjectMatch) +
		c.DepartmentWeight*boolToFloat(f.DepartmentMatch) +
		c.RecencyWeight*c.RecencyBoost(f.AgeInDays)
}

// collaborativeScore normalizes a co-occurrence count against the strongest
// count in the request, both capped at countCap when it is positive.
func collaborativeScore(count, maxCount int64, countCap int) float64 {
	if count <= 0 || maxCount <= 0 {
		return 0
	}
	if countCap > 0 {
		capped := int64(countCap)
		count = min(count, capped)
		maxCount = min(maxCount, capped)
	}
	return clamp01(float64(count) / float64(maxCount))
}

// scoreCandidates blends content and collaborative evidence for every
// candidate and sorts by score desc, newer listing first on ties.
func (c Config) scoreCandidates(cands []Candidate, w BlendWeights) []ScoredCandidate {
	var maxCount int64
	for _, cand := range cands {
		if cand.CoOccurrence > maxCount {
			maxCount = cand.CoOccurrence
		}
	}

	out := make([]ScoredCandidate, 0, len(cands))
	for _, cand := range cands {
		content := c.ContentScore(cand.Features)
		collab := collaborativeScore(cand.CoOccurrence, maxCount, c.CollaborativeCountCap)
		score := w.ContentWeight*content + w.CollaborativeWeight*collab

		out = append(out, ScoredCandidate{
			Candidate: cand,
			Score:     score,
			Breakdown: map[string]float64{
				"content":              content,
				"collaborative":        collab,
				"isbn":                 c.IsbnWeight * boolToFloat(cand.Features.ISBNMatch),
				"subject":              c.SubjectWeight * boolToFloat(cand.Features.SubjectMatch),
				"department":           c.DepartmentWeight * boolToFloat(cand.Features.DepartmentMatch),
				"recency":              c.RecencyWeight * c.RecencyBoost(cand.Features.AgeInDays),
				"affinity":             cand.Affinity,
				"content_weight":       w.ContentWeight,
				"collaborative_weight": w.CollaborativeWeight,
			},
		})
	}

	sortScored(out)
	return out
}

func sortScored(list []ScoredCandidate) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ListingID < list[j].ListingID
	})
}
