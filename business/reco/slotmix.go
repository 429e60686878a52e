package reco

import (
	"math"
	"math/rand"

	"campusBooks/domain"
)

// Rand is the random source used for exploration.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// globalRand uses the concurrency-safe top-level math/rand functions.
type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) Intn(n int) int   { return rand.Intn(n) }

// PlanSlots splits size into the four slots. Explore gets floor(size*epsilon)
// capped at ExploreSize; the rest is split by normalized ratios with the
// rounding remainder going to personalized, so the counts always sum to size.
func (c Config) PlanSlots(size int) SlotPlan {
	if size <= 0 {
		return SlotPlan{}
	}

	ratioSum := c.PersonalizedRatio + c.PopularRatio + c.FreshRatio
	if ratioSum <= 0 {
		return SlotPlan{Personalized: size}
	}

	explore := int(math.Floor(float64(size) * c.ExploreEpsilon))
	explore = max(0, min(explore, c.ExploreSize, size))
	rest := size - explore

	popular := int(math.Floor(float64(rest) * c.PopularRatio / ratioSum))
	fresh := int(math.Floor(float64(rest) * c.FreshRatio / ratioSum))

	return SlotPlan{
		Personalized: rest - popular - fresh,
		Popular:      popular,
		Fresh:        fresh,
		Explore:      explore,
	}
}

// slotSource walks one ranked source in order, skipping already chosen ids.
type slotSource struct {
	items []domain.RecommendedItem
	next  int
}

func (s *slotSource) takeOne(p *picks) bool {
	for s.next < len(s.items) {
		it := s.items[s.next]
		s.next++
		if p.add(it) {
			return true
		}
	}
	return false
}

func (s *slotSource) take(p *picks, n int) int {
	taken := 0
	for taken < n && s.takeOne(p) {
		taken++
	}
	return taken
}

// picks is the insertion-ordered result with id dedup.
type picks struct {
	size  int
	items []domain.RecommendedItem
	seen  map[uint64]struct{}
}

func newPicks(size int) *picks {
	return &picks{
		size:  size,
		items: make([]domain.RecommendedItem, 0, size),
		seen:  make(map[uint64]struct{}, size),
	}
}

func (p *picks) full() bool {
	return len(p.items) >= p.size
}

func (p *picks) add(it domain.RecommendedItem) bool {
	if p.full() {
		return false
	}
	if _, dup := p.seen[it.ListingID]; dup {
		return false
	}
	p.seen[it.ListingID] = struct{}{}
	p.items = append(p.items, it)
	return true
}

// mixSlots fills slots in order personalized, popular, fresh, explore. A
// slot's shortfall carries into the next one. Each explore slot draws a
// uniformly random unchosen listing with probability epsilon and otherwise
// continues the popular/fresh fallback. Leftovers top the list up at the end.
func mixSlots(plan SlotPlan, personalized, popular, fresh []domain.RecommendedItem, epsilon float64, rnd Rand) []domain.RecommendedItem {
	p := newPicks(plan.Total())
	pers := &slotSource{items: personalized}
	pop := &slotSource{items: popular}
	frs := &slotSource{items: fresh}

	short := plan.Personalized - pers.take(p, plan.Personalized)

	want := plan.Popular + short
	short = want - pop.take(p, want)

	want = plan.Fresh + short
	short = want - frs.take(p, want)

	for i := 0; i < plan.Explore+short && !p.full(); i++ {
		if epsilon > 0 && rnd.Float64() < epsilon {
			if it, ok := randomUnchosen(p, rnd, fresh, popular, personalized); ok {
				p.add(it)
				continue
			}
		}
		if pop.takeOne(p) || frs.takeOne(p) {
			continue
		}
		if it, ok := randomUnchosen(p, rnd, fresh, popular, personalized); ok {
			p.add(it)
		}
	}

	for !p.full() {
		if !pers.takeOne(p) && !pop.takeOne(p) && !frs.takeOne(p) {
			break
		}
	}

	return p.items
}

// randomUnchosen draws uniformly among listings of the given sources that are not picked yet.
func randomUnchosen(p *picks, rnd Rand, sources ...[]domain.RecommendedItem) (domain.RecommendedItem, bool) {
	pool := make([]uint64, 0)
	seen := make(map[uint64]struct{})
	for _, src := range sources {
		for _, it := range src {
			if _, chosen := p.seen[it.ListingID]; chosen {
				continue
			}
			if _, dup := seen[it.ListingID]; dup {
				continue
			}
			seen[it.ListingID] = struct{}{}
			pool = append(pool, it.ListingID)
		}
	}
	if len(pool) == 0 {
		return domain.RecommendedItem{}, false
	}

	return domain.RecommendedItem{
		ListingID:   pool[rnd.Intn(len(pool))],
		SourceLabel: domain.SlotExplore,
		Score:       0,
	}, true
}

func personalizedItems(scored []ScoredCandidate) []domain.RecommendedItem {
	out := make([]domain.RecommendedItem, 0, len(scored))
	for _, sc := range scored {
		out = append(out, domain.RecommendedItem{
			ListingID:   sc.ListingID,
			SourceLabel: domain.SlotPersonalized,
			Score:       sc.Score,
		})
	}
	return out
}

func poolItems(entries []PoolEntry, label domain.SlotLabel, elig eligibility) []domain.RecommendedItem {
	out := make([]domain.RecommendedItem, 0, len(entries))
	for _, e := range entries {
		if !elig.allows(e.ListingID, e.SellerID) {
			continue
		}
		out = append(out, domain.RecommendedItem{
			ListingID:   e.ListingID,
			SourceLabel: label,
			Score:       e.Strength,
		})
	}
	return out
}
