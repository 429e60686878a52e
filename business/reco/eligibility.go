package reco

// eligibility decides whether a listing may be shown to the requesting user.
// Listings the user sells, already bought, or just interacted with are excluded.
type eligibility struct {
	userID   uint
	excluded map[uint64]struct{}
}

func newEligibility(userID uint, excludedIDs ...[]uint64) eligibility {
	e := eligibility{userID: userID, excluded: make(map[uint64]struct{})}
	for _, ids := range excludedIDs {
		for _, id := range ids {
			e.excluded[id] = struct{}{}
		}
	}
	return e
}

func (e eligibility) allows(listingID uint64, sellerID uint) bool {
	if e.userID != AnonymousUser && sellerID == e.userID {
		return false
	}
	_, blocked := e.excluded[listingID]
	return !blocked
}
