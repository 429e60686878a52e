package tracking

import (
	"fmt"
	"time"

	"campusBooks/domain"

	"github.com/pobyzaarif/goshortcute"
)

const dayLayout = "2006-01-02"

// dayStart is midnight of t's calendar day in loc.
func dayStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ttlUntilNextDay is the time left until the next day boundary in loc, never below one second.
func ttlUntilNextDay(t time.Time, loc *time.Location) time.Duration {
	next := dayStart(t, loc).AddDate(0, 0, 1)
	ttl := next.Sub(t)
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}

// dedupKey identifies one impression per session, type and day. The session
// id is client supplied, so it is encoded to keep the key free of separators.
func dedupKey(sessionID string, t domain.RecommendationType, day time.Time) string {
	return fmt.Sprintf("reco:imp:%s:%s:%s", goshortcute.StringtoBase64Encode(sessionID), t, day.Format(dayLayout))
}
