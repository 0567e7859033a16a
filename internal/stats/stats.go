// Package stats derives dashboard figures from observation snapshots. Every
// function is pure: given the same snapshot it returns the same result, and
// nothing here ever mutates a record.
package stats

import "time"

// DailyBucket is one charted day of a weekly series.
type DailyBucket struct {
	Day     time.Time `json:"day"`
	Average float64   `json:"average"`
	Count   int       `json:"count"`
}

// Share is one category's slice of a distribution.
type Share struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// TotalCount returns the number of records in the snapshot.
func TotalCount[T any](records []T) int {
	return len(records)
}

// MostCommon returns the key with the highest occurrence count. Ties resolve
// to the first key that reaches the maximum in snapshot iteration order,
// which is deterministic for a given snapshot. ok is false for an empty
// snapshot.
func MostCommon[T any, K comparable](records []T, key func(T) K) (K, bool) {
	var best K
	if len(records) == 0 {
		return best, false
	}

	counts := make(map[K]int, len(records))
	bestCount := 0
	for _, r := range records {
		k := key(r)
		counts[k]++
		if counts[k] > bestCount {
			best = k
			bestCount = counts[k]
		}
	}
	return best, true
}

// Average returns the mean of value over the snapshot. ok is false for an
// empty snapshot; there is no division by zero path.
func Average[T any](records []T, value func(T) float64) (float64, bool) {
	if len(records) == 0 {
		return 0, false
	}
	var sum float64
	for _, r := range records {
		sum += value(r)
	}
	return sum / float64(len(records)), true
}

// CountOnDay counts records whose timestamp falls on the same calendar day
// as reference, in reference's location.
func CountOnDay[T any](records []T, timestamp func(T) time.Time, reference time.Time) int {
	n := 0
	for _, r := range records {
		if sameDay(timestamp(r), reference) {
			n++
		}
	}
	return n
}

// WeeklySeries buckets records into the 7 calendar days ending at reference
// (inclusive), oldest first. All 7 days are evaluated from calendar dates;
// days that end up with zero records are omitted from the returned series,
// so the chart only carries real points while the window itself stays fixed.
func WeeklySeries[T any](records []T, timestamp func(T) time.Time, value func(T) float64, reference time.Time) []DailyBucket {
	series := make([]DailyBucket, 0, 7)

	for offset := 6; offset >= 0; offset-- {
		day := startOfDay(reference).AddDate(0, 0, -offset)

		var sum float64
		count := 0
		for _, r := range records {
			if sameDay(timestamp(r), day) {
				sum += value(r)
				count++
			}
		}

		if count > 0 {
			series = append(series, DailyBucket{Day: day, Average: sum / float64(count), Count: count})
		}
	}

	return series
}

// Distribution counts records per key and computes each key's percentage of
// the snapshot total. Percentages over exhaustive categories sum to 100
// within rounding.
func Distribution[T any, K comparable](records []T, key func(T) K) map[K]Share {
	dist := make(map[K]Share)
	total := len(records)
	if total == 0 {
		return dist
	}

	for _, r := range records {
		k := key(r)
		s := dist[k]
		s.Count++
		dist[k] = s
	}
	for k, s := range dist {
		s.Percent = float64(s.Count) / float64(total) * 100
		dist[k] = s
	}
	return dist
}

// SectionTitle classifies a timestamp for history grouping. Precedence is
// Today > Yesterday > This Week > Earlier; "This Week" runs from the week
// start (Monday) up to reference.
func SectionTitle(t, reference time.Time) string {
	if sameDay(t, reference) {
		return "Today"
	}
	if sameDay(t, reference.AddDate(0, 0, -1)) {
		return "Yesterday"
	}
	if !t.Before(StartOfWeek(reference)) {
		return "This Week"
	}
	return "Earlier"
}

// StartOfWeek returns midnight of the Monday of t's week, in t's location.
func StartOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	// time.Weekday counts Sunday as 0.
	back := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -back)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
