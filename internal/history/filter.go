package history

import "time"

// FilterByRange keeps items no older than days*24h before now. An item exactly
// at the boundary is kept.
func FilterByRange(items []Item, days int, now time.Time) []Item {
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	filtered := make([]Item, 0, len(items))
	for _, item := range items {
		if !item.Timestamp.Before(cutoff) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// DayGroup is a set of items sharing a calendar day.
type DayGroup struct {
	Day   time.Time
	Items []Item
}

// GroupByDay buckets items by their calendar day in loc, preserving order.
// Newest-first input yields newest-first groups.
func GroupByDay(items []Item, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.Local
	}
	var groups []DayGroup
	index := make(map[string]int)
	for _, item := range items {
		local := item.Timestamp.In(loc)
		key := local.Format(time.DateOnly)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{
				Day: time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc),
			})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}
