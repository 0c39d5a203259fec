package links

import (
	"sort"
	"time"
)

const unknownDimension = "Unknown"

func aggregateEvents(events []ClickEvent) *Analytics {
	byDate := make(map[string]int)
	byCountry := make(map[string]int)
	byDevice := make(map[string]int)
	byBrowser := make(map[string]int)
	unique := make(map[string]struct{})

	for _, e := range events {
		byDate[e.Timestamp.UTC().Format(time.DateOnly)]++
		byCountry[orUnknown(e.Country)]++
		byDevice[orUnknown(e.Device)]++
		byBrowser[orUnknown(e.Browser)]++
		unique[e.Country+"|"+e.Device] = struct{}{}
	}

	out := &Analytics{
		TotalClicks:     len(events),
		ClicksByDate:    sortedDateCounts(byDate),
		ClicksByCountry: sortedFieldCounts(byCountry),
		ClicksByDevice:  sortedFieldCounts(byDevice),
		ClicksByBrowser: sortedFieldCounts(byBrowser),
	}
	if len(events) > 0 {
		out.UniqueClicks = len(unique)
	}
	return out
}

func orUnknown(v string) string {
	if v == "" {
		return unknownDimension
	}
	return v
}

func sortedDateCounts(counts map[string]int) []DateCount {
	out := make([]DateCount, 0, len(counts))
	for date, clicks := range counts {
		out = append(out, DateCount{Date: date, Clicks: clicks})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func sortedFieldCounts(counts map[string]int) []FieldCount {
	out := make([]FieldCount, 0, len(counts))
	for key, clicks := range counts {
		out = append(out, FieldCount{Key: key, Clicks: clicks})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
