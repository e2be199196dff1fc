package models

// LatestPerCity reduces a reading sequence to at most one reading per city:
// the one with the maximum timestamp. Rows for cities outside the given set
// are ignored. Equal timestamps resolve to the row appearing earlier in rows;
// store queries return newest first with a deterministic secondary order, so
// the projection is stable across refetches.
func LatestPerCity[T Reading](rows []T, cities []string) map[string]T {
	tracked := make(map[string]struct{}, len(cities))
	for _, c := range cities {
		tracked[c] = struct{}{}
	}

	latest := make(map[string]T, len(cities))
	for _, row := range rows {
		c := row.ReadingCity()
		if _, ok := tracked[c]; !ok {
			continue
		}
		cur, ok := latest[c]
		if !ok || row.ReadingTime().After(cur.ReadingTime()) {
			latest[c] = row
		}
	}
	return latest
}
