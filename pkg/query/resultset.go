package query

import (
	"sort"
	"time"
)

// ResultSet is the outcome of one query: records keyed by their run
// timestamp, plus the records whose path carries no timestamp. Unkeyed
// records are never merged or overwritten.
type ResultSet struct {
	Category Category
	Keyed    map[string]Result
	Unkeyed  []Result
}

func newResultSet(cat Category) *ResultSet {
	return &ResultSet{
		Category: cat,
		Keyed:    make(map[string]Result, 16),
	}
}

// Len returns the total number of records.
func (s *ResultSet) Len() int {
	return len(s.Keyed) + len(s.Unkeyed)
}

// Get returns the record stored under key.
func (s *ResultSet) Get(key string) (Result, bool) {
	r, ok := s.Keyed[key]

	return r, ok
}

// Keys returns the record keys in sorted order.
func (s *ResultSet) Keys() []string {
	keys := make([]string, 0, len(s.Keyed))
	for k := range s.Keyed {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Results returns keyed records in key order followed by unkeyed records.
func (s *ResultSet) Results() []Result {
	out := make([]Result, 0, s.Len())
	for _, k := range s.Keys() {
		out = append(out, s.Keyed[k])
	}

	return append(out, s.Unkeyed...)
}

// put stores r under key, replacing any earlier record with the same key.
func (s *ResultSet) put(key string, keyed bool, r Result) {
	if !keyed {
		s.Unkeyed = append(s.Unkeyed, r)

		return
	}

	s.Keyed[key] = r
}

// addFile merges one misc file into the record sharing its key. Locations
// stay sorted so the outcome does not depend on enumeration order.
func (s *ResultSet) addFile(key string, keyed bool, dirname, location string, mtime time.Time) {
	if !keyed {
		s.Unkeyed = append(s.Unkeyed, &MiscResult{
			Dirname:   dirname,
			Locations: []string{location},
			ModTimes:  []time.Time{mtime},
		})

		return
	}

	existing, ok := s.Keyed[key].(*MiscResult)
	if !ok {
		s.Keyed[key] = &MiscResult{
			Dirname:   dirname,
			Locations: []string{location},
			ModTimes:  []time.Time{mtime},
		}

		return
	}

	idx := sort.SearchStrings(existing.Locations, location)
	if idx < len(existing.Locations) && existing.Locations[idx] == location {
		existing.ModTimes[idx] = mtime

		return
	}

	existing.Locations = append(existing.Locations, "")
	copy(existing.Locations[idx+1:], existing.Locations[idx:])
	existing.Locations[idx] = location

	existing.ModTimes = append(existing.ModTimes, time.Time{})
	copy(existing.ModTimes[idx+1:], existing.ModTimes[idx:])
	existing.ModTimes[idx] = mtime
}
