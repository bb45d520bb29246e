package negotiate

import (
	"sort"

	"github.com/samber/lo"
)

// Select picks the best candidate from a persona's advertised set.
//
// With a configured preference, alternatives are tried in order and the
// highest-bitrate match wins (lowest for "worst" alternatives). Without
// one, the documented default order applies: audio-only opus in webm,
// then m4a, then mp3, then the fixed legacy progressive id, then the
// best remaining progressive, then segmented as last resort.
func Select(candidates []Candidate, pref *Preference) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	if pref != nil && len(pref.Alternatives) > 0 {
		for _, rule := range pref.Alternatives {
			if c, ok := pickRule(candidates, rule); ok {
				return c, true
			}
		}
		return Candidate{}, false
	}
	return selectDefault(candidates)
}

func pickRule(candidates []Candidate, rule Rule) (Candidate, bool) {
	matched := lo.Filter(candidates, func(c Candidate, _ int) bool {
		for _, f := range rule.Filters {
			if !f.matches(c) {
				return false
			}
		}
		return true
	})
	if len(matched) == 0 {
		return Candidate{}, false
	}
	sortByQuality(matched)
	if rule.Worst {
		return matched[len(matched)-1], true
	}
	return matched[0], true
}

func selectDefault(candidates []Candidate) (Candidate, bool) {
	defaults := []Rule{
		{Filters: []Filter{
			{Key: "codec", Op: "=", Value: "opus"},
			{Key: "container", Op: "=", Value: "webm"},
		}},
		{Filters: []Filter{{Key: "container", Op: "=", Value: "m4a"}}},
		{Filters: []Filter{{Key: "container", Op: "=", Value: "mp3"}}},
		{Filters: []Filter{{Key: "id", Op: "=", Value: "18"}}},
		{Filters: []Filter{{Key: "proto", Op: "=", Value: string(ClassProgressive)}}},
		{Filters: []Filter{{Key: "proto", Op: "=", Value: string(ClassSegmented)}}},
	}
	for _, rule := range defaults {
		if c, ok := pickRule(candidates, rule); ok {
			return c, true
		}
	}
	// Nothing matched any tier; fall back to the best of whatever exists.
	sorted := append([]Candidate(nil), candidates...)
	sortByQuality(sorted)
	return sorted[0], true
}

// sortByQuality orders audio-only candidates before mixed ones, then by
// descending bitrate, with the format id as a stable tiebreaker.
func sortByQuality(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].AudioOnly != candidates[j].AudioOnly {
			return candidates[i].AudioOnly
		}
		if candidates[i].Bitrate != candidates[j].Bitrate {
			return candidates[i].Bitrate > candidates[j].Bitrate
		}
		return candidates[i].ID > candidates[j].ID
	})
}
