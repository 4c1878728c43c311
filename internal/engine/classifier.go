package engine

import (
	"sort"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Classify maps a calibrated state score onto the tenant's ordered
// state bands. States are data, not code: a band matches when its
// threshold is <= the score. With no match the default state applies.
//
// Among matches, severity-ranked states override the plain
// highest-threshold pick: the highest rank wins, with threshold then
// name as deterministic tie-breaks. Bands without an explicit rank fall
// back to the built-in ranking of the two well-known severity names, so
// existing configurations classify exactly as before.
func Classify(bands []domain.StateBand, stateScore float64) string {
	matches := make([]domain.StateBand, 0, len(bands))
	for _, b := range bands {
		if stateScore >= b.Threshold {
			matches = append(matches, b)
		}
	}
	if len(matches) == 0 {
		return domain.StateDefault
	}

	for i := range matches {
		if matches[i].SeverityRank == 0 {
			matches[i].SeverityRank = domain.DefaultSeverityRank(matches[i].Name)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.SeverityRank != b.SeverityRank {
			return a.SeverityRank > b.SeverityRank
		}
		if a.Threshold != b.Threshold {
			return a.Threshold > b.Threshold
		}
		return a.Name < b.Name
	})

	return matches[0].Name
}
