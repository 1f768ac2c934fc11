// Package merge combines N independent extraction passes over the same
// chunks with a first-pass-wins, same-class non-overlap policy.
package merge

import "github.com/groundedtext/extract/internal/extract"

// Merge combines passes, an ordered list of one extraction list per pass,
// under a first-pass-wins policy: the first pass is the baseline, and each
// subsequent pass contributes only extractions whose char interval does
// not overlap an already-accepted extraction of the same class.
// Extractions with no char interval (UNALIGNED) are always kept. Output
// preserves original order within each pass and pass order across passes.
func Merge(passes [][]extract.Extraction) []extract.Extraction {
	var accepted []extract.Extraction
	for _, pass := range passes {
		for _, e := range pass {
			if e.CharInterval == nil || !overlapsSameClass(e, accepted) {
				accepted = append(accepted, e)
			}
		}
	}
	return accepted
}

func overlapsSameClass(e extract.Extraction, accepted []extract.Extraction) bool {
	for _, a := range accepted {
		if a.Class != e.Class || a.CharInterval == nil {
			continue
		}
		if a.CharInterval.Overlaps(*e.CharInterval) {
			return true
		}
	}
	return false
}
