// Package evidence locates transcript excerpts matching a search term,
// together with surrounding context segments.
package evidence

import (
	"iter"
	"strings"

	"radioaudit-backend/models"
)

// Extract returns a lazy sequence of evidence items for term over segments.
// Matching is a case-insensitive substring search on segment text. Each hit
// yields a SUPPORTING item; non-matching segments within contextWindow
// seconds before or after any hit yield CONTEXTUAL items. Items are ordered
// by timestamp ascending. No hits yields an empty sequence.
//
// The sequence is restartable: ranging over it twice re-runs the search.
func Extract(segments []models.TranscriptSegment, term string, contextWindow float64) iter.Seq[models.Evidence] {
	return func(yield func(models.Evidence) bool) {
		needle := strings.ToLower(strings.TrimSpace(term))
		if needle == "" {
			return
		}

		hits := make([]bool, len(segments))
		any := false
		for i, seg := range segments {
			if strings.Contains(strings.ToLower(seg.Text), needle) {
				hits[i] = true
				any = true
			}
		}
		if !any {
			return
		}

		for i, seg := range segments {
			relevance := models.EvidenceRelevance("")
			if hits[i] {
				relevance = models.EvidenceSupporting
			} else if nearHit(segments, hits, i, contextWindow) {
				relevance = models.EvidenceContextual
			} else {
				continue
			}

			ev := models.Evidence{
				Timestamp: models.FormatTimestamp(seg.StartTime),
				Text:      seg.Text,
				Relevance: relevance,
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// Collect drains the sequence into a slice
func Collect(seq iter.Seq[models.Evidence]) []models.Evidence {
	var out []models.Evidence
	for ev := range seq {
		out = append(out, ev)
	}
	return out
}

// nearHit reports whether segment i falls within window seconds of any
// matching segment.
func nearHit(segments []models.TranscriptSegment, hits []bool, i int, window float64) bool {
	if window <= 0 {
		return false
	}
	seg := segments[i]
	for j, other := range segments {
		if !hits[j] {
			continue
		}
		// Gap between the two segments' spans, zero when they overlap.
		gap := 0.0
		if seg.StartTime > other.EndTime {
			gap = seg.StartTime - other.EndTime
		} else if other.StartTime > seg.EndTime {
			gap = other.StartTime - seg.EndTime
		}
		if gap <= window {
			return true
		}
	}
	return false
}
