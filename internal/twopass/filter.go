package twopass

import (
	"sort"

	"github.com/faughnn/factreel/internal/model"
)

// FilterConfig is the §6 two-pass knob set.
type FilterConfig struct {
	TargetCount         int // preferred kept count rule 3 aims to fill toward, before falling back to the MinCount floor
	MinCount            int
	MaxCount            int
	QualityThreshold    float64 // composite >= this survives rule 3's first pass (default 6.5)
	FallbackThreshold   float64 // lowered threshold if rule 3 undershoots min_count (default 6.0)
	AutoIncludeThreshold float64 // composite >= this is auto-retained by rule 2 (default 8.5)
	MaxCategoryFraction float64 // default 0.5
	SimilarityThreshold float64 // default 0.7
	Similarity          Similarity
}

// DefaultFilterConfig returns the §4.6/§6 documented defaults.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		TargetCount:          10,
		MinCount:             8,
		MaxCount:             12,
		QualityThreshold:     6.5,
		FallbackThreshold:    6.0,
		AutoIncludeThreshold: 8.5,
		MaxCategoryFraction:  0.5,
		SimilarityThreshold:  0.7,
		Similarity:           JaccardSimilarity,
	}
}

// Apply runs the six §4.6 filtering rules, in order, against scored
// segments and returns the kept set. Segments must already carry their
// Scores/Composite (the caller runs the LLM scoring pass before this).
func Apply(cfg FilterConfig, segments []model.Pass2Segment) ([]model.Pass2Segment, []string) {
	var warnings []string
	sim := cfg.Similarity
	if sim == nil {
		sim = JaccardSimilarity
	}

	// Rule 1: drop hard floors.
	kept := make([]model.Pass2Segment, 0, len(segments))
	for _, s := range segments {
		if s.Scores.QuoteStrength < 6 || s.Scores.FactualAccuracy < 5 || s.Scores.Specificity < 5 {
			continue
		}
		kept = append(kept, s)
	}

	for i := range kept {
		kept[i].Composite = kept[i].Scores.Composite()
	}

	// Rule 2: auto-retain composite >= auto_include_threshold; everything
	// else is ranked by rule 3.
	var autoKept, rest []model.Pass2Segment
	for _, s := range kept {
		if s.Composite >= cfg.AutoIncludeThreshold {
			autoKept = append(autoKept, s)
		} else {
			rest = append(rest, s)
		}
	}

	// Rule 3: keep composite >= quality_threshold from the remainder; if
	// the combined set undershoots the fill target (target_count, or
	// min_count if no target is configured), lower to fallback_threshold;
	// if still short, top-N fill from whatever remains.
	fillTarget := cfg.TargetCount
	if fillTarget < cfg.MinCount {
		fillTarget = cfg.MinCount
	}

	selected := append([]model.Pass2Segment{}, autoKept...)
	selected = append(selected, filterByThreshold(rest, cfg.QualityThreshold)...)

	if len(selected) < fillTarget {
		selected = append([]model.Pass2Segment{}, autoKept...)
		selected = append(selected, filterByThreshold(rest, cfg.FallbackThreshold)...)
	}

	if len(selected) < fillTarget {
		sortByCompositeTieBreak(rest)
		selected = append([]model.Pass2Segment{}, autoKept...)
		need := fillTarget - len(selected)
		alreadyIn := toSet(selected)
		for _, s := range rest {
			if alreadyIn[s.SegmentID] {
				continue
			}
			selected = append(selected, s)
			alreadyIn[s.SegmentID] = true
			need--
			if need <= 0 {
				break
			}
		}
	}
	selected = dedupBySegmentID(selected)

	// Rule 4: category balance, unless enforcing it would drop below
	// min_count (§8 boundary behavior).
	if catSelected, warn := enforceCategoryCap(selected, cfg.MaxCategoryFraction, cfg.MinCount); warn != "" {
		warnings = append(warnings, warn)
		selected = catSelected
	} else {
		selected = catSelected
	}

	// Rule 5: dedup near-identical topics, keep highest-scoring
	// representative.
	selected = dedupSimilar(selected, cfg.SimilarityThreshold, sim)

	// Rule 6: cap at max_count by dropping the lowest composites.
	sortByCompositeTieBreak(selected)
	if len(selected) > cfg.MaxCount {
		selected = selected[:cfg.MaxCount]
	}

	return selected, warnings
}

func filterByThreshold(segments []model.Pass2Segment, threshold float64) []model.Pass2Segment {
	var out []model.Pass2Segment
	for _, s := range segments {
		if s.Composite >= threshold {
			out = append(out, s)
		}
	}
	return out
}

func toSet(segments []model.Pass2Segment) map[string]bool {
	set := make(map[string]bool, len(segments))
	for _, s := range segments {
		set[s.SegmentID] = true
	}
	return set
}

func dedupBySegmentID(segments []model.Pass2Segment) []model.Pass2Segment {
	seen := make(map[string]bool, len(segments))
	out := make([]model.Pass2Segment, 0, len(segments))
	for _, s := range segments {
		if seen[s.SegmentID] {
			continue
		}
		seen[s.SegmentID] = true
		out = append(out, s)
	}
	return out
}

// sortByCompositeTieBreak sorts descending by composite; ties broken by
// higher quote strength, then lower start timestamp (§4.6 tie-break).
func sortByCompositeTieBreak(segments []model.Pass2Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		a, b := segments[i], segments[j]
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		if a.Scores.QuoteStrength != b.Scores.QuoteStrength {
			return a.Scores.QuoteStrength > b.Scores.QuoteStrength
		}
		return a.FullContextStart < b.FullContextStart
	})
}

// enforceCategoryCap drops the lowest-scoring segments in whichever
// category exceeds maxFraction of the kept set, provided doing so doesn't
// push the total below minCount (§8: "category cap suspended to keep
// min_count; log a warning event").
func enforceCategoryCap(segments []model.Pass2Segment, maxFraction float64, minCount int) ([]model.Pass2Segment, string) {
	if len(segments) == 0 {
		return segments, ""
	}
	byCategory := make(map[string][]model.Pass2Segment)
	for _, s := range segments {
		byCategory[s.HarmCategory] = append(byCategory[s.HarmCategory], s)
	}

	limit := int(float64(len(segments)) * maxFraction)
	overCategory := false
	for _, group := range byCategory {
		if len(group) > limit {
			overCategory = true
		}
	}
	if !overCategory {
		return segments, ""
	}

	// Would the cap, applied fully, drop the kept set below min_count?
	total := 0
	for _, group := range byCategory {
		sortByCompositeTieBreak(group)
		capped := len(group)
		if capped > limit && limit > 0 {
			capped = limit
		}
		total += capped
	}
	if total < minCount {
		return segments, "category cap suspended: enforcing it would drop the kept set below min_count"
	}

	out := make([]model.Pass2Segment, 0, len(segments))
	for _, group := range byCategory {
		sortByCompositeTieBreak(group)
		n := len(group)
		if n > limit && limit > 0 {
			n = limit
		}
		out = append(out, group[:n]...)
	}
	return out, ""
}

// dedupSimilar drops near-identical topics (similarity >= threshold over
// title+context), keeping the highest-scoring representative of each
// cluster. A segment whose title+context has no word tokens has no topic
// to compare and is always kept.
func dedupSimilar(segments []model.Pass2Segment, threshold float64, sim Similarity) []model.Pass2Segment {
	sortByCompositeTieBreak(segments)
	kept := make([]model.Pass2Segment, 0, len(segments))
	for _, s := range segments {
		text := TopicText(s.Title, s.Context)
		if len(tokenSet(text)) == 0 {
			kept = append(kept, s)
			continue
		}
		dup := false
		for _, k := range kept {
			if sim(text, TopicText(k.Title, k.Context)) >= threshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, s)
		}
	}
	return kept
}
