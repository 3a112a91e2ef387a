package twopass_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faughnn/factreel/internal/model"
	"github.com/faughnn/factreel/internal/twopass"
)

func segment(id string, category string, composite float64) model.Pass2Segment {
	// Set all five sub-scores to the target composite: the weights sum to
	// 1.0, so the weighted composite equals it, and the values used here
	// keep every rule-1 floor satisfied, so composite is the only score
	// under test.
	return model.Pass2Segment{
		Pass1Segment: model.Pass1Segment{
			SegmentID:        id,
			HarmCategory:     category,
			FullContextStart: float64(len(id)),
		},
		Scores: model.SubScores{
			QuoteStrength:          composite,
			FactualAccuracy:        composite,
			PotentialImpact:        composite,
			Specificity:            composite,
			ContextAppropriateness: composite,
		},
		Composite: composite,
	}
}

func TestApplyRule1DropsHardFloors(t *testing.T) {
	cfg := twopass.DefaultFilterConfig()
	segments := []model.Pass2Segment{
		{Pass1Segment: model.Pass1Segment{SegmentID: "low-quote"}, Scores: model.SubScores{QuoteStrength: 5, FactualAccuracy: 9, PotentialImpact: 9, Specificity: 9, ContextAppropriateness: 9}},
		segment("good", "misinfo", 9.0),
	}

	kept, _ := twopass.Apply(cfg, segments)

	ids := idsOf(kept)
	assert.NotContains(t, ids, "low-quote")
	assert.Contains(t, ids, "good")
}

func TestApplyAutoIncludeBypassesThreshold(t *testing.T) {
	cfg := twopass.DefaultFilterConfig()
	segments := []model.Pass2Segment{segment("auto", "misinfo", 9.0)}

	kept, _ := twopass.Apply(cfg, segments)

	require.Len(t, kept, 1)
	assert.Equal(t, "auto", kept[0].SegmentID)
}

func TestApplyFillsTowardTargetCountBelowThreshold(t *testing.T) {
	cfg := twopass.DefaultFilterConfig()
	cfg.TargetCount = 5
	cfg.MinCount = 3
	cfg.MaxCount = 10

	// Five segments that each clear rule 1's hard floors (quote >= 6,
	// accuracy/specificity >= 5) but whose weighted composite lands well
	// below both quality_threshold (6.5) and fallback_threshold (6.0),
	// spread across categories so rule 4 doesn't interfere.
	var segments []model.Pass2Segment
	for i := 0; i < 5; i++ {
		segments = append(segments, model.Pass2Segment{
			Pass1Segment: model.Pass1Segment{SegmentID: fmt.Sprintf("s%d", i), HarmCategory: fmt.Sprintf("cat%d", i), FullContextStart: float64(i)},
			Scores: model.SubScores{
				QuoteStrength:          6,
				FactualAccuracy:        5,
				PotentialImpact:        3,
				Specificity:            5,
				ContextAppropriateness: 3,
			},
		})
	}

	kept, _ := twopass.Apply(cfg, segments)

	assert.Len(t, kept, 5, "top-N fill should reach target_count even though every segment is below both thresholds")
}

func TestApplyCategoryCapSuspendedBelowMinCount(t *testing.T) {
	cfg := twopass.DefaultFilterConfig()
	cfg.MinCount = 4
	cfg.MaxCategoryFraction = 0.5
	cfg.TargetCount = 4

	// Four segments, all the same category and all above threshold: a
	// strict 50% cap would drop this to 2, below min_count, so the cap
	// must be suspended and all four survive with a warning.
	var segments []model.Pass2Segment
	for i := 0; i < 4; i++ {
		segments = append(segments, segment(fmt.Sprintf("s%d", i), "misinfo", 8.0))
	}

	kept, warnings := twopass.Apply(cfg, segments)

	assert.Len(t, kept, 4)
	assert.NotEmpty(t, warnings, "expected a category-cap-suspended warning")
}

func TestApplyCapsAtMaxCount(t *testing.T) {
	cfg := twopass.DefaultFilterConfig()
	cfg.MaxCount = 2
	cfg.MaxCategoryFraction = 1.0 // disable rule 4 for this test

	var segments []model.Pass2Segment
	for i := 0; i < 5; i++ {
		segments = append(segments, segment(fmt.Sprintf("s%d", i), fmt.Sprintf("cat%d", i), 7.0+float64(i)*0.1))
	}

	kept, _ := twopass.Apply(cfg, segments)

	assert.Len(t, kept, 2)
	// Highest composites survive the cap.
	assert.Equal(t, "s4", kept[0].SegmentID)
	assert.Equal(t, "s3", kept[1].SegmentID)
}

func TestApplyDedupsSimilarTopics(t *testing.T) {
	cfg := twopass.DefaultFilterConfig()
	cfg.SimilarityThreshold = 0.5

	a := segment("a", "misinfo", 9.0)
	a.Title, a.Context = "the senator misquoted the report", "budget hearing remarks"
	b := segment("b", "misinfo", 8.5)
	b.Title, b.Context = "the senator misquoted the report", "budget hearing remarks"

	kept, _ := twopass.Apply(cfg, []model.Pass2Segment{a, b})

	require.Len(t, kept, 1, "near-identical topics should dedup to the higher composite")
	assert.Equal(t, "a", kept[0].SegmentID)
}

func idsOf(segments []model.Pass2Segment) []string {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		out = append(out, s.SegmentID)
	}
	return out
}
