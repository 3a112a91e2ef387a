package model

// Severity is the advisory-only rating pass-1 assigns to a candidate
// segment. Pass-2 discards it entirely (spec §4.6).
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// EvidenceQuote is one verbatim excerpt backing a candidate segment.
type EvidenceQuote struct {
	Timestamp float64 `json:"timestamp"`
	Speaker   string  `json:"speaker"`
	Quote     string  `json:"quote"`
}

// Pass1Segment is one candidate problematic span surfaced by the broad,
// recall-favoured first pass.
type Pass1Segment struct {
	SegmentID        string          `json:"segment_id"`
	Title            string          `json:"title"`
	Severity         Severity        `json:"severity"`
	HarmCategory     string          `json:"harm_category"`
	Evidence         []EvidenceQuote `json:"evidence"`
	Context          string          `json:"context"`
	Confidence       float64         `json:"confidence"`
	DurationSeconds  float64         `json:"duration_seconds"`
	FullContextStart float64         `json:"full_context_start"`
	FullContextEnd   float64         `json:"full_context_end"`
}

// Pass1Analysis is the stage-3 artifact: up to N candidate segments.
type Pass1Analysis struct {
	Segments []Pass1Segment `json:"segments"`
}

// SubScores are the five 1-10 dimensions pass-2 rates every segment on.
type SubScores struct {
	QuoteStrength         float64 `json:"quote_strength"`
	FactualAccuracy        float64 `json:"factual_accuracy"`
	PotentialImpact        float64 `json:"potential_impact"`
	Specificity            float64 `json:"specificity"`
	ContextAppropriateness float64 `json:"context_appropriateness"`
}

// Composite computes the §4.6 weighted composite score:
// 0.30*quote + 0.25*accuracy + 0.25*impact + 0.10*specificity + 0.10*context.
func (s SubScores) Composite() float64 {
	return 0.30*s.QuoteStrength +
		0.25*s.FactualAccuracy +
		0.25*s.PotentialImpact +
		0.10*s.Specificity +
		0.10*s.ContextAppropriateness
}

// Pass2Segment augments a Pass1Segment with quality sub-scores. SegmentID
// must reference a Pass1Segment (subset invariant, enforced by C6, not by
// the type system).
type Pass2Segment struct {
	Pass1Segment
	Scores    SubScores `json:"scores"`
	Composite float64   `json:"composite"`
}

// Pass2Filtered is the stage-4a artifact: the quality-filtered, re-ranked
// subset of Pass1Analysis.
type Pass2Filtered struct {
	Segments []Pass2Segment `json:"segments"`
}
