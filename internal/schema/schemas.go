// Package schema implements the Schema Validator (C2): gojsonschema-based
// structural validation of the five named artifacts, followed by a
// Go-native invariant pass for rules that JSON Schema alone cannot express
// (subset/adjacency/structural-preservation).
package schema

// Name identifies one of the five persisted artifact schemas (§4.2).
type Name string

const (
	Transcript     Name = "transcript"
	Pass1Analysis  Name = "pass1_analysis"
	Pass2Filtered  Name = "pass2_filtered"
	UnifiedScript  Name = "unified_script"
	VerifiedScript Name = "verified_script"
)

// definitions holds each schema as a Go literal map, loaded via
// gojsonschema.NewGoLoader rather than read from a file on disk, so the
// validator carries no filesystem dependency beyond the artifact itself
// (SPEC_FULL §4.2).
var definitions = map[Name]map[string]interface{}{
	Transcript: {
		"type":     "object",
		"required": []interface{}{"segments", "total_segments"},
		"properties": map[string]interface{}{
			"language":       map[string]interface{}{"type": "string"},
			"model":          map[string]interface{}{"type": "string"},
			"total_segments": map[string]interface{}{"type": "integer", "minimum": 0},
			"segments": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"id", "speaker", "text", "start", "end"},
					"properties": map[string]interface{}{
						"id":      map[string]interface{}{"type": "integer"},
						"speaker": map[string]interface{}{"type": "string"},
						"text":    map[string]interface{}{"type": "string"},
						"start":   map[string]interface{}{"type": "number"},
						"end":     map[string]interface{}{"type": "number"},
					},
				},
			},
		},
	},
	Pass1Analysis: {
		"type":     "object",
		"required": []interface{}{"segments"},
		"properties": map[string]interface{}{
			"segments": map[string]interface{}{
				"type":  "array",
				"items": pass1SegmentSchema(),
			},
		},
	},
	Pass2Filtered: {
		"type":     "object",
		"required": []interface{}{"segments"},
		"properties": map[string]interface{}{
			"segments": map[string]interface{}{
				"type":  "array",
				"items": pass2SegmentSchema(),
			},
		},
	},
	UnifiedScript: {
		"type":     "object",
		"required": []interface{}{"sections"},
		"properties": map[string]interface{}{
			"sections": map[string]interface{}{
				"type":  "array",
				"items": sectionSchema(),
			},
		},
	},
	VerifiedScript: {
		"type":     "object",
		"required": []interface{}{"sections"},
		"properties": map[string]interface{}{
			"sections": map[string]interface{}{
				"type":  "array",
				"items": sectionSchema(),
			},
		},
	},
}

func pass1SegmentSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"required": []interface{}{
			"segment_id", "title", "severity", "harm_category", "evidence", "context",
		},
		"properties": map[string]interface{}{
			"segment_id":    map[string]interface{}{"type": "string", "minLength": 1},
			"title":         map[string]interface{}{"type": "string"},
			"severity":      map[string]interface{}{"enum": []interface{}{"CRITICAL", "HIGH", "MEDIUM", "LOW"}},
			"harm_category": map[string]interface{}{"type": "string"},
			"context":       map[string]interface{}{"type": "string"},
			"confidence":    map[string]interface{}{"type": "number"},
			"evidence": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"timestamp", "speaker", "quote"},
				},
			},
		},
	}
}

func pass2SegmentSchema() map[string]interface{} {
	base := pass1SegmentSchema()
	required := base["required"].([]interface{})
	required = append(required, "scores", "composite")
	base["required"] = required
	props := base["properties"].(map[string]interface{})
	props["scores"] = map[string]interface{}{
		"type": "object",
		"required": []interface{}{
			"quote_strength", "factual_accuracy", "potential_impact",
			"specificity", "context_appropriateness",
		},
	}
	props["composite"] = map[string]interface{}{"type": "number"}
	return base
}

func sectionSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"section_id", "section_type"},
		"properties": map[string]interface{}{
			"section_id":   map[string]interface{}{"type": "string", "minLength": 1},
			"section_type": map[string]interface{}{"enum": []interface{}{"intro", "pre_clip", "video_clip", "post_clip", "outro"}},
		},
	}
}
