package schema

import (
	"fmt"

	"github.com/faughnn/factreel/internal/core"
	"github.com/faughnn/factreel/internal/model"
)

// CheckPass2Subset enforces "every retained segment_id must exist in
// pass-1 output" (§3). Pass2Filtered never fabricates segments.
func CheckPass2Subset(pass1 model.Pass1Analysis, pass2 model.Pass2Filtered) error {
	known := make(map[string]bool, len(pass1.Segments))
	for _, s := range pass1.Segments {
		known[s.SegmentID] = true
	}
	for _, s := range pass2.Segments {
		if !known[s.SegmentID] {
			return &core.ValidationError{
				Schema: string(Pass2Filtered),
				Detail: fmt.Sprintf("segment_id %q not present in pass1_analysis (subset invariant)", s.SegmentID),
			}
		}
	}
	return nil
}

// CheckUnifiedScriptInvariants enforces the §3 Unified Script rules:
// exactly one leading intro / trailing outro, pre_clip/post_clip
// adjacency around every video_clip with matching clip_id, every clip_id
// referencing a pass-2 segment, and section_id uniqueness.
func CheckUnifiedScriptInvariants(script model.UnifiedScript, pass2 model.Pass2Filtered) error {
	sections := script.Sections
	if len(sections) == 0 {
		return &core.ValidationError{Schema: string(UnifiedScript), Detail: "script has no sections"}
	}
	if sections[0].Kind != model.SectionIntro {
		return &core.ValidationError{Schema: string(UnifiedScript), Detail: "first section must be intro"}
	}
	if sections[len(sections)-1].Kind != model.SectionOutro {
		return &core.ValidationError{Schema: string(UnifiedScript), Detail: "last section must be outro"}
	}

	introCount, outroCount := 0, 0
	seenIDs := make(map[string]bool, len(sections))
	validClips := make(map[string]bool, len(pass2.Segments))
	for _, s := range pass2.Segments {
		validClips[s.SegmentID] = true
	}

	for i, s := range sections {
		if seenIDs[s.SectionID] {
			return &core.ValidationError{Schema: string(UnifiedScript), Detail: fmt.Sprintf("duplicate section_id %q", s.SectionID)}
		}
		seenIDs[s.SectionID] = true

		switch s.Kind {
		case model.SectionIntro:
			introCount++
		case model.SectionOutro:
			outroCount++
		case model.SectionVideoClip:
			if !validClips[s.ClipID] {
				return &core.ValidationError{
					Schema: string(UnifiedScript),
					Detail: fmt.Sprintf("clip_id %q on section %q does not reference a pass2_filtered segment", s.ClipID, s.SectionID),
				}
			}
			if i == 0 || sections[i-1].Kind != model.SectionPreClip || sections[i-1].ClipID != s.ClipID {
				return &core.ValidationError{
					Schema: string(UnifiedScript),
					Detail: fmt.Sprintf("video_clip %q is not preceded by a matching pre_clip", s.SectionID),
				}
			}
			if i == len(sections)-1 || sections[i+1].Kind != model.SectionPostClip || sections[i+1].ClipID != s.ClipID {
				return &core.ValidationError{
					Schema: string(UnifiedScript),
					Detail: fmt.Sprintf("video_clip %q is not followed by a matching post_clip", s.SectionID),
				}
			}
		}
	}
	if introCount != 1 {
		return &core.ValidationError{Schema: string(UnifiedScript), Detail: fmt.Sprintf("expected exactly one intro, found %d", introCount)}
	}
	if outroCount != 1 {
		return &core.ValidationError{Schema: string(UnifiedScript), Detail: fmt.Sprintf("expected exactly one outro, found %d", outroCount)}
	}
	return nil
}

// CheckStructuralPreservation enforces the §3/§8 Verified Script
// invariant: section count, order, section_id, clip_id, start_time,
// end_time and section_type must equal the Unified Script exactly; only
// script_content may differ.
func CheckStructuralPreservation(unified model.UnifiedScript, verified model.VerifiedScript) error {
	if len(unified.Sections) != len(verified.Sections) {
		return &core.ValidationError{
			Schema: string(VerifiedScript),
			Detail: fmt.Sprintf("section count changed: unified=%d verified=%d", len(unified.Sections), len(verified.Sections)),
		}
	}
	for i := range unified.Sections {
		u, v := unified.Sections[i], verified.Sections[i]
		if u.SectionID != v.SectionID {
			return &core.ValidationError{Schema: string(VerifiedScript), Detail: fmt.Sprintf("section %d: section_id changed %q -> %q", i, u.SectionID, v.SectionID)}
		}
		if u.Kind != v.Kind {
			return &core.ValidationError{Schema: string(VerifiedScript), Detail: fmt.Sprintf("section %d (%s): section_type changed", i, u.SectionID)}
		}
		if u.ClipID != v.ClipID {
			return &core.ValidationError{Schema: string(VerifiedScript), Detail: fmt.Sprintf("section %d (%s): clip_id changed", i, u.SectionID)}
		}
		if u.StartTime != v.StartTime || u.EndTime != v.EndTime {
			return &core.ValidationError{Schema: string(VerifiedScript), Detail: fmt.Sprintf("section %d (%s): clip timing changed", i, u.SectionID)}
		}
	}
	return nil
}
