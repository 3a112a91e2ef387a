package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faughnn/factreel/internal/model"
	"github.com/faughnn/factreel/internal/schema"
)

func TestCheckPass2SubsetAcceptsKnownSegments(t *testing.T) {
	pass1 := model.Pass1Analysis{Segments: []model.Pass1Segment{{SegmentID: "s1"}, {SegmentID: "s2"}}}
	pass2 := model.Pass2Filtered{Segments: []model.Pass2Segment{{Pass1Segment: model.Pass1Segment{SegmentID: "s1"}}}}
	assert.NoError(t, schema.CheckPass2Subset(pass1, pass2))
}

func TestCheckPass2SubsetRejectsFabricatedSegment(t *testing.T) {
	pass1 := model.Pass1Analysis{Segments: []model.Pass1Segment{{SegmentID: "s1"}}}
	pass2 := model.Pass2Filtered{Segments: []model.Pass2Segment{{Pass1Segment: model.Pass1Segment{SegmentID: "s99"}}}}
	err := schema.CheckPass2Subset(pass1, pass2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subset invariant")
}

func validUnifiedScript() model.UnifiedScript {
	return model.UnifiedScript{
		Sections: []model.Section{
			{SectionID: "intro", Kind: model.SectionIntro},
			{SectionID: "pre-1", Kind: model.SectionPreClip, ClipID: "clip-1"},
			{SectionID: "clip-1", Kind: model.SectionVideoClip, ClipID: "clip-1"},
			{SectionID: "post-1", Kind: model.SectionPostClip, ClipID: "clip-1"},
			{SectionID: "outro", Kind: model.SectionOutro},
		},
	}
}

func backingPass2() model.Pass2Filtered {
	return model.Pass2Filtered{Segments: []model.Pass2Segment{{Pass1Segment: model.Pass1Segment{SegmentID: "clip-1"}}}}
}

func TestCheckUnifiedScriptInvariantsAcceptsWellFormedScript(t *testing.T) {
	assert.NoError(t, schema.CheckUnifiedScriptInvariants(validUnifiedScript(), backingPass2()))
}

func TestCheckUnifiedScriptInvariantsRejectsMissingIntro(t *testing.T) {
	script := validUnifiedScript()
	script.Sections[0].Kind = model.SectionPreClip
	err := schema.CheckUnifiedScriptInvariants(script, backingPass2())
	assert.Error(t, err)
}

func TestCheckUnifiedScriptInvariantsRejectsMissingOutro(t *testing.T) {
	script := validUnifiedScript()
	script.Sections[len(script.Sections)-1].Kind = model.SectionPostClip
	err := schema.CheckUnifiedScriptInvariants(script, backingPass2())
	assert.Error(t, err)
}

func TestCheckUnifiedScriptInvariantsRejectsDuplicateSectionID(t *testing.T) {
	script := validUnifiedScript()
	script.Sections[1].SectionID = script.Sections[2].SectionID
	err := schema.CheckUnifiedScriptInvariants(script, backingPass2())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate section_id")
}

func TestCheckUnifiedScriptInvariantsRejectsClipNotInPass2(t *testing.T) {
	script := validUnifiedScript()
	err := schema.CheckUnifiedScriptInvariants(script, model.Pass2Filtered{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "does not reference a pass2_filtered segment")
}

func TestCheckUnifiedScriptInvariantsRejectsClipWithoutPreClip(t *testing.T) {
	script := model.UnifiedScript{
		Sections: []model.Section{
			{SectionID: "intro", Kind: model.SectionIntro},
			{SectionID: "clip-1", Kind: model.SectionVideoClip, ClipID: "clip-1"},
			{SectionID: "post-1", Kind: model.SectionPostClip, ClipID: "clip-1"},
			{SectionID: "outro", Kind: model.SectionOutro},
		},
	}
	err := schema.CheckUnifiedScriptInvariants(script, backingPass2())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not preceded by a matching pre_clip")
}

func TestCheckUnifiedScriptInvariantsRejectsClipWithoutPostClip(t *testing.T) {
	script := model.UnifiedScript{
		Sections: []model.Section{
			{SectionID: "intro", Kind: model.SectionIntro},
			{SectionID: "pre-1", Kind: model.SectionPreClip, ClipID: "clip-1"},
			{SectionID: "clip-1", Kind: model.SectionVideoClip, ClipID: "clip-1"},
			{SectionID: "outro", Kind: model.SectionOutro},
		},
	}
	err := schema.CheckUnifiedScriptInvariants(script, backingPass2())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not followed by a matching post_clip")
}

func TestCheckStructuralPreservationAllowsScriptContentChangesOnly(t *testing.T) {
	unified := validUnifiedScript()
	verified := model.VerifiedScript{Sections: make([]model.Section, len(unified.Sections))}
	copy(verified.Sections, unified.Sections)
	verified.Sections[2].ScriptContent = "a verifier may only rewrite narration text"

	assert.NoError(t, schema.CheckStructuralPreservation(unified, verified))
}

func TestCheckStructuralPreservationRejectsSectionCountChange(t *testing.T) {
	unified := validUnifiedScript()
	verified := model.VerifiedScript{Sections: unified.Sections[:len(unified.Sections)-1]}
	err := schema.CheckStructuralPreservation(unified, verified)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "section count changed")
}

func TestCheckStructuralPreservationRejectsClipIDTamper(t *testing.T) {
	unified := validUnifiedScript()
	verified := model.VerifiedScript{Sections: make([]model.Section, len(unified.Sections))}
	copy(verified.Sections, unified.Sections)
	verified.Sections[2].ClipID = "different-clip"

	err := schema.CheckStructuralPreservation(unified, verified)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "clip_id changed")
}

func TestCheckStructuralPreservationRejectsTimingTamper(t *testing.T) {
	unified := validUnifiedScript()
	verified := model.VerifiedScript{Sections: make([]model.Section, len(unified.Sections))}
	copy(verified.Sections, unified.Sections)
	verified.Sections[2].StartTime = 999

	err := schema.CheckStructuralPreservation(unified, verified)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "clip timing changed")
}
