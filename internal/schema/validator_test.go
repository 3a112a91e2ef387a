package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faughnn/factreel/internal/core"
	"github.com/faughnn/factreel/internal/model"
	"github.com/faughnn/factreel/internal/schema"
)

func TestValidateAcceptsWellFormedTranscript(t *testing.T) {
	data := []byte(`{"total_segments":1,"segments":[{"id":0,"speaker":"A","text":"hi","start":0,"end":1}]}`)
	parsed, err := schema.Validate(data, schema.Transcript)
	require.NoError(t, err)
	assert.Equal(t, float64(1), parsed["total_segments"])
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	data := []byte(`{"segments":[]}`) // missing required total_segments
	_, err := schema.Validate(data, schema.Transcript)
	require.Error(t, err)
	assert.IsType(t, &core.ValidationError{}, err)
}

func TestValidateRejectsUnknownSchemaName(t *testing.T) {
	_, err := schema.Validate([]byte(`{}`), schema.Name("not_a_real_schema"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown schema name")
}

func TestValidateRejectsWrongSeverityEnumValue(t *testing.T) {
	data := []byte(`{"segments":[{"segment_id":"s1","title":"t","severity":"EXTREME","harm_category":"misinfo","evidence":[],"context":"c"}]}`)
	_, err := schema.Validate(data, schema.Pass1Analysis)
	assert.Error(t, err)
}

func TestValidateIntoDecodesAfterValidation(t *testing.T) {
	data := []byte(`{"total_segments":1,"segments":[{"id":0,"speaker":"A","text":"hi","start":0,"end":1}]}`)
	var out model.Transcript
	require.NoError(t, schema.ValidateInto(data, schema.Transcript, &out))
	assert.Equal(t, 1, out.TotalSegments)
	assert.Equal(t, "A", out.Segments[0].Speaker)
}

func TestValidateIntoReturnsValidationErrorOnMalformedDocument(t *testing.T) {
	var out model.Transcript
	err := schema.ValidateInto([]byte(`{"segments":"not-an-array"}`), schema.Transcript, &out)
	assert.Error(t, err)
	assert.IsType(t, &core.ValidationError{}, err)
}

func TestValidatePass2SegmentRequiresScoresAndComposite(t *testing.T) {
	data := []byte(`{"segments":[{"segment_id":"s1","title":"t","severity":"HIGH","harm_category":"misinfo","evidence":[],"context":"c"}]}`)
	_, err := schema.Validate(data, schema.Pass2Filtered)
	assert.Error(t, err, "pass2 segments must carry scores/composite beyond the pass1 shape")
}

func TestValidateSectionRequiresValidSectionType(t *testing.T) {
	data := []byte(`{"sections":[{"section_id":"s1","section_type":"not_a_kind"}]}`)
	_, err := schema.Validate(data, schema.UnifiedScript)
	assert.Error(t, err)
}
