package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faughnn/factreel/internal/core"
)

func TestParseStagesEmptyStringMeansAllStages(t *testing.T) {
	set, err := parseStages("")
	require.NoError(t, err)
	assert.Nil(t, set)
}

func TestParseStagesParsesCommaSeparatedList(t *testing.T) {
	set, err := parseStages("1,3,5")
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true, 3: true, 5: true}, set)
}

func TestParseStagesTrimsWhitespaceAndIgnoresEmptyEntries(t *testing.T) {
	set, err := parseStages(" 2, 4 ,")
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{2: true, 4: true}, set)
}

func TestParseStagesRejectsOutOfRangeStage(t *testing.T) {
	_, err := parseStages("0")
	assert.Error(t, err)
	assert.IsType(t, &core.InputError{}, err)

	_, err = parseStages("8")
	assert.Error(t, err)
}

func TestParseStagesRejectsNonNumericEntry(t *testing.T) {
	_, err := parseStages("abc")
	assert.Error(t, err)
	assert.IsType(t, &core.InputError{}, err)
}
