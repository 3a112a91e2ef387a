package twopass_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/faughnn/factreel/internal/twopass"
)

func TestJaccardSimilarityIdenticalStringsScoreOne(t *testing.T) {
	score := twopass.JaccardSimilarity("vaccines cause autism", "vaccines cause autism")
	assert.Equal(t, 1.0, score)
}

func TestJaccardSimilarityDisjointStringsScoreZero(t *testing.T) {
	score := twopass.JaccardSimilarity("climate change is a hoax", "the moon landing was faked")
	assert.Equal(t, 0.0, score)
}

func TestJaccardSimilarityPartialOverlap(t *testing.T) {
	// {vaccines, cause, autism} vs {vaccines, cause, cancer}: intersection
	// 2, union 4.
	score := twopass.JaccardSimilarity("vaccines cause autism", "vaccines cause cancer")
	assert.InDelta(t, 0.5, score, 0.0001)
}

func TestJaccardSimilarityIsCaseInsensitive(t *testing.T) {
	score := twopass.JaccardSimilarity("Election Fraud Claims", "election fraud claims")
	assert.Equal(t, 1.0, score)
}

func TestJaccardSimilarityBothEmptyScoresOne(t *testing.T) {
	assert.Equal(t, 1.0, twopass.JaccardSimilarity("", ""))
}

func TestJaccardSimilarityOneEmptyScoresZero(t *testing.T) {
	assert.Equal(t, 0.0, twopass.JaccardSimilarity("something", ""))
}

func TestJaccardSimilarityIgnoresPunctuationBoundaries(t *testing.T) {
	score := twopass.JaccardSimilarity("5g towers, and microchips!", "5g towers and microchips")
	assert.Equal(t, 1.0, score, "punctuation should only act as a token separator, not be part of a token")
}

func TestTopicTextJoinsTitleAndContext(t *testing.T) {
	assert.Equal(t, "claim title surrounding context", twopass.TopicText("claim title", "surrounding context"))
}
