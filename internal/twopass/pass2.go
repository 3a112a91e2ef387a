package twopass

import (
	"context"
	"encoding/json"

	"github.com/faughnn/factreel/internal/model"
	"github.com/faughnn/factreel/internal/retry"
)

// scoredResponse is the shape the LLM returns for pass-2 scoring: the
// same candidate set, each annotated with the five sub-scores. Filtering
// itself (the six ordered rules) runs locally in Go against this response
// rather than being delegated to the model, so the rules are
// deterministic and testable without a live LLM.
type scoredResponse struct {
	Segments []model.Pass2Segment `json:"segments"`
}

// runPass2Uncached asks the LLM to score every pass-1 candidate on the
// five §4.6 dimensions (explicitly instructed to ignore incoming severity
// ratings), then applies the deterministic filtering pipeline locally.
func (c *Controller) runPass2Uncached(ctx context.Context, pass1 model.Pass1Analysis) (model.Pass2Filtered, error) {
	prompt, err := pass2Prompt(pass1)
	if err != nil {
		return model.Pass2Filtered{}, err
	}

	rp := retry.New(c.cfg.Retry, retry.DefaultClassify, c.logger)
	var respBytes []byte
	err = rp.Do(ctx, func(ctx context.Context) error {
		b, genErr := c.llm.Generate(ctx, prompt, nil)
		if genErr != nil {
			return genErr
		}
		respBytes = b
		return nil
	})
	if err != nil {
		return model.Pass2Filtered{}, err
	}

	var scored scoredResponse
	if err := json.Unmarshal(respBytes, &scored); err != nil {
		return model.Pass2Filtered{}, err
	}
	for i := range scored.Segments {
		scored.Segments[i].Composite = scored.Segments[i].Scores.Composite()
	}

	kept, warnings := Apply(c.cfg.Filter, scored.Segments)
	for _, w := range warnings {
		if c.logger != nil {
			c.logger.Warn().Msg(w)
		}
	}
	return model.Pass2Filtered{Segments: kept}, nil
}

func pass2Prompt(pass1 model.Pass1Analysis) (string, error) {
	candidates, err := json.Marshal(pass1)
	if err != nil {
		return "", err
	}
	return "Score each candidate segment below on five dimensions from 1 to 10: " +
		"quote strength, factual accuracy, potential impact, specificity, and " +
		"context appropriateness. Ignore any severity rating already present on " +
		"the segment; severity from the prior pass is not authoritative. Return " +
		"every candidate with its scores attached, as JSON matching the " +
		"pass2_filtered schema (the composite score and final filtering are " +
		"computed by the caller, not by you).\n\nCandidates:\n" + string(candidates), nil
}
