package twopass

import (
	"context"
	"encoding/json"
	"os"

	"github.com/faughnn/factreel/internal/adapters"
	"github.com/faughnn/factreel/internal/model"
	"github.com/faughnn/factreel/internal/retry"
)

// runPass1Uncached uploads the transcript to the LLM (separating content
// from instructions, per §4.6, avoids safety false-positives on large
// inline prompts), asks for a broad, recall-favoured candidate set, and
// guarantees the uploaded handle is deleted on both success and failure
// paths.
func (c *Controller) runPass1Uncached(ctx context.Context, transcript model.Transcript) (model.Pass1Analysis, error) {
	data, err := json.Marshal(transcript)
	if err != nil {
		return model.Pass1Analysis{}, err
	}

	tmp, err := os.CreateTemp("", "factreel-transcript-*.json")
	if err != nil {
		return model.Pass1Analysis{}, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return model.Pass1Analysis{}, err
	}
	tmp.Close()

	handle, err := c.llm.UploadFile(ctx, tmp.Name())
	if err != nil {
		return model.Pass1Analysis{}, err
	}
	defer c.llm.DeleteFile(context.Background(), handle)

	rules := readRulesFile(c.cfg.AnalysisRulesPath)
	prompt := pass1Prompt(rules)

	rp := retry.New(c.cfg.Retry, retry.DefaultClassify, c.logger)
	var respBytes []byte
	err = rp.Do(ctx, func(ctx context.Context) error {
		b, genErr := c.llm.Generate(ctx, prompt, []adapters.FileHandle{handle})
		if genErr != nil {
			return genErr
		}
		respBytes = b
		return nil
	})
	if err != nil {
		return model.Pass1Analysis{}, err
	}

	var result model.Pass1Analysis
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return model.Pass1Analysis{}, err
	}
	return result, nil
}

func pass1Prompt(rulesDoc string) string {
	base := "Review the attached transcript and identify up to 20 candidate segments " +
		"worth fact-checking or flagging. Favor recall over precision: include any " +
		"segment that plausibly warrants scrutiny, even if uncertain. For each " +
		"candidate, return a stable segment_id, a title, a severity rating " +
		"(CRITICAL, HIGH, MEDIUM, or LOW — advisory only), a harm_category, " +
		"verbatim evidence quotes with timestamps and speakers, a context " +
		"description, a classification confidence, duration, and the " +
		"fuller-context timestamp range. Respond as JSON matching the " +
		"pass1_analysis schema."
	if rulesDoc != "" {
		return base + "\n\nAnalysis rules:\n" + rulesDoc
	}
	return base
}
