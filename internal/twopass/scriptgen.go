package twopass

import (
	"context"
	"encoding/json"

	"github.com/faughnn/factreel/internal/model"
	"github.com/faughnn/factreel/internal/retry"
)

// generateScript asks the LLM for a narrative unified script over the
// pass-2 kept segments. Invariant violations (adjacency, subset,
// uniqueness) are Fatal per §4.6 — the caller (runScriptGenCached) retries
// by regenerating, up to MaxAttempts, rather than through the C4 retry
// policy, which only covers transient adapter failures.
func (c *Controller) generateScript(ctx context.Context, pass2 model.Pass2Filtered) (model.UnifiedScript, error) {
	prompt, err := scriptPrompt(pass2)
	if err != nil {
		return model.UnifiedScript{}, err
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
		return model.UnifiedScript{}, err
	}

	var script model.UnifiedScript
	if err := json.Unmarshal(respBytes, &script); err != nil {
		return model.UnifiedScript{}, err
	}
	return script, nil
}

func scriptPrompt(pass2 model.Pass2Filtered) (string, error) {
	segments, err := json.Marshal(pass2)
	if err != nil {
		return "", err
	}
	return "Write a narrated fact-check script covering the segments below. " +
		"Structure: exactly one intro section first, exactly one outro section " +
		"last. Every video_clip section must be immediately preceded by a " +
		"pre_clip section and immediately followed by a post_clip section, both " +
		"sharing the same clip_id, which must reference one of the segment_id " +
		"values below. Every section_id must be unique. Respond as JSON matching " +
		"the unified_script schema.\n\nSegments:\n" + string(segments), nil
}
