package twopass

import (
	"context"
	"encoding/json"

	"github.com/jinzhu/copier"

	"github.com/faughnn/factreel/internal/model"
	"github.com/faughnn/factreel/internal/retry"
)

// verifyScript asks the LLM to fact-check each pre_clip/post_clip
// narration against its clip's evidence and rewrite unsupported claims.
// jinzhu/copier deep-copies the unified script into the verified-script
// shell *before* applying the LLM's rewritten bodies, so every field the
// response doesn't explicitly touch is guaranteed structurally identical
// to the input by construction — the structural-preservation invariant
// (§3, §8) holds even if the LLM response is sloppy about echoing fields
// it was never supposed to change.
func (c *Controller) verifyScript(ctx context.Context, unified model.UnifiedScript) (model.VerifiedScript, error) {
	prompt, err := verifyPrompt(unified)
	if err != nil {
		return model.VerifiedScript{}, err
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
		return model.VerifiedScript{}, err
	}

	var rewrites rewriteResponse
	if err := json.Unmarshal(respBytes, &rewrites); err != nil {
		return model.VerifiedScript{}, err
	}

	var verified model.VerifiedScript
	if err := copier.CopyWithOption(&verified, &unified, copier.Option{DeepCopy: true}); err != nil {
		return model.VerifiedScript{}, err
	}

	byID := make(map[string]string, len(rewrites.Rewrites))
	for _, r := range rewrites.Rewrites {
		byID[r.SectionID] = r.ScriptContent
	}
	for i := range verified.Sections {
		if content, ok := byID[verified.Sections[i].SectionID]; ok {
			verified.Sections[i].ScriptContent = content
		}
	}
	return verified, nil
}

// rewriteResponse is the narrow shape the verifier LLM call returns: only
// the sections whose script_content changed, keyed by section_id. This
// keeps the prompt/response small and makes the copier-based structural
// guarantee meaningful — the model is not asked to (and cannot
// accidentally) echo back fields it must not change.
type rewriteResponse struct {
	Rewrites []struct {
		SectionID     string `json:"section_id"`
		ScriptContent string `json:"script_content"`
	} `json:"rewrites"`
}

func verifyPrompt(unified model.UnifiedScript) (string, error) {
	data, err := json.Marshal(unified)
	if err != nil {
		return "", err
	}
	return "Fact-check every pre_clip and post_clip narration below against its " +
		"associated clip's evidence quotes. Where a claim is unsupported, rewrite " +
		"that section's script_content to remove or qualify the unsupported claim. " +
		"Do not change section_id, section_type, clip_id, start_time, or end_time " +
		"for any section, and do not touch sections you have no correction for. " +
		"Respond as JSON: {\"rewrites\": [{\"section_id\": ..., \"script_content\": " +
		"...}]} containing only the sections you changed.\n\nScript:\n" + string(data), nil
}
