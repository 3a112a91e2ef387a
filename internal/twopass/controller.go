// Package twopass implements the Two-Pass Controller (C6): the four
// content-analysis sub-stages (pass-1 analysis, pass-2 quality
// assessment, script generation, rebuttal verification) with atomic
// handoffs, schema validation, and cached outputs, per spec §4.6.
package twopass

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/faughnn/factreel/internal/adapters"
	"github.com/faughnn/factreel/internal/cache"
	"github.com/faughnn/factreel/internal/core"
	"github.com/faughnn/factreel/internal/model"
	"github.com/faughnn/factreel/internal/retry"
	"github.com/faughnn/factreel/internal/schema"
	"github.com/faughnn/factreel/internal/workspace"
)

// Config bundles everything the controller needs beyond the LLM adapter
// itself: filtering thresholds, retry policy, max regeneration attempts
// for invariant violations, and the prompt/rules file locations.
type Config struct {
	Filter             FilterConfig
	Retry              retry.Config
	MaxAttempts        int // max LLM regenerations on schema/invariant violation (Fatal path, not retried by C4)
	PromptsDir         string
	AnalysisRulesPath  string
}

// Controller runs the four C6 sub-stages against one workspace.
type Controller struct {
	llm    adapters.LLM
	cache  *cache.Store
	cfg    Config
	logger *zerolog.Logger
}

// New builds a Controller scoped to one workspace's cache.
func New(llm adapters.LLM, store *cache.Store, cfg Config, logger *zerolog.Logger) *Controller {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Controller{llm: llm, cache: store, cfg: cfg, logger: logger}
}

// RunPass1 is the Stage 3 entry point: runPass1(workspace, transcriptRef)
// -> Pass1Ref. Returns from cache on hit without touching the LLM (§8
// cache-hit fast path).
func (c *Controller) RunPass1(ctx context.Context, ws *workspace.Workspace, transcript model.Transcript) (model.Pass1Analysis, error) {
	var cached model.Pass1Analysis
	if ok, err := c.cache.Get(workspace.ArtifactPass1Analysis, schema.Pass1Analysis, &cached); err != nil {
		return model.Pass1Analysis{}, &core.StageError{Stage: 3, Cause: err}
	} else if ok {
		return cached, nil
	}

	result, err := c.runPass1Uncached(ctx, transcript)
	if err != nil {
		return model.Pass1Analysis{}, &core.StageError{Stage: 3, SubStage: "pass1_analysis", Cause: err}
	}

	if err := c.cache.PutValue(workspace.ArtifactPass1Analysis, result, schema.Pass1Analysis); err != nil {
		return model.Pass1Analysis{}, &core.StageError{Stage: 3, SubStage: "pass1_analysis", Cause: err}
	}
	return result, nil
}

// RunFilterScriptVerify is the Stage 4 entry point: runs pass-2 filtering,
// script generation, and rebuttal verification strictly sequentially
// (spec §5: "within C6, the four sub-stages run sequentially"), each
// checking its own cache first.
func (c *Controller) RunFilterScriptVerify(ctx context.Context, ws *workspace.Workspace, pass1 model.Pass1Analysis) (model.VerifiedScript, error) {
	pass2, err := c.runPass2Cached(pass1)
	if err != nil {
		return model.VerifiedScript{}, &core.StageError{Stage: 4, SubStage: "pass2_quality_assessment", Cause: err}
	}

	unified, err := c.runScriptGenCached(ctx, pass2)
	if err != nil {
		return model.VerifiedScript{}, &core.StageError{Stage: 4, SubStage: "script_generation", Cause: err}
	}

	verified, err := c.runVerifyCached(ctx, unified)
	if err != nil {
		return model.VerifiedScript{}, &core.StageError{Stage: 4, SubStage: "rebuttal_verification", Cause: err}
	}
	return verified, nil
}

func (c *Controller) runPass2Cached(pass1 model.Pass1Analysis) (model.Pass2Filtered, error) {
	var cached model.Pass2Filtered
	if ok, err := c.cache.Get(workspace.ArtifactPass2Filtered, schema.Pass2Filtered, &cached); err != nil {
		return model.Pass2Filtered{}, err
	} else if ok {
		return cached, nil
	}

	result, err := c.runPass2Uncached(context.Background(), pass1)
	if err != nil {
		return model.Pass2Filtered{}, err
	}
	if err := schema.CheckPass2Subset(pass1, result); err != nil {
		return model.Pass2Filtered{}, err
	}
	if err := c.cache.PutValue(workspace.ArtifactPass2Filtered, result, schema.Pass2Filtered); err != nil {
		return model.Pass2Filtered{}, err
	}
	return result, nil
}

func (c *Controller) runScriptGenCached(ctx context.Context, pass2 model.Pass2Filtered) (model.UnifiedScript, error) {
	var cached model.UnifiedScript
	if ok, err := c.cache.Get(workspace.ArtifactUnifiedScript, schema.UnifiedScript, &cached); err != nil {
		return model.UnifiedScript{}, err
	} else if ok {
		return cached, nil
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		result, err := c.generateScript(ctx, pass2)
		if err != nil {
			lastErr = err
			continue
		}
		if err := schema.CheckUnifiedScriptInvariants(result, pass2); err != nil {
			lastErr = err
			if c.logger != nil {
				c.logger.Warn().Int("attempt", attempt).Err(err).Msg("script generation violated invariants; regenerating")
			}
			continue
		}
		if err := c.cache.PutValue(workspace.ArtifactUnifiedScript, result, schema.UnifiedScript); err != nil {
			return model.UnifiedScript{}, err
		}
		return result, nil
	}
	return model.UnifiedScript{}, fmt.Errorf("script generation failed invariants after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}

func (c *Controller) runVerifyCached(ctx context.Context, unified model.UnifiedScript) (model.VerifiedScript, error) {
	var cached model.VerifiedScript
	if ok, err := c.cache.Get(workspace.ArtifactVerifiedScript, schema.VerifiedScript, &cached); err != nil {
		return model.VerifiedScript{}, err
	} else if ok {
		return cached, nil
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		result, err := c.verifyScript(ctx, unified)
		if err != nil {
			lastErr = err
			continue
		}
		if err := schema.CheckStructuralPreservation(unified, result); err != nil {
			lastErr = err
			if c.logger != nil {
				c.logger.Warn().Int("attempt", attempt).Err(err).Msg("rebuttal verification broke structural preservation; regenerating")
			}
			continue
		}
		if err := c.cache.PutValue(workspace.ArtifactVerifiedScript, result, schema.VerifiedScript); err != nil {
			return model.VerifiedScript{}, err
		}
		return result, nil
	}
	return model.VerifiedScript{}, fmt.Errorf("rebuttal verification failed structural preservation after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}

func readRulesFile(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
