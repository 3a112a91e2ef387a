package adapters

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/faughnn/factreel/internal/core"
	"github.com/faughnn/factreel/pkg/llms"
)

// MultiProviderLLM wraps pkg/llms.Client (the teacher's own
// multi-provider abstraction, dispatching by provider name exactly as
// pkg/llms/registry.go already does) and adds the upload-handle semantics
// §4.5 requires — not present in the teacher, added here against
// google.golang.org/genai's native Files.Upload/Files.Delete, since large
// transcript uploads for pass-1 analysis need a real file API rather than
// an inline prompt.
type MultiProviderLLM struct {
	client       *llms.Client
	genaiClient  *genai.Client
	providerName string
	model        string
}

// NewMultiProviderLLM wires a pkg/llms.Client with the providers already
// registered by the caller (cmd/root.go, selected by config's adapter
// model identifiers) plus a genai.Client used solely for upload handles.
func NewMultiProviderLLM(client *llms.Client, genaiClient *genai.Client, providerName, model string) *MultiProviderLLM {
	return &MultiProviderLLM{client: client, genaiClient: genaiClient, providerName: providerName, model: model}
}

func (l *MultiProviderLLM) UploadFile(ctx context.Context, path string) (FileHandle, error) {
	if l.genaiClient == nil {
		return FileHandle{}, &core.AdapterError{Adapter: "llm", Kind: core.AdapterKindUnavailable, Cause: fmt.Errorf("no genai client configured for file uploads")}
	}
	f, err := l.genaiClient.Files.UploadFromPath(ctx, path, nil)
	if err != nil {
		return FileHandle{}, &core.AdapterError{Adapter: "llm", Kind: core.AdapterKindNetwork, Cause: err}
	}
	return FileHandle{ID: f.Name, Provider: "google"}, nil
}

func (l *MultiProviderLLM) DeleteFile(ctx context.Context, handle FileHandle) error {
	if l.genaiClient == nil || handle.ID == "" {
		return nil
	}
	if _, err := l.genaiClient.Files.Delete(ctx, handle.ID, nil); err != nil {
		return &core.AdapterError{Adapter: "llm", Kind: core.AdapterKindNetwork, Cause: err}
	}
	return nil
}

func (l *MultiProviderLLM) Generate(ctx context.Context, prompt string, attachments []FileHandle) ([]byte, error) {
	fullPrompt := prompt
	for _, a := range attachments {
		fullPrompt += "\n\n[attachment: " + a.ID + "]"
	}

	resp, err := l.client.Complete(ctx, l.providerName, llms.CompletionRequest{
		Prompt: fullPrompt,
		Model:  l.model,
	})
	if err != nil {
		return nil, classifyLLMError(err)
	}
	return []byte(resp.Text), nil
}

func classifyLLMError(err error) error {
	// pkg/llms providers do not yet distinguish rate-limit/safety/network
	// failures in their returned error values, so we classify
	// conservatively as Network (retriable) unless the provider is simply
	// missing, which is a configuration (fatal) problem.
	if err == llms.ErrProviderNotFound || err == llms.ErrModelNotFound || err == llms.ErrInvalidRequest {
		return &core.AdapterError{Adapter: "llm", Kind: core.AdapterKindMalformed, Cause: err}
	}
	return &core.AdapterError{Adapter: "llm", Kind: core.AdapterKindNetwork, Cause: err}
}
