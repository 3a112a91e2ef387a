package llms

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrProviderNotFound = errors.New("llm provider not found")
	ErrModelNotFound    = errors.New("model not found")
	ErrInvalidRequest   = errors.New("invalid completion request")
)

// Client dispatches narration-script completion requests to whichever LLM
// provider registry.go has registered. internal/adapters.MultiProviderLLM
// is the sole caller in this module — see RegisterDefaultProviders for how
// the single configured provider ends up registered here.
type Client struct {
	providers       map[string]Provider
	defaultProvider string
	mu              sync.RWMutex
}

// NewClient returns a Client with no providers registered.
func NewClient() *Client {
	return &Client{
		providers: make(map[string]Provider),
	}
}

// RegisterProvider adds provider, keyed by its GetName(). The first
// provider registered becomes the default.
func (c *Client) RegisterProvider(provider Provider) {
	if provider == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[provider.GetName()] = provider

	if c.defaultProvider == "" {
		c.defaultProvider = provider.GetName()
	}
}

// SetDefaultProvider switches the default to an already-registered provider.
func (c *Client) SetDefaultProvider(name string) error {
	c.mu.RLock()
	_, exists := c.providers[name]
	c.mu.RUnlock()

	if !exists {
		return ErrProviderNotFound
	}

	c.mu.Lock()
	c.defaultProvider = name
	c.mu.Unlock()
	return nil
}

// GetProvider looks up a registered provider by name.
func (c *Client) GetProvider(name string) (Provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	provider, ok := c.providers[name]
	return provider, ok
}

// GetDefaultProvider returns the current default provider.
func (c *Client) GetDefaultProvider() (Provider, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.defaultProvider == "" {
		return nil, ErrProviderNotFound
	}

	provider, ok := c.providers[c.defaultProvider]
	if !ok {
		return nil, ErrProviderNotFound
	}

	return provider, nil
}

// ListProviders returns every registered provider, in no particular order.
func (c *Client) ListProviders() []Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()

	providers := make([]Provider, 0, len(c.providers))
	for _, provider := range c.providers {
		providers = append(providers, provider)
	}

	return providers
}

// Complete routes request to providerName's Complete, or the default
// provider if providerName is empty.
func (c *Client) Complete(ctx context.Context, providerName string, request CompletionRequest) (CompletionResponse, error) {
	var provider Provider
	var err error

	if providerName == "" {
		provider, err = c.GetDefaultProvider()
		if err != nil {
			return CompletionResponse{}, err
		}
	} else {
		var ok bool
		provider, ok = c.GetProvider(providerName)
		if !ok {
			return CompletionResponse{}, ErrProviderNotFound
		}
	}

	return provider.Complete(ctx, request)
}