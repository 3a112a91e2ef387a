package retry

import (
	"context"
	"errors"

	"github.com/faughnn/factreel/internal/core"
)

// classifyDefault implements the §4.4 classification table over the
// core.AdapterError kind enum and the other ambient error types.
func classifyDefault(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var valErr *core.ValidationError
	if errors.As(err, &valErr) {
		return false
	}

	var inputErr *core.InputError
	if errors.As(err, &inputErr) {
		return false
	}

	var adapterErr *core.AdapterError
	if errors.As(err, &adapterErr) {
		switch adapterErr.Kind {
		case core.AdapterKindNetwork, core.AdapterKindTimeout, core.AdapterKindRateLimit, core.AdapterKindUnavailable:
			return true
		case core.AdapterKindNotFound, core.AdapterKindRestricted, core.AdapterKindFormat,
			core.AdapterKindSafety, core.AdapterKindMalformed, core.AdapterKindQuota:
			return false
		}
	}

	// Unknown error shapes default to retriable: a transient I/O wrapper
	// that hasn't been classified explicitly should not be treated as
	// fatal by default.
	return true
}
