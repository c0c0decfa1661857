package ai

import (
	"errors"
	"fmt"

	"github.com/photomanager/api/internal/client"
)

// ErrorKind classifies provider failures for downstream handling.
type ErrorKind string

const (
	KindAuth      ErrorKind = "AUTH"
	KindQuota     ErrorKind = "QUOTA"
	KindTransport ErrorKind = "TRANSPORT"
	KindMalformed ErrorKind = "MALFORMED_RESPONSE"
)

// ProviderError is a failed provider call. Message carries the raw
// provider/parse error text; it is surfaced verbatim to the requesting
// client, classification is left to consumers.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Provider, e.Kind, e.Message)
}

// classifyAPIError maps an HTTP failure from a provider call to an error
// kind: 401/403 are credential problems, 402/429 are quota/billing, anything
// else is treated as a transport-level failure.
func classifyAPIError(provider string, err error) *ProviderError {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		kind := KindTransport
		switch apiErr.Status {
		case 401, 403:
			kind = KindAuth
		case 402, 429:
			kind = KindQuota
		}
		return &ProviderError{Kind: kind, Provider: provider, Message: apiErr.Error()}
	}
	return &ProviderError{Kind: KindTransport, Provider: provider, Message: err.Error()}
}
