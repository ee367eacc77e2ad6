package openai

import (
	"errors"
	"net/url"
	"strings"

	gogpt "github.com/sashabaranov/go-openai"

	"imagestudio/internal/domain"
)

// classify maps a failed SDK call onto the domain taxonomy. status is the
// HTTP status observed on the wire, 0 when no response arrived.
func classify(err error, status int, fallbackCode string) *domain.Error {
	if status == 0 {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return domain.Network(err)
		}
		return domain.Unexpected(err)
	}
	if status < 200 || status >= 300 {
		return &domain.Error{
			Kind:   domain.KindProvider,
			Code:   fallbackCode,
			Detail: providerMessage(err),
			Err:    err,
		}
	}
	// 2xx with an undecodable body.
	return domain.Unexpected(err)
}

// providerMessage extracts error.message from the provider payload, if any.
func providerMessage(err error) string {
	var apiErr *gogpt.APIError
	if errors.As(err, &apiErr) {
		return strings.TrimSpace(apiErr.Message)
	}
	return ""
}
