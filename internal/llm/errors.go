package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
)

type Kind string

const (
	KindNetwork           Kind = "network"
	KindAuth              Kind = "auth"
	KindRateLimit         Kind = "rate_limit"
	KindTimeout           Kind = "timeout"
	KindServer            Kind = "server"
	KindBadRequest        Kind = "bad_request"
	KindMalformedResponse Kind = "malformed_response"
	KindCanceled          Kind = "canceled"
)

const redacted = "[REDACTED]"

var keyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bsk-(?:ant-)?[A-Za-z0-9_\-]{8,}`),
	regexp.MustCompile(`AIza[0-9A-Za-z_\-]{20,}`),
	regexp.MustCompile(`(?i)((?:api[_-]?key|key|token|authorization)["']?\s*[:=]\s*["']?(?:bearer\s+)?)[A-Za-z0-9_\-.~+/]{8,}`),
}

// ProviderError describes a failed completion call. Its message never
// contains the API key used for the call.
type ProviderError struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Err        error
	secret     string
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s provider: %s", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + Redact(e.Err.Error(), e.secret)
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same call may succeed.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindRateLimit, KindServer, KindMalformedResponse:
		return true
	default:
		return false
	}
}

// IsRetryable is true for provider errors that are worth another attempt.
func IsRetryable(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.Retryable()
}

func newProviderError(provider string, status int, err error, secret string) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Kind:       classify(status, err),
		StatusCode: status,
		Err:        err,
		secret:     secret,
	}
}

func malformed(provider, format string, args ...interface{}) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Kind:     KindMalformedResponse,
		Err:      fmt.Errorf(format, args...),
	}
}

func classify(status int, err error) Kind {
	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusRequestTimeout:
		return KindTimeout
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindBadRequest
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}
	if status >= 200 && status < 300 {
		return KindMalformedResponse
	}
	return KindNetwork
}

// Redact removes the literal secret and anything shaped like an API key.
func Redact(s, secret string) string {
	if secret != "" {
		s = strings.ReplaceAll(s, secret, redacted)
	}
	for i, re := range keyPatterns {
		if i == len(keyPatterns)-1 {
			s = re.ReplaceAllString(s, "${1}"+redacted)
			continue
		}
		s = re.ReplaceAllString(s, redacted)
	}
	return s
}
