package llm

import (
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// The completion service reports two distinct backpressure conditions that
// must not be conflated: a transient per-minute rate limit (retry with
// backoff) and daily quota exhaustion (stop submitting for the rest of the
// run). Both usually arrive as HTTP 429, so classification looks at the error
// code and message, not just the status.

var quotaSignatures = []string{
	"insufficient_quota",
	"quota",
	"billing",
	"exceeded your current",
}

// IsQuotaExhausted reports whether err carries the daily-quota error
// signature. Quota errors are terminal for the current run.
func IsQuotaExhausted(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Type == "insufficient_quota" {
			return true
		}
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			return true
		}
		return containsAny(strings.ToLower(apiErr.Message), quotaSignatures)
	}
	return containsAny(strings.ToLower(err.Error()), quotaSignatures)
}

// IsRateLimited reports whether err is a transient HTTP 429 rate limit that
// a bounded backoff may clear. Quota exhaustion is excluded.
func IsRateLimited(err error) bool {
	if err == nil || IsQuotaExhausted(err) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429
	}
	// Some gateways surface 429 only in the message text.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "rate limit")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// RateLimitError builds a synthetic 429 for tests and the local stub.
func RateLimitError() error {
	return &openai.APIError{HTTPStatusCode: 429, Type: "requests", Message: "Rate limit reached, retry shortly"}
}

// QuotaError builds a synthetic quota-exhausted error for tests and the
// local stub.
func QuotaError() error {
	return &openai.APIError{HTTPStatusCode: 429, Type: "insufficient_quota", Code: "insufficient_quota",
		Message: "You exceeded your current quota, please check your plan and billing details"}
}

// Describe renders a compact one-line description of a completion error for
// logs.
func Describe(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("api error (status %d, type %s): %s", apiErr.HTTPStatusCode, apiErr.Type, apiErr.Message)
	}
	return err.Error()
}
