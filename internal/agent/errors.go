package agent

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNotConfigured is returned by every fetch when no LLM API key is set
var ErrNotConfigured = errors.New("LLM API key is not set")

// UpstreamError reports a failed, timed-out, or unparseable recommendation call.
// An unparseable reply arrives as an UpstreamError wrapping a *response.ParseError.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("recommendation %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is an LLM quota or rate-limit error
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}

	// Check for gRPC ResourceExhausted status
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}

	// Also check the message as fallback (Gemini reports "Error 429 ... RESOURCE_EXHAUSTED")
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "resource_exhausted") ||
		strings.Contains(errStr, "resourceexhausted") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "quota")
}
