package publisher

import (
	"fmt"

	"github.com/tidwall/gjson"
)

const maxErrorBodyPreview = 512

// APIError is any non-2xx answer from the publishing API. The response body
// is kept verbatim for diagnostics.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("publishing API returned %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("publishing API returned %d: %s", e.StatusCode, truncateBody(e.Body, maxErrorBodyPreview))
}

// Message extracts error.message from a Google-style error body, falling back
// to empty when the body is not shaped that way.
func (e *APIError) Message() string {
	if v := gjson.Get(e.Body, "error.message"); v.Exists() {
		return v.String()
	}
	return ""
}

func truncateBody(body string, limit int) string {
	if len(body) <= limit {
		return body
	}
	return body[:limit] + "...(truncated)"
}
