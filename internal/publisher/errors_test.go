package publisher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIErrorMessageFromGoogleErrorBody(t *testing.T) {
	err := &APIError{
		StatusCode: 404,
		Body:       `{"error":{"code":404,"message":"Package not found: com.example.app.","status":"NOT_FOUND"}}`,
	}

	require.Equal(t, "Package not found: com.example.app.", err.Message())
	require.Contains(t, err.Error(), "404")
	require.Contains(t, err.Error(), "Package not found")
}

func TestAPIErrorMessageFallsBackToBody(t *testing.T) {
	err := &APIError{StatusCode: 502, Body: "<html>bad gateway</html>"}

	require.Empty(t, err.Message(), "non-JSON body has no structured message")
	require.Contains(t, err.Error(), "<html>bad gateway</html>")
}

func TestAPIErrorTruncatesHugeBody(t *testing.T) {
	err := &APIError{StatusCode: 500, Body: strings.Repeat("x", 10_000)}

	require.Less(t, len(err.Error()), 1000, "error string must not carry the whole body")
	require.Contains(t, err.Error(), "truncated")
}
