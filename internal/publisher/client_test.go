package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"playship/internal/config"
	"playship/internal/googleauth"

	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	calls atomic.Int64
	err   error
}

func (s *staticTokens) Token(ctx context.Context) (googleauth.Token, error) {
	s.calls.Add(1)
	if s.err != nil {
		return googleauth.Token{}, s.err
	}
	return googleauth.Token{AccessToken: "test-bearer", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type capturedRequest struct {
	method        string
	path          string
	contentType   string
	authorization string
	contentLength int64
	body          []byte
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *staticTokens, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.contentType = r.Header.Get("Content-Type")
		captured.authorization = r.Header.Get("Authorization")
		captured.contentLength = r.ContentLength
		captured.body, _ = io.ReadAll(r.Body)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	tokens := &staticTokens{}
	client, err := NewClient(config.PublisherConfig{
		BaseURL:       srv.URL,
		UploadBaseURL: srv.URL,
		Timeout:       5 * time.Second,
		UploadTimeout: 5 * time.Second,
	}, "com.example.app", tokens)
	require.NoError(t, err, "NewClient")

	return client, tokens, captured
}

func TestCreateEdit(t *testing.T) {
	client, tokens, captured := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"e1","expiryTimeSeconds":"123"}`)
	})

	edit, err := client.CreateEdit(context.Background())
	require.NoError(t, err, "CreateEdit")

	require.Equal(t, http.MethodPost, captured.method)
	require.Equal(t, "/androidpublisher/v3/applications/com.example.app/edits", captured.path)
	require.Equal(t, "application/json", captured.contentType)
	require.Equal(t, "Bearer test-bearer", captured.authorization)
	require.Equal(t, "{}", string(captured.body), "create edit body must be an empty JSON object")

	require.Equal(t, "e1", edit.ID)
	require.Equal(t, "123", edit.ExpiryTimeSeconds)
	require.Equal(t, int64(1), tokens.calls.Load(), "one token fetch per call")
}

func TestCreateEditNon2xx(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"insufficient permissions"}}`)
	})

	_, err := client.CreateEdit(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr, "expected *APIError")
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	require.Contains(t, apiErr.Body, "insufficient permissions")
	require.Equal(t, "insufficient permissions", apiErr.Message())
}

func TestUploadBundleStreams(t *testing.T) {
	payload := bytes.Repeat([]byte("b"), 4096)
	client, _, captured := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rep := &recordingReporter{}
	err := client.UploadBundle(context.Background(), "e1", bytes.NewReader(payload), int64(len(payload)), rep)
	require.NoError(t, err, "UploadBundle")

	require.Equal(t, http.MethodPost, captured.method)
	require.Equal(t, "/upload/androidpublisher/v3/applications/com.example.app/edits/e1/bundles", captured.path)
	require.Equal(t, "application/octet-stream", captured.contentType)
	require.Equal(t, int64(len(payload)), captured.contentLength, "upload must declare the bundle size")
	require.Equal(t, payload, captured.body, "bundle bytes must arrive unmodified")

	require.Equal(t, int64(len(payload)), rep.last, "progress must reach the total")
	require.Equal(t, 1, rep.finishes, "progress must be marked complete")
}

func TestUploadBundleNon2xx(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"not an aab"}}`)
	})

	err := client.UploadBundle(context.Background(), "e1", bytes.NewReader([]byte("zip")), 3, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr, "expected *APIError")
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestUpdateTrack(t *testing.T) {
	client, _, captured := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"track":"internal"}`)
	})

	err := client.UpdateTrack(context.Background(), "e1", "42")
	require.NoError(t, err, "UpdateTrack")

	require.Equal(t, http.MethodPut, captured.method)
	require.Equal(t, "/androidpublisher/v3/applications/com.example.app/edits/e1/tracks/internal", captured.path)
	require.JSONEq(t, `{"releases":[{"status":"draft","versionCodes":["42"]}]}`, string(captured.body))
}

func TestCommitEdit(t *testing.T) {
	client, _, captured := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"e1","expiryTimeSeconds":"456"}`)
	})

	edit, err := client.CommitEdit(context.Background(), "e1")
	require.NoError(t, err, "CommitEdit")

	require.Equal(t, http.MethodPost, captured.method)
	require.Equal(t, "/androidpublisher/v3/applications/com.example.app/edits/e1:commit", captured.path)
	require.Zero(t, captured.contentLength, "commit must declare zero content length")
	require.Empty(t, captured.body, "commit must carry no body")
	require.Equal(t, "e1", edit.ID)
}

func TestCommitEditNon2xxCarriesBody(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"error":"invalid"}`)
	})

	_, err := client.CommitEdit(context.Background(), "e1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr, "expected *APIError")
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)
	require.Equal(t, `{"error":"invalid"}`, apiErr.Body)
}

func TestTokenFailureShortCircuits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API call should be issued when the token fetch fails")
	}))
	t.Cleanup(srv.Close)

	tokens := &staticTokens{err: errors.New("signing broke")}
	client, err := NewClient(config.PublisherConfig{
		BaseURL:       srv.URL,
		UploadBaseURL: srv.URL,
		Timeout:       time.Second,
		UploadTimeout: time.Second,
	}, "com.example.app", tokens)
	require.NoError(t, err, "NewClient")

	_, err = client.CreateEdit(context.Background())
	require.ErrorContains(t, err, "signing broke")
}

type recordingReporter struct {
	last     int64
	finishes int
}

func (r *recordingReporter) Set64(n int64) error {
	r.last = n
	return nil
}

func (r *recordingReporter) Finish() error {
	r.finishes++
	return nil
}
