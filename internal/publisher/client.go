// Package publisher drives the Play publishing edit transaction: create an
// edit, upload the bundle, assign it to a track, commit.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"playship/internal/config"
	"playship/internal/googleauth"
	"playship/internal/pkg/httpclient"
	"playship/internal/progress"
)

const (
	apiPrefix    = "/androidpublisher/v3"
	uploadPrefix = "/upload" + apiPrefix

	// Releases always land on the internal track as drafts; neither is
	// configurable.
	trackInternal      = "internal"
	releaseStatusDraft = "draft"
)

// TokenSource yields a valid bearer token per call. Tokens may rotate
// mid-transaction; each API call fetches its own.
type TokenSource interface {
	Token(ctx context.Context) (googleauth.Token, error)
}

// Client talks to the publishing API for one application package.
type Client struct {
	packageName   string
	baseURL       string
	uploadBaseURL string
	http          *http.Client
	uploadHTTP    *http.Client
	tokens        TokenSource
}

func NewClient(cfg config.PublisherConfig, packageName string, tokens TokenSource) (*Client, error) {
	apiClient, err := httpclient.GetClient(httpclient.Options{
		Timeout:  cfg.Timeout,
		ProxyURL: cfg.ProxyURL,
	})
	if err != nil {
		return nil, fmt.Errorf("build API client: %w", err)
	}

	// Bundle uploads run far longer than the JSON calls.
	uploadClient, err := httpclient.GetClient(httpclient.Options{
		Timeout:  cfg.UploadTimeout,
		ProxyURL: cfg.ProxyURL,
	})
	if err != nil {
		return nil, fmt.Errorf("build upload client: %w", err)
	}

	return &Client{
		packageName:   packageName,
		baseURL:       cfg.BaseURL,
		uploadBaseURL: cfg.UploadBaseURL,
		http:          apiClient,
		uploadHTTP:    uploadClient,
		tokens:        tokens,
	}, nil
}

// CreateEdit opens a new edit transaction.
func (c *Client) CreateEdit(ctx context.Context) (*Edit, error) {
	u := fmt.Sprintf("%s%s/applications/%s/edits", c.baseURL, apiPrefix, url.PathEscape(c.packageName))

	var edit Edit
	if err := c.doJSON(ctx, http.MethodPost, u, []byte("{}"), &edit); err != nil {
		return nil, err
	}
	return &edit, nil
}

// UploadBundle streams the bundle bytes to the edit. Chunks are forwarded as
// they are read from r; the reporter sees the cumulative count up to size.
func (c *Client) UploadBundle(ctx context.Context, editID string, r io.Reader, size int64, reporter progress.Reporter) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s%s/applications/%s/edits/%s/bundles",
		c.uploadBaseURL, uploadPrefix, url.PathEscape(c.packageName), url.PathEscape(editID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, progress.NewReader(r, size, reporter))
	if err != nil {
		return err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := c.uploadHTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}
	return nil
}

// UpdateTrack assigns the uploaded version to the internal track as a draft
// release.
func (c *Client) UpdateTrack(ctx context.Context, editID, versionCode string) error {
	u := fmt.Sprintf("%s%s/applications/%s/edits/%s/tracks/%s",
		c.baseURL, apiPrefix, url.PathEscape(c.packageName), url.PathEscape(editID), trackInternal)

	body, err := json.Marshal(Track{
		Releases: []Release{{
			Status:       releaseStatusDraft,
			VersionCodes: []string{versionCode},
		}},
	})
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPut, u, body, nil)
}

// CommitEdit finalizes the edit. The request carries an explicit zero
// Content-Length and no body.
func (c *Client) CommitEdit(ctx context.Context, editID string) (*Edit, error) {
	u := fmt.Sprintf("%s%s/applications/%s/edits/%s:commit",
		c.baseURL, apiPrefix, url.PathEscape(c.packageName), url.PathEscape(editID))

	var edit Edit
	if err := c.doJSON(ctx, http.MethodPost, u, nil, &edit); err != nil {
		return nil, err
	}
	return &edit, nil
}

func (c *Client) doJSON(ctx context.Context, method, u string, body []byte, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	} else {
		req.ContentLength = 0
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
}
