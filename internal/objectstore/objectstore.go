// Package objectstore implements the upload client (spec.md §4.10): pushing
// a RenderedArtifact to an S3-compatible bucket and returning a public URL,
// retrying transient failures through internal/retrypolicy's Policy.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/archviz/diagramsvc/internal/apperr"
	"github.com/archviz/diagramsvc/internal/model"
	"github.com/archviz/diagramsvc/internal/retrypolicy"
)

// Client uploads rendered artifacts to a bucket reachable over HTTP PUT
// (any S3-compatible presigned or path-style endpoint). It does not import
// a cloud SDK: spec.md names no specific provider, and a presigned-PUT HTTP
// client covers S3, GCS, and MinIO alike without binding the service to one
// vendor's SDK.
type Client struct {
	baseURL string
	bucket  string
	public  bool
	http    *http.Client
	retry   retrypolicy.Policy
}

func New(baseURL, bucket string, public bool, retry retrypolicy.Policy) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		bucket:  bucket,
		public:  public,
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   retry,
	}
}

// uploadAttemptTimeout bounds a single PUT attempt (spec.md §5); c.retry
// governs how many attempts happen and the backoff between them.
const uploadAttemptTimeout = 5 * time.Second

// Upload PUTs artifact.Content to the deterministic object path spec.md
// §4.10 specifies — "diagrams/{session_id}/{uuid}.{ext}" — and returns the
// resulting URL, retrying on transient (5xx, network) errors per c.retry.
// When uploads are disabled (object_store_public=false), Upload is a no-op:
// spec.md §4.10/§6.3 call for inline-only output in that mode, so it never
// touches the network.
func (c *Client) Upload(ctx context.Context, sessionID string, artifact model.RenderedArtifact) (string, error) {
	if !c.public {
		return "", nil
	}

	ext := extensionFor(artifact.ContentType)
	objectPath := fmt.Sprintf("%s/diagrams/%s/%s%s", c.bucket, sessionID, uuid.NewString(), ext)
	url := fmt.Sprintf("%s/%s", c.baseURL, objectPath)

	err := c.retry.Do(ctx, isRetriable, func(ctx context.Context) error {
		return c.put(ctx, url, artifact.ContentType, artifact.Content)
	})
	if err != nil {
		return "", apperr.Wrap(apperr.CodeUpload, "upload artifact", err)
	}
	return url, nil
}

func (c *Client) put(ctx context.Context, url, contentType string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadAttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("object store returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return apperr.New(apperr.CodeUpload, fmt.Sprintf("object store rejected upload with status %d", resp.StatusCode))
	}
	return nil
}

// isRetriable treats 5xx and transport errors as retriable; a 4xx wrapped
// as *apperr.Error is not, since retrying a rejected request can't succeed.
func isRetriable(err error) bool {
	_, isClassified := err.(*apperr.Error)
	return !isClassified
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/svg+xml", "text/vnd.mermaid":
		return ".svg"
	case "image/png":
		return ".png"
	case "text/x-python":
		return ".py"
	default:
		return ""
	}
}
