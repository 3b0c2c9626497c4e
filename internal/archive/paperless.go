package archive

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/dhelbig/korrespondenz/internal/config"
)

// PaperlessClient talks to a paperless-ngx instance. Availability probes go
// through a retrying client; the upload itself is sent exactly once because
// paperless consumption is not idempotent.
type PaperlessClient struct {
	baseURL string
	token   string
	enabled bool
	probe   *retryablehttp.Client
	upload  *http.Client
}

func NewPaperlessClient(cfg config.PaperlessConfig) *PaperlessClient {
	transport := &http.Transport{}
	if !cfg.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	probe := retryablehttp.NewClient()
	probe.RetryMax = 2
	probe.HTTPClient = &http.Client{Timeout: 10 * time.Second, Transport: transport}
	probe.Logger = nil

	return &PaperlessClient{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		token:   cfg.APIToken,
		enabled: cfg.Enabled,
		probe:   probe,
		upload:  &http.Client{Timeout: 60 * time.Second, Transport: transport},
	}
}

// IsAvailable reports whether the archive accepts requests. Auth failures
// still count as reachable; only transport errors do not.
func (c *PaperlessClient) IsAvailable(ctx context.Context) bool {
	if !c.enabled || c.token == "" {
		return false
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/documents/?page_size=1", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.probe.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusUnauthorized, http.StatusForbidden:
		return true
	default:
		return false
	}
}

// Upload posts the PDF for consumption and returns the task id paperless
// answers with. createdDate is YYYY-MM-DD and may be empty.
func (c *PaperlessClient) Upload(ctx context.Context, pdfPath, title, createdDate string) (string, error) {
	file, err := os.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("document", filepath.Base(pdfPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	if err := writer.WriteField("title", title); err != nil {
		return "", err
	}
	if createdDate != "" {
		if err := writer.WriteField("created", createdDate); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/documents/post_document/", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.upload.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload document: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload rejected: %d - %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	// The response body is the task id as a JSON string.
	var taskID string
	if err := json.Unmarshal(payload, &taskID); err != nil {
		return "", fmt.Errorf("decode task id: %w", err)
	}
	return taskID, nil
}

// TaskStatus fetches the state of a consumption task.
func (c *PaperlessClient) TaskStatus(ctx context.Context, taskID string) (map[string]any, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/tasks/?task_id="+taskID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.probe.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("task status: %d", resp.StatusCode)
	}

	var status map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return status, nil
}
