package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AIClient talks to the external image-analysis service. The service
// accepts a base64 data URL and returns a free-form JSON description of the
// image. When no endpoint is configured the client is disabled and every
// call reports ErrAIDisabled.
type AIClient struct {
	URL       string
	UploadDir string
	HTTP      *http.Client
}

// ErrAIDisabled is returned when no AI_URL endpoint is configured.
var ErrAIDisabled = fmt.Errorf("ai analysis disabled: no endpoint configured")

// NewAIClient builds a client with the 15 second request timeout the
// analysis service is known to need for larger images.
func NewAIClient(url, uploadDir string) *AIClient {
	return &AIClient{
		URL:       url,
		UploadDir: uploadDir,
		HTTP:      &http.Client{Timeout: 15 * time.Second},
	}
}

// AnalyzeFile reads an uploaded file by its public URL (e.g.
// "/uploads/file-123.jpg"), posts it to the analysis endpoint and returns
// the analysis text. The fileURL is resolved strictly inside the upload
// directory.
func (a *AIClient) AnalyzeFile(ctx context.Context, fileURL string) (string, error) {
	if a.URL == "" {
		return "", ErrAIDisabled
	}
	local, err := a.resolve(fileURL)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	payload := map[string]string{
		"image": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai request: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("ai response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// AnalyzeAll runs AnalyzeFile over a batch of uploads and joins the
// successful results. Failures are logged and skipped: analysis is best
// effort and must never block ticket creation.
func (a *AIClient) AnalyzeAll(ctx context.Context, fileURLs []string) string {
	var analyses []string
	for _, u := range fileURLs {
		res, err := a.AnalyzeFile(ctx, u)
		if err != nil {
			if err != ErrAIDisabled {
				log.Printf("ai: analyze %s failed: %v", u, err)
			}
			continue
		}
		if res != "" {
			analyses = append(analyses, res)
		}
	}
	return strings.Join(analyses, "; ")
}

// resolve maps a public /uploads/... URL onto the local upload directory,
// rejecting anything that would escape it.
func (a *AIClient) resolve(fileURL string) (string, error) {
	name := strings.TrimPrefix(fileURL, "/uploads/")
	name = filepath.Base(name) // strip any path traversal
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("invalid file url %q", fileURL)
	}
	return filepath.Join(a.UploadDir, name), nil
}
