package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPConfig holds configuration for the HTTP archiver client.
type HTTPConfig struct {
	// BaseURL is the archive service endpoint, e.g. http://archiver:8090.
	BaseURL string

	// Timeout is the request timeout for individual calls.
	// Default: 30 seconds
	Timeout time.Duration

	Logger zerolog.Logger
}

// HTTPArchiver talks to the object-storage archive service. Callers wrap it
// in a ResilientArchiver; this client performs no retries of its own.
type HTTPArchiver struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// archiveRequest is the wire format of an archive call.
type archiveRequest struct {
	Files []archiveFile `json:"files"`
}

type archiveFile struct {
	ScreenshotURL *string `json:"screenshotUrl,omitempty"`
	ReplayURL     *string `json:"replayUrl,omitempty"`
}

// archiveResponse is the archive service's reply.
type archiveResponse struct {
	FilesArchived int      `json:"filesArchived"`
	BytesArchived int64    `json:"bytesArchived"`
	Errors        []string `json:"errors,omitempty"`
}

// NewHTTPArchiver creates a new HTTP archive client.
func NewHTTPArchiver(cfg HTTPConfig) *HTTPArchiver {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &HTTPArchiver{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}
}

// ArchiveReportFiles archives a single report's files.
func (a *HTTPArchiver) ArchiveReportFiles(ctx context.Context, screenshotURL, replayURL *string) (*Result, error) {
	return a.post(ctx, archiveRequest{
		Files: []archiveFile{{ScreenshotURL: screenshotURL, ReplayURL: replayURL}},
	})
}

// ArchiveBatch archives multiple reports' files in one call.
func (a *HTTPArchiver) ArchiveBatch(ctx context.Context, refs []FileRef) (*Result, error) {
	files := make([]archiveFile, 0, len(refs))
	for _, ref := range refs {
		files = append(files, archiveFile{
			ScreenshotURL: ref.ScreenshotURL,
			ReplayURL:     ref.ReplayURL,
		})
	}
	return a.post(ctx, archiveRequest{Files: files})
}

func (a *HTTPArchiver) post(ctx context.Context, payload archiveRequest) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding archive request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/archive", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating archive request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling archive service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("archive service returned status %d", resp.StatusCode)
	}

	var decoded archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding archive response: %w", err)
	}

	a.logger.Debug().
		Int("files", decoded.FilesArchived).
		Int64("bytes", decoded.BytesArchived).
		Int("errors", len(decoded.Errors)).
		Msg("archive call completed")

	return &Result{
		FilesArchived: decoded.FilesArchived,
		BytesArchived: decoded.BytesArchived,
		Errors:        decoded.Errors,
	}, nil
}

// Ensure HTTPArchiver implements Archiver interface.
var _ Archiver = (*HTTPArchiver)(nil)
