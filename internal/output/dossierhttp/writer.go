package dossierhttp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pivottriage/pkg/models"
)

// IncidentHeader carries the incident ID of a decided outcome so a receiver
// can drop redelivered dossiers.
const IncidentHeader = "X-Pivottriage-Incident"

// maxErrorBody bounds how much of a rejection body ends up in the error.
const maxErrorBody = 512

// Config configures the HTTP writer.
type Config struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string
}

// Writer posts each outcome as one JSON document.
type Writer struct {
	endpoint string
	header   http.Header
	client   *http.Client
}

// NewWriter validates the endpoint and prepares the shared client.
func NewWriter(cfg Config) (*Writer, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("http output URL is empty")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse http output URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("http output URL must be http or https, got %q", u.Scheme)
	}

	header := make(http.Header, len(cfg.Headers)+1)
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}
	header.Set("Content-Type", "application/json")

	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Writer{
		endpoint: u.String(),
		header:   header,
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// WriteOutcome posts one outcome. Any non-2xx answer is an error that quotes
// the start of the response body.
func (w *Writer) WriteOutcome(out *models.Outcome) error {
	if out == nil {
		return nil
	}
	body, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header = w.header.Clone()
	if out.Record != nil && out.Record.IncidentID != "" {
		req.Header.Set(IncidentHeader, out.Record.IncidentID)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post outcome: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("post outcome: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
}

// Close drops idle keep-alive connections.
func (w *Writer) Close() error {
	w.client.CloseIdleConnections()
	return nil
}
