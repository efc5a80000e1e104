package visionary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"keepsake/internal/logging"
	"keepsake/internal/services"
)

const (
	stateActive     = "ACTIVE"
	stateFailed     = "FAILED"
	defaultBaseURL  = "https://generativelanguage.googleapis.com"
	defaultModel    = "gemini-1.5-flash"
	defaultPoll     = 3 * time.Second
	defaultAnalyze  = 5 * time.Minute
	uploadMimeType  = "video/mp4"
	maxResponseSize = 8 << 20
)

// Handle identifies an uploaded remote file: the stable resource name used
// for lookups and deletion, and the URI referenced from prompts.
type Handle struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Options configures a Client.
type Options struct {
	APIKey         string
	Model          string
	BaseURL        string
	HTTPClient     *http.Client
	PollInterval   time.Duration
	AnalyzeTimeout time.Duration
	Logger         *slog.Logger
}

// Client is a minimal Gemini REST client covering the Files API and
// generateContent.
type Client struct {
	apiKey         string
	model          string
	baseURL        string
	httpClient     *http.Client
	pollInterval   time.Duration
	analyzeTimeout time.Duration
	logger         *slog.Logger
}

// NewClient validates opts and returns a Client. A missing API key is a
// configuration error; everything else falls back to defaults.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "analysis", "client", "api key is required", nil)
	}
	client := &Client{
		apiKey:         opts.APIKey,
		model:          opts.Model,
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		httpClient:     opts.HTTPClient,
		pollInterval:   opts.PollInterval,
		analyzeTimeout: opts.AnalyzeTimeout,
		logger:         opts.Logger,
	}
	if client.model == "" {
		client.model = defaultModel
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{}
	}
	if client.pollInterval <= 0 {
		client.pollInterval = defaultPoll
	}
	if client.analyzeTimeout <= 0 {
		client.analyzeTimeout = defaultAnalyze
	}
	if client.logger == nil {
		client.logger = logging.NewNop()
	}
	return client, nil
}

type remoteFile struct {
	Name  string `json:"name"`
	URI   string `json:"uri"`
	State string `json:"state"`
}

type fileEnvelope struct {
	File remoteFile `json:"file"`
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "analysis", "request", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return services.Wrap(services.ErrTransient, "analysis", "read response", req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(body))
		if len(detail) > 300 {
			detail = detail[:300]
		}
		return services.Wrap(services.ErrTransient, "analysis", "request",
			fmt.Sprintf("%s returned %d: %s", req.URL.Path, resp.StatusCode, detail), nil)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrValidation, "analysis", "decode response", req.URL.Path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	return req, nil
}
