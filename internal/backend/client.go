// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/inkwell-studio/inkwell/internal/alert"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// DefaultBaseURL is where a local backend listens.
const DefaultBaseURL = "http://127.0.0.1:8000"

// Config holds configuration options for the backend client.
type Config struct {
	// BaseURL is the service base URL (default: http://127.0.0.1:8000)
	BaseURL string

	// Token is sent as a bearer token when set
	Token string

	// Timeout for each request (default: 30s)
	Timeout time.Duration

	// RequestsPerSecond bounds load on the service (default: 4)
	RequestsPerSecond float64

	// Burst is the number of requests allowed at once (default: 4)
	Burst int

	// UserAgent header value
	UserAgent string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           DefaultBaseURL,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 4,
		Burst:             4,
		UserAgent:         "inkwell",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Inkwell backend.
//
// The Client is safe for concurrent use.
type Client struct {
	config     *Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client. A nil config means DefaultConfig.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config

	// Fill in defaults for any zero values
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 4
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 4
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "inkwell"
	}

	return &Client{
		config:     &cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Config returns a copy of the client's configuration.
func (c *Client) Config() Config {
	return *c.config
}

// =============================================================================
// EDITOR ROUTES
// =============================================================================

// Save persists content without analyzing it.
func (c *Client) Save(ctx context.Context, project, content string) (*SaveResponse, error) {
	if err := checkInput(project, content); err != nil {
		return nil, err
	}
	var out SaveResponse
	err := c.do(ctx, http.MethodPost, "/editor/save", ContentRequest{ProjectID: project, Content: content}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze runs the backend's analysis over content.
func (c *Client) Analyze(ctx context.Context, project, content string) (*AnalyzeResponse, error) {
	if err := checkInput(project, content); err != nil {
		return nil, err
	}
	var out AnalyzeResponse
	err := c.do(ctx, http.MethodPost, "/editor/analyze", ContentRequest{ProjectID: project, Content: content}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FixSpelling asks the backend to replace word with suggestion in content.
func (c *Client) FixSpelling(ctx context.Context, project, content, word, suggestion string) (*FixSpellingResponse, error) {
	if err := checkInput(project, content); err != nil {
		return nil, err
	}
	req := FixSpellingRequest{ProjectID: project, Content: content, Word: word, Suggestion: suggestion}
	var out FixSpellingResponse
	if err := c.do(ctx, http.MethodPost, "/editor/fix-spelling", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GrammarSuggestion asks for a rewrite of the text an alert refers to.
func (c *Client) GrammarSuggestion(ctx context.Context, project, content string, a alert.Alert) (*GrammarSuggestion, error) {
	if err := checkInput(project, content); err != nil {
		return nil, err
	}
	req := GrammarRequest{ProjectID: project, Content: content, Alert: a}
	var out GrammarSuggestion
	if err := c.do(ctx, http.MethodPost, "/editor/get-grammar-suggestion", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateSuggestions asks for a full rewrite applying every alert.
func (c *Client) GenerateSuggestions(ctx context.Context, project, content string) (*GeneratedSuggestions, error) {
	if err := checkInput(project, content); err != nil {
		return nil, err
	}
	var out GeneratedSuggestions
	err := c.do(ctx, http.MethodPost, "/editor/generate-suggestions", ContentRequest{ProjectID: project, Content: content}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GhostSuggestion asks for a continuation of window.
func (c *Client) GhostSuggestion(ctx context.Context, project, window string) (string, error) {
	if err := checkInput(project, window); err != nil {
		return "", err
	}
	var out GhostResponse
	err := c.do(ctx, http.MethodPost, "/editor/suggest", ContentRequest{ProjectID: project, Content: window}, &out)
	if err != nil {
		return "", err
	}
	return out.Suggestion, nil
}

// =============================================================================
// PROJECT STATE
// =============================================================================

// StoryBrain fetches the project's entities and recent history.
func (c *Client) StoryBrain(ctx context.Context, project string) (*StoryBrain, error) {
	if project == "" {
		return nil, ErrMissingProject
	}
	var out StoryBrain
	if err := c.do(ctx, http.MethodGet, "/editor/story-brain/"+url.PathEscape(project), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PlotThread fetches the project's plot threads, points and connections.
func (c *Client) PlotThread(ctx context.Context, project string) (*PlotThreads, error) {
	if project == "" {
		return nil, ErrMissingProject
	}
	var out PlotThreads
	if err := c.do(ctx, http.MethodGet, "/plot-thread/"+url.PathEscape(project), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetupProject creates a project seeded with its characters and world
// setting, and returns the new project id.
func (c *Client) SetupProject(ctx context.Context, setup ProjectSetup) (string, error) {
	if strings.TrimSpace(setup.Title) == "" {
		return "", invalid("project title is required")
	}
	if setup.Characters == nil {
		setup.Characters = []CharacterSeed{}
	}
	var out SetupResponse
	if err := c.do(ctx, http.MethodPost, "/projects/setup", setup, &out); err != nil {
		return "", err
	}
	if out.ProjectID == "" {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "setup returned no project id"}
	}
	return out.ProjectID, nil
}

// UpdateEntity replaces an entity's metadata with patch.
func (c *Client) UpdateEntity(ctx context.Context, entityID string, patch map[string]any) (*EntityUpdate, error) {
	if entityID == "" {
		return nil, invalid("entity id is required")
	}
	if patch == nil {
		patch = map[string]any{}
	}
	var out EntityUpdate
	path := "/editor/update-entity?entity_id=" + url.QueryEscape(entityID)
	if err := c.do(ctx, http.MethodPost, path, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshCharacterSummary regenerates a character's persona and story
// summaries from what has been written so far.
func (c *Client) RefreshCharacterSummary(ctx context.Context, project, entityID string) (*CharacterSummary, error) {
	if project == "" {
		return nil, ErrMissingProject
	}
	if entityID == "" {
		return nil, invalid("entity id is required")
	}
	var out CharacterSummary
	req := RefreshSummaryRequest{ProjectID: project, EntityID: entityID}
	if err := c.do(ctx, http.MethodPost, "/editor/refresh-character-summary", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// PLOT EDITING
// =============================================================================

// ExtractPlotPoints asks the backend to turn the project's text into plot
// points. A run with nothing to extract from is reported as ErrServer
// carrying the service's message.
func (c *Client) ExtractPlotPoints(ctx context.Context, project string) (*ExtractResult, error) {
	if project == "" {
		return nil, ErrMissingProject
	}
	var out ExtractResult
	if err := c.do(ctx, http.MethodPost, "/plot-thread/"+url.PathEscape(project)+"/extract", nil, &out); err != nil {
		return nil, err
	}
	if out.Status == "error" {
		msg := out.Message
		if msg == "" {
			msg = out.Error
		}
		if msg == "" {
			msg = "extraction failed"
		}
		return nil, &ClientError{Type: ErrTypeServer, Message: msg}
	}
	return &out, nil
}

// CreatePlotThread adds a storyline to the project.
func (c *Client) CreatePlotThread(ctx context.Context, project string, t NewPlotThread) (*PlotThread, error) {
	if project == "" {
		return nil, ErrMissingProject
	}
	if strings.TrimSpace(t.Title) == "" {
		return nil, invalid("thread title is required")
	}
	var out ThreadResponse
	if err := c.do(ctx, http.MethodPost, "/plot-thread/"+url.PathEscape(project)+"/thread", t, &out); err != nil {
		return nil, err
	}
	return &out.Thread, nil
}

// CreatePlotPoint adds an event to the project's timeline.
func (c *Client) CreatePlotPoint(ctx context.Context, project string, p NewPlotPoint) (*PlotPoint, error) {
	if project == "" {
		return nil, ErrMissingProject
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, invalid("plot point title is required")
	}
	var out PointResponse
	if err := c.do(ctx, http.MethodPost, "/plot-thread/"+url.PathEscape(project)+"/point", p, &out); err != nil {
		return nil, err
	}
	if out.Point == nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "no plot point in response"}
	}
	return out.Point, nil
}

// UpdatePlotPoint changes the fields set in patch.
func (c *Client) UpdatePlotPoint(ctx context.Context, pointID string, patch PlotPointPatch) (*PlotPoint, error) {
	if pointID == "" {
		return nil, invalid("plot point id is required")
	}
	if patch.Empty() {
		return nil, invalid("no fields to update")
	}
	var out PointResponse
	if err := c.do(ctx, http.MethodPut, "/plot-thread/point/"+url.PathEscape(pointID), patch, &out); err != nil {
		return nil, err
	}
	if out.Point == nil {
		return nil, &ClientError{Type: ErrTypeNotFound, Message: "plot point " + pointID + " not found"}
	}
	return out.Point, nil
}

// DeletePlotPoint removes a plot point and its connections.
func (c *Client) DeletePlotPoint(ctx context.Context, pointID string) error {
	if pointID == "" {
		return invalid("plot point id is required")
	}
	return c.do(ctx, http.MethodDelete, "/plot-thread/point/"+url.PathEscape(pointID), nil, &StatusMessage{})
}

// Connect links two plot points. The type defaults to FOLLOWS.
func (c *Client) Connect(ctx context.Context, conn NewConnection) (*Connection, error) {
	if conn.FromPointID == "" || conn.ToPointID == "" {
		return nil, invalid("both plot point ids are required")
	}
	if conn.ConnectionType == "" {
		conn.ConnectionType = "FOLLOWS"
	}
	var out ConnectionResponse
	if err := c.do(ctx, http.MethodPost, "/plot-thread/connection", conn, &out); err != nil {
		return nil, err
	}
	return &out.Connection, nil
}

// Disconnect removes a connection between plot points.
func (c *Client) Disconnect(ctx context.Context, connectionID string) error {
	if connectionID == "" {
		return invalid("connection id is required")
	}
	return c.do(ctx, http.MethodDelete, "/plot-thread/connection/"+url.PathEscape(connectionID), nil, &StatusMessage{})
}

// Health verifies that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// =============================================================================
// TRANSPORT
// =============================================================================

func checkInput(project, content string) error {
	if project == "" {
		return ErrMissingProject
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// do sends one JSON request and decodes the response into out (if not nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &ClientError{Type: ErrTypeTimeout, Message: "rate limit wait aborted", Cause: err}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return &ClientError{Type: ErrTypeUnavailable, Message: "failed to create request", Cause: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
		}
		return &ClientError{Type: ErrTypeUnavailable, Message: "backend is not reachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &ClientError{Type: ErrTypeNotFound, Message: method + " " + path + ": not found", Status: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Try to read error message
		var eb errorBody
		msg := "request failed: " + resp.Status
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb); err == nil {
			if eb.Detail != "" {
				msg = eb.Detail
			} else if eb.Message != "" {
				msg = eb.Message
			}
		}
		return &ClientError{Type: ErrTypeServer, Message: msg, Status: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
