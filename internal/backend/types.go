// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"github.com/inkwell-studio/inkwell/internal/alert"
)

// =============================================================================
// REQUESTS
// =============================================================================

// ContentRequest is the body shared by save, analyze, generate and suggest.
type ContentRequest struct {
	ProjectID string `json:"project_id"`
	Content   string `json:"content"`
}

// FixSpellingRequest asks the backend to replace word with suggestion.
type FixSpellingRequest struct {
	ProjectID  string `json:"project_id"`
	Content    string `json:"content"`
	Word       string `json:"word"`
	Suggestion string `json:"suggestion"`
}

// GrammarRequest asks for a rewrite of the text an alert refers to.
type GrammarRequest struct {
	ProjectID string      `json:"project_id"`
	Content   string      `json:"content"`
	Alert     alert.Alert `json:"alert"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// SaveResponse is returned by /editor/save.
type SaveResponse struct {
	Status    string `json:"status"`
	ProjectID string `json:"project_id,omitempty"`
}

// Entity is a character, place or object the backend extracted. Analyze
// responses fill Type; story-brain responses fill EntityType.
type Entity struct {
	ID          string         `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string         `json:"name" yaml:"name"`
	Type        string         `json:"type,omitempty" yaml:"type,omitempty"`
	EntityType  string         `json:"entity_type,omitempty" yaml:"entity_type,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Kind returns whichever type field the backend filled.
func (e Entity) Kind() string {
	if e.EntityType != "" {
		return e.EntityType
	}
	return e.Type
}

// AnalyzeResponse is returned by /editor/analyze and the socket.
type AnalyzeResponse struct {
	Status          string           `json:"status"`
	Alerts          []alert.Alert    `json:"alerts"`
	Entities        []Entity         `json:"entities,omitempty"`
	ResolvedContext string           `json:"resolved_context,omitempty"`
	DetectedActions []map[string]any `json:"detected_actions,omitempty"`
}

// FixSpellingResponse carries the corrected document.
type FixSpellingResponse struct {
	Status        string `json:"status"`
	CorrectedText string `json:"corrected_text"`
}

// GrammarSuggestion is a proposed rewrite for one alert.
type GrammarSuggestion struct {
	Status        string `json:"status"`
	OriginalText  string `json:"original_text"`
	SuggestedText string `json:"suggested_text"`
	Explanation   string `json:"explanation"`
}

// GeneratedSuggestions is a full-document rewrite applying every alert.
type GeneratedSuggestions struct {
	Status        string `json:"status"`
	OriginalText  string `json:"original_text"`
	SuggestedText string `json:"suggested_text"`
	AlertsApplied int    `json:"alerts_applied"`
}

// GhostResponse is a continuation suggestion.
type GhostResponse struct {
	Status     string `json:"status"`
	Suggestion string `json:"suggestion"`
}

// HistoryEntry is one recently analyzed chunk of narrative.
type HistoryEntry struct {
	Content   string `json:"content" yaml:"content"`
	CreatedAt string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// StoryBrain is the project's entity and history state.
type StoryBrain struct {
	Entities      []Entity       `json:"entities" yaml:"entities"`
	RecentHistory []HistoryEntry `json:"recent_history" yaml:"recent_history"`
}

// PlotThread is a named storyline.
type PlotThread struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Color       string `json:"color,omitempty" yaml:"color,omitempty"`
}

// PlotPoint is one event on the timeline.
type PlotPoint struct {
	ID               string  `json:"id" yaml:"id"`
	PlotThreadID     string  `json:"plot_thread_id,omitempty" yaml:"plot_thread_id,omitempty"`
	Title            string  `json:"title" yaml:"title"`
	Description      string  `json:"description,omitempty" yaml:"description,omitempty"`
	EventType        string  `json:"event_type,omitempty" yaml:"event_type,omitempty"`
	TimelinePosition float64 `json:"timeline_position" yaml:"timeline_position"`
	NarrativeChunkID string  `json:"narrative_chunk_id,omitempty" yaml:"narrative_chunk_id,omitempty"`
	PositionX        float64 `json:"position_x,omitempty" yaml:"position_x,omitempty"`
	PositionY        float64 `json:"position_y,omitempty" yaml:"position_y,omitempty"`
}

// Connection links two plot points.
type Connection struct {
	ID             string `json:"id,omitempty" yaml:"id,omitempty"`
	FromPointID    string `json:"from_point_id" yaml:"from_point_id"`
	ToPointID      string `json:"to_point_id" yaml:"to_point_id"`
	ConnectionType string `json:"connection_type,omitempty" yaml:"connection_type,omitempty"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
}

// PlotThreads is returned by /plot-thread/{id}.
type PlotThreads struct {
	Status      string       `json:"status" yaml:"status"`
	PlotThreads []PlotThread `json:"plot_threads" yaml:"plot_threads"`
	PlotPoints  []PlotPoint  `json:"plot_points" yaml:"plot_points"`
	Connections []Connection `json:"connections" yaml:"connections"`
}

// =============================================================================
// PROJECT SETUP AND ENTITIES
// =============================================================================

// CharacterSeed is a character named when a project is created.
type CharacterSeed struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProjectSetup is the body of /projects/setup.
type ProjectSetup struct {
	UserID       string          `json:"user_id,omitempty"`
	Title        string          `json:"title"`
	Genre        string          `json:"genre,omitempty"`
	Perspective  string          `json:"perspective,omitempty"`
	Tone         string          `json:"tone,omitempty"`
	Characters   []CharacterSeed `json:"characters"`
	WorldSetting string          `json:"world_setting"`
}

// SetupResponse carries the id of a new project.
type SetupResponse struct {
	Status    string `json:"status"`
	ProjectID string `json:"project_id"`
}

// EntityUpdate is returned by /editor/update-entity.
type EntityUpdate struct {
	Status string   `json:"status"`
	Data   []Entity `json:"data"`
}

// RefreshSummaryRequest is the body of /editor/refresh-character-summary.
type RefreshSummaryRequest struct {
	ProjectID string `json:"project_id"`
	EntityID  string `json:"entity_id"`
}

// CharacterSummary is a character's regenerated metadata. The summaries
// live under persona_summary and story_summary.
type CharacterSummary struct {
	Status   string         `json:"status"`
	Metadata map[string]any `json:"metadata"`
}

// Text returns a string field of the metadata, or "".
func (c *CharacterSummary) Text(key string) string {
	v, _ := c.Metadata[key].(string)
	return v
}

// =============================================================================
// PLOT EDITING
// =============================================================================

// ExtractResult reports a plot point extraction run. The service answers
// 200 with status "error" when there is nothing to extract from.
type ExtractResult struct {
	Status            string `json:"status" yaml:"status"`
	PlotPointsCreated int    `json:"plot_points_created" yaml:"plot_points_created"`
	ThreadID          string `json:"thread_id,omitempty" yaml:"thread_id,omitempty"`
	Message           string `json:"message,omitempty" yaml:"message,omitempty"`
	Error             string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewPlotThread is the body that creates a plot thread.
type NewPlotThread struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

// NewPlotPoint is the body that creates a plot point. An empty
// PlotThreadID puts the point on the project's first thread.
type NewPlotPoint struct {
	PlotThreadID     string  `json:"plot_thread_id,omitempty"`
	Title            string  `json:"title"`
	Description      string  `json:"description,omitempty"`
	EventType        string  `json:"event_type,omitempty"`
	TimelinePosition int     `json:"timeline_position"`
	NarrativeChunkID string  `json:"narrative_chunk_id,omitempty"`
	PositionX        float64 `json:"position_x"`
	PositionY        float64 `json:"position_y"`
}

// PlotPointPatch changes the fields that are set.
type PlotPointPatch struct {
	Title            *string  `json:"title,omitempty"`
	Description      *string  `json:"description,omitempty"`
	EventType        *string  `json:"event_type,omitempty"`
	TimelinePosition *int     `json:"timeline_position,omitempty"`
	PositionX        *float64 `json:"position_x,omitempty"`
	PositionY        *float64 `json:"position_y,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p PlotPointPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.EventType == nil &&
		p.TimelinePosition == nil && p.PositionX == nil && p.PositionY == nil
}

// NewConnection is the body that links two plot points.
type NewConnection struct {
	FromPointID    string `json:"from_point_id"`
	ToPointID      string `json:"to_point_id"`
	ConnectionType string `json:"connection_type,omitempty"`
	Description    string `json:"description,omitempty"`
}

// ThreadResponse, PointResponse and ConnectionResponse wrap one created or
// updated plot record.
type ThreadResponse struct {
	Status string     `json:"status"`
	Thread PlotThread `json:"thread"`
}

type PointResponse struct {
	Status string     `json:"status"`
	Point  *PlotPoint `json:"point"`
}

type ConnectionResponse struct {
	Status     string     `json:"status"`
	Connection Connection `json:"connection"`
}

// StatusMessage is the body of a delete.
type StatusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// errorBody is the error shape the service returns.
type errorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}
