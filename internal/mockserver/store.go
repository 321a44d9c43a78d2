// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell-studio/inkwell/internal/backend"
	"github.com/inkwell-studio/inkwell/internal/suggest"
)

const (
	// DefaultMaxHistory is how many saved drafts a project keeps.
	DefaultMaxHistory = 50

	// brainHistory is how many drafts the story brain returns.
	brainHistory = 10

	// pointTitleWords is the length of a plot point title.
	pointTitleWords = 6

	// worldPrefix marks the draft that holds a project's world setting.
	worldPrefix = "WORLD SETTING: "

	defaultThreadColor = "#5a5fd8"
	storylineColor     = "#7C3AED"
)

var (
	ErrEntityNotFound     = errors.New("entity not found")
	ErrNotCharacter       = errors.New("entity is not a character")
	ErrThreadNotFound     = errors.New("plot thread not found")
	ErrPointNotFound      = errors.New("plot point not found")
	ErrConnectionNotFound = errors.New("connection not found")
)

// draft is one saved or analyzed version of a project's text.
type draft struct {
	id      string
	content string
	created time.Time
}

// project is the state the mock keeps for one project id.
type project struct {
	drafts   []draft // oldest first
	entities []backend.Entity
	names    map[string]bool

	threads   []backend.PlotThread
	points    []backend.PlotPoint
	links     []backend.Connection
	extracted map[string]bool // draft ids already on the timeline
}

// Store holds per-project drafts, entities and plot data in memory. It is
// safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	projects   map[string]*project
	maxHistory int
	now        func() time.Time
}

// NewStore returns an empty store keeping at most maxHistory drafts per
// project. maxHistory <= 0 uses DefaultMaxHistory.
func NewStore(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Store{
		projects:   make(map[string]*project),
		maxHistory: maxHistory,
		now:        time.Now,
	}
}

// getOrCreate must be called with the write lock held.
func (s *Store) getOrCreate(id string) *project {
	p, ok := s.projects[id]
	if !ok {
		p = &project{names: make(map[string]bool), extracted: make(map[string]bool)}
		s.projects[id] = p
	}
	return p
}

// =============================================================================
// DRAFTS AND ENTITIES
// =============================================================================

// Save appends content to the project's history. Saving the same text
// twice in a row records it once.
func (s *Store) Save(id, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked(s.getOrCreate(id), content)
}

func (s *Store) saveLocked(p *project, content string) {
	if n := len(p.drafts); n > 0 && p.drafts[n-1].content == content {
		return
	}
	p.drafts = append(p.drafts, draft{id: uuid.NewString(), content: content, created: s.now()})
	if over := len(p.drafts) - s.maxHistory; over > 0 {
		p.drafts = append([]draft(nil), p.drafts[over:]...)
	}
}

// AddEntities records entities the project has not mentioned before and
// gives each an id.
func (s *Store) AddEntities(id string, entities []backend.Entity) {
	if len(entities) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.getOrCreate(id)
	for _, e := range entities {
		addEntity(p, backend.Entity{Name: e.Name, EntityType: e.Kind(), Description: e.Description, Metadata: e.Metadata})
	}
}

// addEntity appends e unless the name is already known.
func addEntity(p *project, e backend.Entity) {
	key := strings.ToLower(e.Name)
	if key == "" || p.names[key] {
		return
	}
	p.names[key] = true
	e.ID = uuid.NewString()
	e.Type = ""
	p.entities = append(p.entities, e)
}

// Setup creates a project from a setup form: the characters become
// entities and the world setting becomes the first draft.
func (s *Store) Setup(setup backend.ProjectSetup) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	p := s.getOrCreate(id)
	for _, c := range setup.Characters {
		addEntity(p, backend.Entity{
			Name:        strings.TrimSpace(c.Name),
			EntityType:  "CHARACTER",
			Description: c.Description,
			Metadata:    map[string]any{"status": "alive", "inventory": []any{}},
		})
	}
	if world := strings.TrimSpace(setup.WorldSetting); world != "" {
		s.saveLocked(p, worldPrefix+world)
	}
	return id
}

// Has reports whether anything was saved for the project.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.projects[id]
	return ok
}

// Brain returns the project's entities and its latest drafts, newest
// first. An unknown project has an empty brain.
func (s *Store) Brain(id string) backend.StoryBrain {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := backend.StoryBrain{
		Entities:      []backend.Entity{},
		RecentHistory: []backend.HistoryEntry{},
	}
	p, ok := s.projects[id]
	if !ok {
		return out
	}
	for _, e := range p.entities {
		e.Metadata = maps.Clone(e.Metadata)
		out.Entities = append(out.Entities, e)
	}
	for i := len(p.drafts) - 1; i >= 0 && len(out.RecentHistory) < brainHistory; i-- {
		d := p.drafts[i]
		out.RecentHistory = append(out.RecentHistory, backend.HistoryEntry{
			Content:   d.content,
			CreatedAt: d.created.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// findEntity must be called with the lock held.
func (s *Store) findEntity(entityID string) (*project, int) {
	for _, p := range s.projects {
		for i := range p.entities {
			if p.entities[i].ID == entityID {
				return p, i
			}
		}
	}
	return nil, -1
}

// UpdateEntity replaces an entity's metadata.
func (s *Store) UpdateEntity(entityID string, metadata map[string]any) (backend.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, i := s.findEntity(entityID)
	if p == nil {
		return backend.Entity{}, ErrEntityNotFound
	}
	p.entities[i].Metadata = maps.Clone(metadata)
	out := p.entities[i]
	out.Metadata = maps.Clone(out.Metadata)
	return out, nil
}

// RefreshSummary rebuilds a character's persona and story summaries from
// the project's drafts and returns the merged metadata.
func (s *Store) RefreshSummary(projectID, entityID string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok {
		return nil, ErrEntityNotFound
	}
	i := -1
	for j := range p.entities {
		if p.entities[j].ID == entityID {
			i = j
			break
		}
	}
	if i < 0 {
		return nil, ErrEntityNotFound
	}
	e := &p.entities[i]
	if e.Kind() != "CHARACTER" {
		return nil, ErrNotCharacter
	}

	persona, story := summarize(e.Name, e.Description, p.drafts)
	meta := maps.Clone(e.Metadata)
	if meta == nil {
		meta = make(map[string]any)
	}
	meta["persona_summary"] = persona
	meta["story_summary"] = story
	meta["summary_updated_at"] = s.now().UTC().Format(time.RFC3339)
	e.Metadata = meta
	return maps.Clone(meta), nil
}

// summarize builds the two character summaries. The story summary is the
// latest sentence that names the character.
func summarize(name, description string, drafts []draft) (persona, story string) {
	needle := strings.ToLower(name)
	mentions, total := 0, 0
	story = "No story events recorded yet."
	found := false

	for i := len(drafts) - 1; i >= 0; i-- {
		text := drafts[i].content
		if strings.HasPrefix(text, worldPrefix) {
			continue
		}
		total++
		if !strings.Contains(strings.ToLower(text), needle) {
			continue
		}
		mentions++
		if found {
			continue
		}
		spans := suggest.Sentences(text)
		for j := len(spans) - 1; j >= 0; j-- {
			if sentence := spans[j].Text(text); strings.Contains(strings.ToLower(sentence), needle) {
				story = strings.Join(strings.Fields(sentence), " ")
				found = true
				break
			}
		}
	}

	persona = strings.TrimSpace(description)
	if persona == "" {
		persona = name + " has no description yet."
	} else if !strings.HasSuffix(persona, ".") {
		persona += "."
	}
	persona += fmt.Sprintf(" Named in %d of %d drafts.", mentions, total)
	return persona, story
}

// =============================================================================
// PLOT
// =============================================================================

// Threads returns the project's plot threads, points ordered by timeline
// position, and connections. ok is false for an unknown project.
func (s *Store) Threads(id string) (out backend.PlotThreads, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return out, false
	}
	out = backend.PlotThreads{
		Status:      "success",
		PlotThreads: append([]backend.PlotThread{}, p.threads...),
		PlotPoints:  append([]backend.PlotPoint{}, p.points...),
		Connections: append([]backend.Connection{}, p.links...),
	}
	sort.SliceStable(out.PlotPoints, func(i, j int) bool {
		return out.PlotPoints[i].TimelinePosition < out.PlotPoints[j].TimelinePosition
	})
	return out, true
}

// Extract puts every draft not yet on the timeline onto the project's
// first thread, one point per draft, each following the one before.
func (s *Store) Extract(id string) backend.ExtractResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	var pending []draft
	if ok {
		for _, d := range p.drafts {
			if !p.extracted[d.id] && !strings.HasPrefix(d.content, worldPrefix) {
				pending = append(pending, d)
			}
		}
	}
	if !ok || (len(pending) == 0 && len(p.points) == 0) {
		return backend.ExtractResult{
			Status:  "error",
			Message: "No narrative chunks found. Write some content first.",
		}
	}

	thread := firstThread(p, "Main storyline", "Drafts in the order they were written", storylineColor)
	prev, next := lastPoint(p, thread.ID)
	for _, d := range pending {
		pt := backend.PlotPoint{
			ID:               uuid.NewString(),
			PlotThreadID:     thread.ID,
			Title:            pointTitle(d.content),
			EventType:        "DRAFT",
			TimelinePosition: next,
			NarrativeChunkID: d.id,
		}
		p.points = append(p.points, pt)
		p.extracted[d.id] = true
		if prev != "" {
			p.links = append(p.links, backend.Connection{
				ID:             uuid.NewString(),
				FromPointID:    prev,
				ToPointID:      pt.ID,
				ConnectionType: "FOLLOWS",
			})
		}
		prev = pt.ID
		next++
	}
	return backend.ExtractResult{Status: "success", PlotPointsCreated: len(pending), ThreadID: thread.ID}
}

// firstThread returns the project's first thread, creating it when the
// project has none.
func firstThread(p *project, title, description, color string) backend.PlotThread {
	if len(p.threads) > 0 {
		return p.threads[0]
	}
	t := backend.PlotThread{ID: uuid.NewString(), Title: title, Description: description, Color: color}
	p.threads = append(p.threads, t)
	return t
}

// lastPoint returns the id of the latest point on thread and the position
// after the whole timeline.
func lastPoint(p *project, threadID string) (id string, next float64) {
	best := -1.0
	next = 1
	for _, pt := range p.points {
		if pt.TimelinePosition >= next {
			next = pt.TimelinePosition + 1
		}
		if pt.PlotThreadID == threadID && pt.TimelinePosition > best {
			best, id = pt.TimelinePosition, pt.ID
		}
	}
	return id, next
}

// AddThread creates a plot thread.
func (s *Store) AddThread(id string, in backend.NewPlotThread) backend.PlotThread {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.getOrCreate(id)
	if in.Color == "" {
		in.Color = defaultThreadColor
	}
	t := backend.PlotThread{ID: uuid.NewString(), Title: in.Title, Description: in.Description, Color: in.Color}
	p.threads = append(p.threads, t)
	return t
}

// AddPoint creates a plot point. Without a thread id the point goes on
// the project's first thread.
func (s *Store) AddPoint(id string, in backend.NewPlotPoint) (backend.PlotPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.getOrCreate(id)
	threadID := in.PlotThreadID
	if threadID == "" {
		threadID = firstThread(p, "Main Plot", "", defaultThreadColor).ID
	} else if !hasThread(p, threadID) {
		return backend.PlotPoint{}, ErrThreadNotFound
	}
	if in.EventType == "" {
		in.EventType = "OTHER"
	}

	pt := backend.PlotPoint{
		ID:               uuid.NewString(),
		PlotThreadID:     threadID,
		Title:            in.Title,
		Description:      in.Description,
		EventType:        in.EventType,
		TimelinePosition: float64(in.TimelinePosition),
		NarrativeChunkID: in.NarrativeChunkID,
		PositionX:        in.PositionX,
		PositionY:        in.PositionY,
	}
	p.points = append(p.points, pt)
	return pt, nil
}

func hasThread(p *project, id string) bool {
	for _, t := range p.threads {
		if t.ID == id {
			return true
		}
	}
	return false
}

// findPoint must be called with the lock held.
func (s *Store) findPoint(pointID string) (*project, int) {
	for _, p := range s.projects {
		for i := range p.points {
			if p.points[i].ID == pointID {
				return p, i
			}
		}
	}
	return nil, -1
}

// UpdatePoint applies the fields set in patch.
func (s *Store) UpdatePoint(pointID string, patch backend.PlotPointPatch) (backend.PlotPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, i := s.findPoint(pointID)
	if p == nil {
		return backend.PlotPoint{}, ErrPointNotFound
	}
	pt := &p.points[i]
	if patch.Title != nil {
		pt.Title = *patch.Title
	}
	if patch.Description != nil {
		pt.Description = *patch.Description
	}
	if patch.EventType != nil {
		pt.EventType = *patch.EventType
	}
	if patch.TimelinePosition != nil {
		pt.TimelinePosition = float64(*patch.TimelinePosition)
	}
	if patch.PositionX != nil {
		pt.PositionX = *patch.PositionX
	}
	if patch.PositionY != nil {
		pt.PositionY = *patch.PositionY
	}
	return *pt, nil
}

// DeletePoint removes a plot point and every connection touching it.
func (s *Store) DeletePoint(pointID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, i := s.findPoint(pointID)
	if p == nil {
		return ErrPointNotFound
	}
	p.points = append(p.points[:i], p.points[i+1:]...)
	kept := p.links[:0]
	for _, c := range p.links {
		if c.FromPointID != pointID && c.ToPointID != pointID {
			kept = append(kept, c)
		}
	}
	p.links = kept
	return nil
}

// Connect links two points of the same project. Linking the same pair
// with the same type again returns the existing connection.
func (s *Store) Connect(in backend.NewConnection) (backend.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, _ := s.findPoint(in.FromPointID)
	to, _ := s.findPoint(in.ToPointID)
	if from == nil || to == nil || from != to {
		return backend.Connection{}, ErrPointNotFound
	}
	if in.ConnectionType == "" {
		in.ConnectionType = "FOLLOWS"
	}
	for _, c := range from.links {
		if c.FromPointID == in.FromPointID && c.ToPointID == in.ToPointID && c.ConnectionType == in.ConnectionType {
			return c, nil
		}
	}
	c := backend.Connection{
		ID:             uuid.NewString(),
		FromPointID:    in.FromPointID,
		ToPointID:      in.ToPointID,
		ConnectionType: in.ConnectionType,
		Description:    in.Description,
	}
	from.links = append(from.links, c)
	return c, nil
}

// Disconnect removes a connection.
func (s *Store) Disconnect(connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.projects {
		for i, c := range p.links {
			if c.ID == connectionID {
				p.links = append(p.links[:i], p.links[i+1:]...)
				return nil
			}
		}
	}
	return ErrConnectionNotFound
}

// pointTitle is the first few words of content.
func pointTitle(content string) string {
	words := strings.Fields(content)
	if len(words) <= pointTitleWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:pointTitleWords], " ") + "..."
}
