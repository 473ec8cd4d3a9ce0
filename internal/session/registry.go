package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/orbitview/internal/assistant"
	"github.com/mr1hm/orbitview/internal/catalog"
	"github.com/mr1hm/orbitview/internal/models"
	"github.com/mr1hm/orbitview/internal/repository"
	"github.com/mr1hm/orbitview/internal/stream"
	"github.com/mr1hm/orbitview/internal/tiles"
)

// Session is one open viewer: its view/time state, its chat and the channel
// its renderer listens on.
type Session struct {
	ID           string
	Controller   *Controller
	Conversation *assistant.Conversation
	Events       *stream.Broadcaster

	cat      *catalog.Catalog
	builder  *tiles.Builder
	lastSeen atomic.Int64
}

// Frame renders the current state.
func (s *Session) Frame() models.Frame {
	return RenderFrame(s.cat, s.builder, s.Controller.Snapshot())
}

// AssistantContext captures what the user is looking at right now. The
// viewport is the most recent jump target, if any.
func (s *Session) AssistantContext() assistant.Context {
	st := s.Controller.Snapshot()
	c := assistant.Context{
		Date:      models.FormatDate(st.Date),
		BaseLayer: st.BaseLayer,
		Overlays:  ResolveOverlays(s.cat, st),
	}
	if st.JumpSeq > 0 {
		vp := st.Jump
		c.Viewport = &vp
	}
	return c
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

type RegistryConfig struct {
	PlaybackInterval time.Duration
	IdleTTL          time.Duration
	ReapInterval     time.Duration
}

type Registry struct {
	cfg     RegistryConfig
	cat     *catalog.Catalog
	builder *tiles.Builder
	repo    repository.MessageRepository
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

func NewRegistry(cfg RegistryConfig, cat *catalog.Catalog, builder *tiles.Builder, repo repository.MessageRepository) *Registry {
	return &Registry{
		cfg:      cfg,
		cat:      cat,
		builder:  builder,
		repo:     repo,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()

	conv, err := assistant.NewConversation(ctx, id, r.repo)
	if err != nil {
		return nil, fmt.Errorf("error starting conversation: %w", err)
	}

	s := &Session{
		ID:           id,
		Conversation: conv,
		Events:       stream.NewBroadcaster(),
		cat:          r.cat,
		builder:      r.builder,
	}
	s.Controller = NewController(r.cat,
		WithClock(r.now),
		WithPlaybackInterval(r.cfg.PlaybackInterval),
		WithObserver(func(st State) {
			s.Events.Publish(stream.Event{Type: stream.EventFrame, Data: RenderFrame(r.cat, r.builder, st)})
		}),
	)
	s.touch(r.now())

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	slog.Info("session created", "session_id", id)
	return s, nil
}

// Get returns the session and marks it active.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if ok {
		s.touch(r.now())
	}
	return s, ok
}

func (r *Registry) Delete(ctx context.Context, id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	r.close(ctx, s)
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) close(ctx context.Context, s *Session) {
	s.Controller.Close()
	s.Events.Close()
	if err := s.Conversation.Discard(ctx); err != nil {
		slog.Error("error discarding conversation", "session_id", s.ID, "error", err)
	}
	slog.Info("session closed", "session_id", s.ID)
}

// Start runs the idle-session reaper until ctx is done.
func (r *Registry) Start(ctx context.Context) {
	if r.cfg.IdleTTL <= 0 || r.cfg.ReapInterval <= 0 {
		return
	}
	r.wg.Add(1)
	go r.runReaper(ctx)
}

func (r *Registry) runReaper(ctx context.Context) {
	defer r.wg.Done()
	slog.Info("starting session reaper", "interval", r.cfg.ReapInterval, "idle_ttl", r.cfg.IdleTTL)

	ticker := time.NewTicker(r.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session reaper shutting down")
			return
		case <-ticker.C:
			r.reapIdle(ctx)
		}
	}
}

func (r *Registry) reapIdle(ctx context.Context) int {
	cutoff := r.now().Add(-r.cfg.IdleTTL)

	var idle []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) && s.Events.SubscriberCount() == 0 {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		r.close(ctx, s)
	}
	if len(idle) > 0 {
		slog.Debug("reaped idle sessions", "count", len(idle))
	}
	return len(idle)
}

// CloseStreams ends every open event stream while leaving the sessions usable.
func (r *Registry) CloseStreams() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		s.Events.Close()
	}
}

// Stop waits for the reaper and closes every session.
func (r *Registry) Stop() {
	r.wg.Wait()

	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		all = append(all, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range all {
		r.close(context.Background(), s)
	}
	slog.Info("session registry stopped")
}
