// Package syncer reconciles the rendered timeline against the backend on a
// fixed polling interval. Each in-flight fetch is keyed to the conversation
// and generation it was issued for; results that complete after a
// conversation switch are discarded instead of landing in stale state.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gigtalk/gigtalk/internal/logging"
	"github.com/gigtalk/gigtalk/internal/timeline"
)

// Synchronizer errors.
var (
	ErrAlreadyRunning = errors.New("synchronizer already running")
	ErrNotRunning     = errors.New("synchronizer not running")
)

// DefaultPollInterval is used when the configured interval is not positive.
const DefaultPollInterval = 3 * time.Second

// Fetcher is the backend surface the synchronizer polls. *api.Client
// implements it.
type Fetcher interface {
	ListMessages(ctx context.Context, conversationID string) ([]timeline.Message, error)
	ListConversations(ctx context.Context) ([]timeline.Conversation, error)
}

// Sink receives successful reconciliation results for write-through
// persistence. It may be nil; sink errors are logged and ignored.
type Sink interface {
	SaveConversations(ctx context.Context, convs []timeline.Conversation) error
	SaveMessages(ctx context.Context, conversationID string, msgs []timeline.Message) error
}

// Event is delivered after each reconciliation that changed state.
type Event struct {
	// ConversationID the event applies to.
	ConversationID string

	// Merged holds messages folded directly into the timeline. Non-empty
	// only when the viewport was at the bottom.
	Merged []timeline.Message

	// Buffered is the count of messages routed to the pending buffer on
	// this tick; BufferTotal is the buffer size afterwards.
	Buffered    int
	BufferTotal int

	// ScrollToBottom requests an immediate scroll after a direct merge.
	ScrollToBottom bool

	// Conversations is the refreshed conversation-list summary, when it
	// was part of this tick.
	Conversations []timeline.Conversation
}

// Config contains synchronizer settings.
type Config struct {
	// PollInterval is the fixed fetch cadence.
	PollInterval time.Duration
}

// Synchronizer polls the open conversation and reconciles fetched batches
// into the timeline or the pending buffer.
type Synchronizer struct {
	fetcher  Fetcher
	sink     Sink
	interval time.Duration

	// viewport is queried at reconcile time, not fetch time, so a scroll
	// during a slow fetch still routes correctly.
	viewport func() timeline.ViewportState

	events chan Event
	logger zerolog.Logger

	mu             sync.Mutex
	conversationID string
	generation     uint64
	tl             *timeline.Timeline
	buf            *timeline.Buffer

	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	refresh chan struct{}
}

// New creates a Synchronizer. viewport reports the current scroll
// classification; sink may be nil.
func New(cfg Config, fetcher Fetcher, sink Sink, viewport func() timeline.ViewportState) *Synchronizer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Synchronizer{
		fetcher:  fetcher,
		sink:     sink,
		interval: cfg.PollInterval,
		viewport: viewport,
		events:   make(chan Event, 16),
		logger:   logging.Component("syncer"),
		tl:       timeline.NewTimeline(""),
		buf:      timeline.NewBuffer(),
		refresh:  make(chan struct{}, 1),
	}
}

// Events returns the reconciliation event stream.
func (s *Synchronizer) Events() <-chan Event {
	return s.events
}

// Timeline returns the rendered timeline. Callers must only touch it from
// the event-loop goroutine that also consumes Events.
func (s *Synchronizer) Timeline() *timeline.Timeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl
}

// Buffer returns the pending buffer for the open conversation.
func (s *Synchronizer) Buffer() *timeline.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf
}

// Start begins the polling loop.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.logger.Info().Dur("interval", s.interval).Msg("synchronizer starting")

	s.wg.Add(1)
	go s.runLoop()
	return nil
}

// Stop halts the polling loop and waits for the in-flight tick.
func (s *Synchronizer) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("synchronizer stopped")
	return nil
}

// SetConversation switches the open conversation. The pending buffer is
// cleared, the timeline resets to the seeded messages, and any in-flight
// fetch for the previous conversation is invalidated.
func (s *Synchronizer) SetConversation(conversationID string, seed []timeline.Message) {
	s.mu.Lock()
	s.conversationID = conversationID
	s.generation++
	s.buf.Clear()
	s.tl.Reset(conversationID, seed)
	s.mu.Unlock()

	s.logger.Debug().Str("conversation_id", conversationID).Msg("conversation switched")
	s.RefreshNow()
}

// RefreshNow requests an immediate poll tick without waiting the interval.
func (s *Synchronizer) RefreshNow() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// FlushBuffer merges the pending buffer into the timeline. Used when the
// user jumps back to the bottom. Returns the flushed entries, separator
// included, or nil when nothing was pending.
func (s *Synchronizer) FlushBuffer() []timeline.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	flushed := s.buf.Flush()
	if flushed == nil {
		return nil
	}
	s.tl.Merge(flushed)
	return flushed
}

func (s *Synchronizer) runLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		case <-s.refresh:
			s.tick()
		}
	}
}

// tick performs one fetch-and-reconcile cycle.
func (s *Synchronizer) tick() {
	s.mu.Lock()
	id := s.conversationID
	gen := s.generation
	s.mu.Unlock()

	if id == "" {
		return
	}

	msgs, err := s.fetcher.ListMessages(s.ctx, id)
	if err != nil {
		// A failed fetch is skipped; the next interval retries.
		s.logger.Warn().Err(err).Str("conversation_id", id).Msg("poll fetch failed")
		return
	}

	convs, err := s.fetcher.ListConversations(s.ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("conversation list fetch failed")
		convs = nil
	}

	s.reconcile(id, gen, msgs, convs)
}

// reconcile applies a fetched batch. The batch is dropped when the
// conversation or generation changed while the fetch was in flight.
func (s *Synchronizer) reconcile(id string, gen uint64, batch []timeline.Message, convs []timeline.Conversation) {
	s.mu.Lock()

	if s.conversationID != id || s.generation != gen {
		s.mu.Unlock()
		s.logger.Debug().Str("conversation_id", id).Msg("stale fetch discarded")
		return
	}

	timeline.SortMessages(batch)

	if s.tl.Unchanged(batch) && convs == nil {
		s.mu.Unlock()
		return
	}

	ev := Event{ConversationID: id, Conversations: convs}

	if !s.tl.Unchanged(batch) {
		if s.viewport() == timeline.AtBottom {
			ev.Merged = s.tl.Merge(batch)
			ev.ScrollToBottom = len(ev.Merged) > 0
		} else {
			for _, m := range batch {
				if s.tl.Contains(m.ID) {
					continue
				}
				if s.buf.Offer(m) {
					ev.Buffered++
				}
			}
			ev.BufferTotal = s.buf.Len()
		}
	}
	s.mu.Unlock()

	s.persist(id, batch, convs)

	if len(ev.Merged) == 0 && ev.Buffered == 0 && ev.Conversations == nil {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Warn().Str("conversation_id", id).Msg("event channel full, dropping event")
	}
}

// persist writes through to the sink. Sink failures degrade to memory-only.
func (s *Synchronizer) persist(id string, msgs []timeline.Message, convs []timeline.Conversation) {
	if s.sink == nil {
		return
	}
	if len(msgs) > 0 {
		if err := s.sink.SaveMessages(s.ctx, id, msgs); err != nil {
			s.logger.Warn().Err(err).Msg("cache write failed")
		}
	}
	if len(convs) > 0 {
		if err := s.sink.SaveConversations(s.ctx, convs); err != nil {
			s.logger.Warn().Err(err).Msg("cache write failed")
		}
	}
}
