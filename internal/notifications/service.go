package notifications

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jennajle/jlsa-fall-journal/internal/digest"
	"github.com/jennajle/jlsa-fall-journal/internal/manuscripts"
	"github.com/jennajle/jlsa-fall-journal/internal/notifications/websocket"
)

const publishTimeout = 5 * time.Second

// Broadcaster pushes messages to live feed clients
type Broadcaster interface {
	Broadcast(message websocket.Message) error
}

// EmailSender delivers a single email
type EmailSender interface {
	Send(ctx context.Context, email Email) (string, error)
}

// EventSink forwards events to an external topic
type EventSink interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// Service routes workflow events to the feed, email and the event topic
type Service struct {
	feed         Broadcaster
	mailer       EmailSender
	events       EventSink
	journalTitle string
	logger       *zap.Logger
}

type Option func(*Service)

func WithMailer(m EmailSender) Option {
	return func(s *Service) { s.mailer = m }
}

func WithEventSink(e EventSink) Option {
	return func(s *Service) { s.events = e }
}

func WithJournalTitle(title string) Option {
	return func(s *Service) { s.journalTitle = title }
}

// NewService creates a notification service. feed may be nil.
func NewService(feed Broadcaster, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{feed: feed, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PublishTransition announces a persisted transition
func (s *Service) PublishTransition(event manuscripts.TransitionEvent) {
	data := map[string]any{
		"manuscript_id": event.ManuscriptID,
		"title":         event.Title,
		"from":          event.From,
		"action":        event.Action,
		"to":            event.To,
	}
	if event.By != "" {
		data["by"] = event.By
	}
	s.broadcast(websocket.Message{Type: MessageTypeTransition, Data: data, Timestamp: event.At})

	if s.events != nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.events.Publish(ctx, MessageTypeTransition, event); err != nil {
			s.logger.Warn("Failed to forward transition event",
				zap.String("manuscript_id", event.ManuscriptID),
				zap.Error(err))
		}
	}
}

// NotifyTransition emails the author about a state change
func (s *Service) NotifyTransition(ctx context.Context, m *manuscripts.Manuscript, entry manuscripts.HistoryEntry) error {
	if s.mailer == nil || m.AuthorEmail == "" {
		return nil
	}

	id, err := s.mailer.Send(ctx, TransitionEmail(s.journalTitle, m, entry))
	if err != nil {
		return err
	}

	s.logger.Info("Author notified",
		zap.String("manuscript_id", m.ID),
		zap.String("to", m.AuthorEmail),
		zap.String("message_id", id))
	return nil
}

// PublishDigest broadcasts a workflow digest and forwards it to the topic
func (s *Service) PublishDigest(ctx context.Context, d digest.Digest) error {
	counts := make(map[string]any, len(d.Counts))
	for state, n := range d.Counts {
		counts[string(state)] = n
	}
	s.broadcast(websocket.Message{
		Type:      MessageTypeDigest,
		Data:      map[string]any{"counts": counts, "total": d.Total},
		Timestamp: d.At,
	})

	if s.events == nil {
		return nil
	}
	if err := s.events.Publish(ctx, MessageTypeDigest, d); err != nil {
		return fmt.Errorf("failed to forward digest: %w", err)
	}
	return nil
}

func (s *Service) broadcast(msg websocket.Message) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Broadcast(msg); err != nil {
		s.logger.Warn("Failed to broadcast message", zap.String("type", msg.Type), zap.Error(err))
	}
}
