// Package service manages assistant chat sessions and relays user
// messages to the agent service, preferring its websocket channel and
// falling back to REST with a bounded retry.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	chaterrors "medportal/internal/chat/errors"
	"medportal/internal/chat/repository"
	"medportal/pkg/config"
	apperrors "medportal/pkg/errors"
	"medportal/pkg/model"
	"medportal/pkg/retry"
)

const agentUnreachableReply = "Sorry, I'm having trouble connecting right now. Please try again in a moment."

type ChatService interface {
	CreateSession(ctx context.Context, userID string) (*model.ChatSession, error)
	GetSession(ctx context.Context, id string) (*model.ChatSession, error)
	ListSessions(ctx context.Context, userID string) ([]*model.ChatSession, error)
	ReplaceMessages(ctx context.Context, id string, messages []model.ChatMessage) error
	DeleteSession(ctx context.Context, id string) error
	Relay(ctx context.Context, sessionID string, text string, fileID string) (*model.ChatMessage, error)
}

type chatService struct {
	cfg      *config.Config
	sessions repository.SessionRepository
	primary  AgentChannel
	fallback AgentChannel
}

func NewChatService(cfg *config.Config, sessions repository.SessionRepository, primary, fallback AgentChannel) ChatService {
	return &chatService{
		cfg:      cfg,
		sessions: sessions,
		primary:  primary,
		fallback: fallback,
	}
}

func (s *chatService) CreateSession(ctx context.Context, userID string) (*model.ChatSession, error) {
	if userID == "" {
		return nil, apperrors.MissingField("userId")
	}

	session := &model.ChatSession{
		ID:       uuid.NewString(),
		UserID:   userID,
		Messages: []model.ChatMessage{},
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.Internal("Failed to create chat session", err)
	}
	return session, nil
}

func (s *chatService) GetSession(ctx context.Context, id string) (*model.ChatSession, error) {
	if id == "" {
		return nil, apperrors.MissingField("sessionId")
	}

	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, chaterrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Chat session", id)
		}
		return nil, apperrors.Internal("Failed to load chat session", err)
	}
	return session, nil
}

func (s *chatService) ListSessions(ctx context.Context, userID string) ([]*model.ChatSession, error) {
	if userID == "" {
		return nil, apperrors.MissingField("userId")
	}

	sessions, err := s.sessions.FindByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list chat sessions", err)
	}
	if sessions == nil {
		sessions = []*model.ChatSession{}
	}
	return sessions, nil
}

func (s *chatService) ReplaceMessages(ctx context.Context, id string, messages []model.ChatMessage) error {
	if id == "" {
		return apperrors.MissingField("sessionId")
	}

	normalized := normalizeTimestamps(messages)
	if err := s.sessions.ReplaceMessages(ctx, id, normalized); err != nil {
		if errors.Is(err, chaterrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Chat session", id)
		}
		return apperrors.Internal("Failed to update chat session", err)
	}
	return nil
}

func (s *chatService) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.MissingField("sessionId")
	}

	if err := s.sessions.Delete(ctx, id); err != nil {
		if errors.Is(err, chaterrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Chat session", id)
		}
		return apperrors.Internal("Failed to delete chat session", err)
	}
	return nil
}

// Relay appends the user's message to the session, forwards it to the
// agent, and appends the reply. An unreachable agent is not an operation
// failure: the reply becomes an in-conversation error message instead.
func (s *chatService) Relay(ctx context.Context, sessionID string, text string, fileID string) (*model.ChatMessage, error) {
	if text == "" {
		return nil, apperrors.MissingField("text")
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	messages := append(session.Messages, model.ChatMessage{
		Sender:    "user",
		Text:      text,
		FileID:    fileID,
		Timestamp: now.Format(time.RFC3339),
	})

	reply := s.askAgent(ctx, AgentRequest{
		Text:      text,
		UserID:    session.UserID,
		SessionID: sessionID,
		FileID:    fileID,
	})

	agentMessage := model.ChatMessage{
		Sender:    "agent",
		Text:      reply,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	messages = append(messages, agentMessage)

	if err := s.ReplaceMessages(ctx, sessionID, messages); err != nil {
		return nil, err
	}
	return &agentMessage, nil
}

func (s *chatService) askAgent(ctx context.Context, req AgentRequest) string {
	reply, err := s.primary.Send(ctx, req)
	if err == nil {
		return reply
	}
	s.cfg.Log.Warn("agent websocket channel failed, falling back to REST",
		"session_id", req.SessionID, "error", err)

	policy := retry.Policy{
		MaxAttempts: s.cfg.ChatRetryAttempts,
		Delay:       s.cfg.ChatRetryDelay,
	}
	err = policy.Do(ctx, func(ctx context.Context) error {
		var sendErr error
		reply, sendErr = s.fallback.Send(ctx, req)
		return sendErr
	})
	if err != nil {
		s.cfg.Log.Error("agent unreachable on both channels",
			"session_id", req.SessionID, "error", err)
		return agentUnreachableReply
	}
	return reply
}

func normalizeTimestamps(messages []model.ChatMessage) []model.ChatMessage {
	normalized := make([]model.ChatMessage, len(messages))
	for i, message := range messages {
		if t, err := time.Parse(time.RFC3339, message.Timestamp); err == nil {
			message.Timestamp = t.UTC().Format(time.RFC3339)
		} else {
			message.Timestamp = time.Now().UTC().Format(time.RFC3339)
		}
		normalized[i] = message
	}
	return normalized
}
