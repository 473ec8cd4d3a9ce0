package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/orbitview/internal/models"
	"github.com/mr1hm/orbitview/internal/repository"
)

// GreetingText opens every conversation.
const GreetingText = "Hello! I'm your AI Earth Science companion. I can help you interpret the satellite imagery you're looking at. Ask me about weather patterns, the specific satellite instruments, or environmental phenomena!"

var (
	ErrBusy         = errors.New("a request is already in flight")
	ErrEmptyMessage = errors.New("message is empty")
)

// Conversation is one session's chat. At most one question is outstanding.
type Conversation struct {
	sessionID string
	repo      repository.MessageRepository
	now       func() time.Time

	mu      sync.Mutex
	pending bool
}

func NewConversation(ctx context.Context, sessionID string, repo repository.MessageRepository) (*Conversation, error) {
	c := &Conversation{
		sessionID: sessionID,
		repo:      repo,
		now:       time.Now,
	}
	if _, err := c.append(ctx, models.RoleModel, GreetingText); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Conversation) SessionID() string {
	return c.sessionID
}

// Begin records the user's message and marks the conversation pending.
func (c *Conversation) Begin(ctx context.Context, text string) (models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return models.ChatMessage{}, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending {
		return models.ChatMessage{}, ErrBusy
	}

	msg, err := c.append(ctx, models.RoleUser, text)
	if err != nil {
		return models.ChatMessage{}, err
	}
	c.pending = true
	return msg, nil
}

// Complete appends the reply to the outstanding question and clears pending.
func (c *Conversation) Complete(ctx context.Context, text string) (models.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = false
	return c.append(ctx, models.RoleModel, text)
}

func (c *Conversation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

func (c *Conversation) Messages(ctx context.Context) ([]models.ChatMessage, error) {
	return c.repo.ListMessages(ctx, c.sessionID)
}

// Discard drops the stored messages.
func (c *Conversation) Discard(ctx context.Context) error {
	_, err := c.repo.DeleteSession(ctx, c.sessionID)
	return err
}

func (c *Conversation) append(ctx context.Context, role models.Role, text string) (models.ChatMessage, error) {
	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: c.sessionID,
		Role:      role,
		Text:      text,
		Timestamp: c.now(),
	}
	if err := c.repo.AddMessage(ctx, &msg); err != nil {
		return msg, fmt.Errorf("error storing %s message: %w", role, err)
	}
	return msg, nil
}
