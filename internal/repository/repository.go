package repository

import (
	"context"

	"github.com/mr1hm/orbitview/internal/models"
)

type MessageRepository interface {
	AddMessage(ctx context.Context, m *models.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	DeleteSession(ctx context.Context, sessionID string) (int64, error)
}
