package service

import (
	"context"
	"strings"

	"github.com/cwrk-planet/presence-service/internal/domain"
	"github.com/cwrk-planet/presence-service/internal/postgres"
)

// todo: вынести в конфиг
const maxBodyLen = 4000

// HistoryService — контракт внешнего хранилища истории: дописать
// сообщение, отдать тред. Реле вызывает Append out-of-band и не ждёт.
type HistoryService struct {
	repo *postgres.MessageRepository
}

func NewHistoryService(repo *postgres.MessageRepository) *HistoryService {
	return &HistoryService{repo: repo}
}

func (s *HistoryService) Append(ctx context.Context, m domain.ChatMessage) error {
	m.Body = strings.TrimSpace(m.Body)
	if m.ConversationID == "" {
		return domain.ErrEmptyConversation
	}
	if m.Body == "" {
		return domain.ErrEmptyContent
	}
	if len(m.Body) > maxBodyLen {
		return domain.ErrContentTooLong
	}
	return s.repo.Save(ctx, &m)
}

func (s *HistoryService) History(ctx context.Context, conversationID, after string, limit int) ([]domain.ChatMessage, string, error) {
	return s.repo.History(ctx, conversationID, after, limit)
}
