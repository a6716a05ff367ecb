package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"gradebot/pkg/logger"
)

// Cursor tracks the last bot message rendered into a chat.
type Cursor interface {
	LastMessageID(ctx context.Context, chatID int64) (int, error)
	SetLastMessageID(ctx context.Context, chatID int64, messageID int) error
}

// Renderer keeps each chat down to a single live bot message: rendering
// deletes the previous prompt, sends the new one and records its id.
type Renderer struct {
	transport Transport
	cursor    Cursor
}

func NewRenderer(transport Transport, cursor Cursor) *Renderer {
	return &Renderer{transport: transport, cursor: cursor}
}

// Render replaces the chat's live message with a new prompt. It is the
// terminal error boundary for message output: every failure degrades to a
// logged fallback, never to an error the flow has to handle.
func (r *Renderer) Render(ctx context.Context, chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	if prev, err := r.cursor.LastMessageID(ctx, chatID); err == nil && prev > 0 {
		// Message may already be gone, too old, or not ours to delete.
		_ = r.transport.Delete(chatID, prev)
	}

	messageID, err := r.transport.Send(chatID, text, kb)
	if err != nil {
		zap.L().Error("render send failed, falling back",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		if _, err := r.transport.Send(chatID, text, kb); err != nil {
			zap.L().Error("fallback send also failed",
				zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		}
		return
	}

	if err := r.cursor.SetLastMessageID(ctx, chatID, messageID); err != nil {
		zap.L().Error("failed to record rendered message id",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
}
