package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"gradebot/internal/bot"
	"gradebot/internal/database"
	"gradebot/internal/models"
	"gradebot/pkg/logger"
)

// NoPatronymic is what the wizard accepts from students without a
// patronymic. It is stored as an empty string.
const NoPatronymic = "-"

var regPrompts = map[models.State]string{
	models.StateRegSurname:    "📝 Enter your surname",
	models.StateRegName:       "📝 Enter your first name",
	models.StateRegPatronymic: "📝 Enter your patronymic\n\nSend «-» if you do not have one",
	models.StateRegGroup:      "🎓 Enter your group",
	models.StateRegGitHub:     "🔗 Enter your GitHub username",
}

var regDataKeys = map[models.State]string{
	models.StateRegSurname:    "surname",
	models.StateRegName:       "name",
	models.StateRegPatronymic: "patronymic",
	models.StateRegGroup:      "group",
	models.StateRegGitHub:     "github",
}

// normalizeName trims the input and title-cases every word, so that
// "иванов"/"IVANOV" both land as "Ivanov".
func normalizeName(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func (h *Handler) handleRegStart(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	h.poller.CancelChat(chatID)

	if err := h.sessions.Clear(ctx, chatID); err != nil {
		zap.L().Error("failed to reset session",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	_ = h.transport.Delete(chatID, cb.Message.MessageID)
	if err := h.sessions.SetState(ctx, chatID, models.StateRegSurname); err != nil {
		zap.L().Error("failed to set state",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		return
	}
	h.render.Render(ctx, chatID, regPrompts[models.StateRegSurname], bot.NavKeyboard(false))
}

func (h *Handler) handleRegistrationInput(ctx context.Context, msg *tgbotapi.Message, sess *models.Session) {
	chatID := msg.Chat.ID
	_ = h.transport.Delete(chatID, msg.MessageID)

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	switch sess.State {
	case models.StateRegSurname, models.StateRegName:
		text = normalizeName(text)
	case models.StateRegPatronymic:
		if text != NoPatronymic {
			text = normalizeName(text)
		}
	}

	key := regDataKeys[sess.State]
	if err := h.sessions.UpdateData(ctx, chatID, map[string]any{key: text}); err != nil {
		zap.L().Error("failed to store answer",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		return
	}
	sess.Data[key] = text

	next, ok := models.RegNext(sess.State)
	if !ok {
		next = models.StateRegConfirm
	}
	if err := h.sessions.SetState(ctx, chatID, next); err != nil {
		zap.L().Error("failed to advance state",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		return
	}
	if next == models.StateRegConfirm {
		h.render.Render(ctx, chatID, regSummary(sess), bot.ConfirmKeyboard())
		return
	}
	h.render.Render(ctx, chatID, regPrompts[next], bot.NavKeyboard(true))
}

func regSummary(sess *models.Session) string {
	fio := strings.TrimSpace(fmt.Sprintf("%s %s %s",
		sess.String("surname"), sess.String("name"), sess.String("patronymic")))
	return fmt.Sprintf("🔎 Check your details:\n\n<b>%s</b>\n🎓 Group: %s\n🔗 GitHub: %s",
		html.EscapeString(fio),
		html.EscapeString(sess.String("group")),
		html.EscapeString(sess.String("github")))
}

func (h *Handler) handleRegBack(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	sess, err := h.sessions.Get(ctx, chatID)
	if err != nil {
		zap.L().Error("failed to load session",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		return
	}
	prev, ok := models.RegPrev(sess.State)
	if !ok {
		// First step, nowhere to go.
		return
	}
	_ = h.transport.Delete(chatID, cb.Message.MessageID)
	if err := h.sessions.SetLastMessageID(ctx, chatID, 0); err != nil {
		zap.L().Warn("failed to reset message cursor",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	if err := h.sessions.SetState(ctx, chatID, prev); err != nil {
		zap.L().Error("failed to step back",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		return
	}
	h.render.Render(ctx, chatID, regPrompts[prev], bot.NavKeyboard(prev != models.StateRegSurname))
}

func (h *Handler) handleRegRestart(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	h.poller.CancelChat(chatID)

	_ = h.transport.Delete(chatID, cb.Message.MessageID)
	if err := h.sessions.Clear(ctx, chatID); err != nil {
		zap.L().Error("failed to reset session",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	h.render.Render(ctx, chatID, "🔄 Starting over\n\nPress «Register» to begin", bot.StartKeyboard())
}

func (h *Handler) handleRegConfirm(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	sess, err := h.sessions.Get(ctx, chatID)
	if err != nil {
		zap.L().Error("failed to load session",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		return
	}

	// The summary message has to go before the session row (and with it the
	// render cursor) is cleared, or it stays on screen next to the outcome.
	_ = h.transport.Delete(chatID, cb.Message.MessageID)

	patronymic := sess.String("patronymic")
	if patronymic == NoPatronymic {
		patronymic = ""
	}
	student := &models.Student{
		ChatID:     chatID,
		Surname:    sess.String("surname"),
		Name:       sess.String("name"),
		Patronymic: patronymic,
		GroupCode:  sess.String("group"),
		GitHub:     sess.String("github"),
		Courses:    []models.CourseRef{},
	}

	if err := h.sessions.Clear(ctx, chatID); err != nil {
		zap.L().Error("failed to clear session",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}

	switch err := h.students.Create(ctx, student); {
	case errors.Is(err, database.ErrDuplicateStudent):
		h.render.Render(ctx, chatID,
			"❌ A student with these details is already registered\n\nPress «Register» to try again",
			bot.StartKeyboard())
		return
	case err != nil:
		zap.L().Error("failed to save student",
			zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		h.render.Render(ctx, chatID,
			"❌ Could not save your registration, try again later",
			bot.StartKeyboard())
		return
	}

	h.render.Render(ctx, chatID,
		"✅ Registration complete\n\n🏠 Main menu", bot.MainMenuKeyboard())
}
