package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Transport is the chat surface the flows talk through. Handlers depend on
// this interface so tests can script a fake chat.
type Transport interface {
	// Send posts a new message and returns its id.
	Send(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) (int, error)
	// Edit replaces the text and keyboard of an existing message in place.
	Edit(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) error
	// Delete removes a message. Failures are ignorable; the message may
	// already be gone or too old to delete.
	Delete(chatID int64, messageID int) error
	// AnswerCallback acknowledges a button press with an optional toast.
	AnswerCallback(callbackID, text string) error
	// Alert acknowledges a button press with a blocking alert dialog.
	Alert(callbackID, text string) error
	// FileURL resolves an uploaded file id to a download URL.
	FileURL(fileID string) (string, error)
}

// Telegram implements Transport over the Bot API. All outgoing text is HTML
// with link previews disabled.
type Telegram struct {
	API *tgbotapi.BotAPI
}

func NewTelegram(token string) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	zap.L().Info("Authorized on account", zap.String("username", api.Self.UserName))

	return &Telegram{API: api}, nil
}

// Updates opens the long-poll update channel.
func (t *Telegram) Updates(timeout int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	return t.API.GetUpdatesChan(u)
}

func (t *Telegram) Send(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if kb != nil {
		msg.ReplyMarkup = kb
	}

	sent, err := t.API.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (t *Telegram) Edit(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = kb

	_, err := t.API.Send(msg)
	return err
}

func (t *Telegram) Delete(chatID int64, messageID int) error {
	_, err := t.API.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func (t *Telegram) AnswerCallback(callbackID, text string) error {
	_, err := t.API.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func (t *Telegram) Alert(callbackID, text string) error {
	_, err := t.API.Request(tgbotapi.NewCallbackWithAlert(callbackID, text))
	return err
}

func (t *Telegram) FileURL(fileID string) (string, error) {
	return t.API.GetFileDirectURL(fileID)
}
