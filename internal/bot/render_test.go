package bot

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	nextID   int
	sendErrs []error
	sent     []string
	deleted  []int
}

func (f *fakeTransport) Send(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) (int, error) {
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	f.nextID++
	f.sent = append(f.sent, text)
	return f.nextID, nil
}

func (f *fakeTransport) Edit(chatID int64, messageID int, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	return nil
}

func (f *fakeTransport) Delete(chatID int64, messageID int) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeTransport) AnswerCallback(callbackID, text string) error { return nil }
func (f *fakeTransport) Alert(callbackID, text string) error          { return nil }
func (f *fakeTransport) FileURL(fileID string) (string, error)        { return "", nil }

type memCursor struct {
	ids map[int64]int
}

func newMemCursor() *memCursor { return &memCursor{ids: map[int64]int{}} }

func (m *memCursor) LastMessageID(ctx context.Context, chatID int64) (int, error) {
	return m.ids[chatID], nil
}

func (m *memCursor) SetLastMessageID(ctx context.Context, chatID int64, messageID int) error {
	m.ids[chatID] = messageID
	return nil
}

func TestRenderDeletesPreviousAndTracksNew(t *testing.T) {
	tr := &fakeTransport{}
	cur := newMemCursor()
	r := NewRenderer(tr, cur)
	ctx := context.Background()

	r.Render(ctx, 42, "first", nil)
	r.Render(ctx, 42, "second", nil)

	require.Equal(t, []string{"first", "second"}, tr.sent)
	// The second render removed the first message.
	assert.Equal(t, []int{1}, tr.deleted)
	assert.Equal(t, 2, cur.ids[42])
}

func TestRenderNoDeleteOnFreshChat(t *testing.T) {
	tr := &fakeTransport{}
	r := NewRenderer(tr, newMemCursor())

	r.Render(context.Background(), 42, "hello", nil)

	assert.Empty(t, tr.deleted)
}

func TestRenderFallsBackOnSendFailure(t *testing.T) {
	tr := &fakeTransport{sendErrs: []error{errors.New("flood limit"), nil}}
	cur := newMemCursor()
	r := NewRenderer(tr, cur)

	r.Render(context.Background(), 42, "prompt", nil)

	// The retry landed but the cursor stays untouched.
	require.Equal(t, []string{"prompt"}, tr.sent)
	assert.Equal(t, 0, cur.ids[42])
}
