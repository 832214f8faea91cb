package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streak-bot/internal/registry"
	"streak-bot/internal/removal"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type kindCounter map[string]int

func (k kindCounter) UpdateHandled(kind string) { k[kind]++ }

func commandUpdate(chatID int64, text string) string {
	cmd := strings.SplitN(text, " ", 2)[0]
	return fmt.Sprintf(`{"update_id":1,"message":{"message_id":10,"date":0,"chat":{"id":%d,"type":"group"},"text":%q,"entities":[{"type":"bot_command","offset":0,"length":%d}]}}`,
		chatID, text, len(cmd))
}

func callbackUpdate(chatID int64, data string) string {
	return fmt.Sprintf(`{"update_id":2,"callback_query":{"id":"cb1","from":{"id":7,"is_bot":false,"first_name":"A"},"data":%q,"message":{"message_id":55,"date":0,"chat":{"id":%d,"type":"group"}}}}`,
		data, chatID)
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func newTestWebhook(t *testing.T, store registry.Store, source *fakeSource) (*Webhook, *fakeSender, kindCounter) {
	t.Helper()
	sender := &fakeSender{}
	kinds := kindCounter{}
	return NewWebhook(newTestHandler(t, store, source), sender, kinds), sender, kinds
}

func TestWebhook_Command(t *testing.T) {
	store := registry.NewMemoryStore()
	require.NoError(t, store.SetUsernames(context.Background(), -42, []string{"bob"}))
	wh, sender, kinds := newTestWebhook(t, store, newFakeSource().withStreak("bob", 3, 5))

	rr := post(t, wh, commandUpdate(-42, "/leaderboard"))
	assert.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, sender.sent, 1)
	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(-42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.True(t, msg.DisableWebPagePreview)
	assert.Contains(t, msg.Text, "<b>3</b> 🔥")
	assert.Equal(t, 1, kinds[KindCommand])
}

func TestWebhook_CommandWithBotSuffixAndArgs(t *testing.T) {
	store := registry.NewMemoryStore()
	wh, sender, _ := newTestWebhook(t, store, newFakeSource().withStreak("alice", 1, 1))

	post(t, wh, commandUpdate(7, "/add@StreakBot alice"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].(tgbotapi.MessageConfig).Text, "alice</b> added")
	got, _ := store.GetUsernames(context.Background(), 7)
	assert.Equal(t, []string{"alice"}, got)
}

func TestWebhook_IgnoresNonCommands(t *testing.T) {
	wh, sender, kinds := newTestWebhook(t, registry.NewMemoryStore(), newFakeSource())

	rr := post(t, wh, `{"update_id":3,"message":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"},"text":"hello"}}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	post(t, wh, commandUpdate(1, "/dance"))

	assert.Empty(t, sender.sent)
	assert.Equal(t, 2, kinds[KindIgnored])
}

func TestWebhook_BadJSON(t *testing.T) {
	wh, sender, _ := newTestWebhook(t, registry.NewMemoryStore(), newFakeSource())

	rr := post(t, wh, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, sender.sent)
}

func TestWebhook_RemoveKeyboard(t *testing.T) {
	store := registry.NewMemoryStore()
	require.NoError(t, store.SetUsernames(context.Background(), 5, []string{"alice", "bob"}))
	wh, sender, _ := newTestWebhook(t, store, newFakeSource())

	post(t, wh, commandUpdate(5, "/remove"))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0].(tgbotapi.MessageConfig)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 3)
	assert.Equal(t, "alice", markup.InlineKeyboard[0][0].Text)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "rm:u:alice", *markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, removal.EncodeCancel(), *markup.InlineKeyboard[2][0].CallbackData)
}

func TestWebhook_RemovalSelectedEditsPrompt(t *testing.T) {
	store := registry.NewMemoryStore()
	require.NoError(t, store.SetUsernames(context.Background(), 5, []string{"alice", "bob"}))
	wh, sender, kinds := newTestWebhook(t, store, newFakeSource())

	data, err := removal.EncodeSelect("alice")
	require.NoError(t, err)
	rr := post(t, wh, callbackUpdate(5, data))
	assert.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, sender.sent, 1)
	edit, ok := sender.sent[0].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 55, edit.MessageID)
	assert.Equal(t, "Removed <b>alice</b> from the leaderboard.", edit.Text)
	assert.Equal(t, tgbotapi.ModeHTML, edit.ParseMode)

	require.Len(t, sender.requests, 1)
	_, ok = sender.requests[0].(tgbotapi.CallbackConfig)
	assert.True(t, ok)

	got, _ := store.GetUsernames(context.Background(), 5)
	assert.Equal(t, []string{"bob"}, got)
	assert.Equal(t, 1, kinds[KindCallback])
}

func TestWebhook_RemovalCancelledDeletesPrompt(t *testing.T) {
	store := registry.NewMemoryStore()
	require.NoError(t, store.SetUsernames(context.Background(), 5, []string{"alice"}))
	wh, sender, _ := newTestWebhook(t, store, newFakeSource())

	post(t, wh, callbackUpdate(5, removal.EncodeCancel()))

	assert.Empty(t, sender.sent)
	require.Len(t, sender.requests, 2)
	del, ok := sender.requests[0].(tgbotapi.DeleteMessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(5), del.ChatID)
	assert.Equal(t, 55, del.MessageID)

	answer := sender.requests[1].(tgbotapi.CallbackConfig)
	assert.Equal(t, "cb1", answer.CallbackQueryID)
	assert.Equal(t, "Removal cancelled.", answer.Text)

	got, _ := store.GetUsernames(context.Background(), 5)
	assert.Equal(t, []string{"alice"}, got)
}

func TestWebhook_UnknownCallbackIsAnswered(t *testing.T) {
	wh, sender, _ := newTestWebhook(t, registry.NewMemoryStore(), newFakeSource())

	post(t, wh, callbackUpdate(5, "rm:zz"))
	post(t, wh, callbackUpdate(5, "other:thing"))

	assert.Empty(t, sender.sent)
	require.Len(t, sender.requests, 2)
	assert.Equal(t, "Unknown action.", sender.requests[0].(tgbotapi.CallbackConfig).Text)
}

func TestWebhook_PanicBecomesErrorReply(t *testing.T) {
	reg := registry.NewService(registry.NewMemoryStore(), nil, registry.PolicyOff)
	sender := &fakeSender{}
	wh := NewWebhook(NewHandler(reg, nil, removal.NewFlow(reg)), sender, nil)

	rr := post(t, wh, commandUpdate(9, "/leaderboard"))
	assert.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(9), msg.ChatID)
	assert.Equal(t, ErrorText, msg.Text)
}

type fakeRequester struct {
	endpoint string
	params   tgbotapi.Params
	resp     *tgbotapi.APIResponse
}

func (f *fakeRequester) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	f.endpoint = endpoint
	f.params = params
	return f.resp, nil
}

func TestRegisterWebhook(t *testing.T) {
	api := &fakeRequester{resp: &tgbotapi.APIResponse{Ok: true}}
	require.NoError(t, RegisterWebhook(api, "https://bot.example.com/telegram/webhook", "s3cret"))
	assert.Equal(t, "setWebhook", api.endpoint)
	assert.Equal(t, "https://bot.example.com/telegram/webhook", api.params["url"])
	assert.Equal(t, "s3cret", api.params["secret_token"])

	api = &fakeRequester{resp: &tgbotapi.APIResponse{Ok: false, Description: "bad webhook"}}
	err := RegisterWebhook(api, "http://insecure", "")
	assert.ErrorContains(t, err, "bad webhook")
	_, hasSecret := api.params["secret_token"]
	assert.False(t, hasSecret)
}
