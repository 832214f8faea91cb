package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"streak-bot/internal/logger"
	"streak-bot/internal/removal"
)

// Sender is the part of *tgbotapi.BotAPI the webhook uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// UpdateRecorder counts handled updates by kind. *metrics.Metrics satisfies it.
type UpdateRecorder interface {
	UpdateHandled(kind string)
}

const (
	KindCommand  = "command"
	KindCallback = "callback"
	KindIgnored  = "ignored"
)

// Webhook receives Telegram updates over HTTP and answers them through Sender.
type Webhook struct {
	handler *Handler
	sender  Sender
	rec     UpdateRecorder
}

func NewWebhook(handler *Handler, sender Sender, rec UpdateRecorder) *Webhook {
	return &Webhook{
		handler: handler,
		sender:  sender,
		rec:     rec,
	}
}

// ServeHTTP acknowledges every decodable update with 200 so Telegram does
// not redeliver it; failures are reported to the chat instead.
func (wh *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "invalid update", http.StatusBadRequest)
		return
	}

	wh.Dispatch(r.Context(), update)
	w.WriteHeader(http.StatusOK)
}

// Dispatch routes one update to the matching handler method.
func (wh *Webhook) Dispatch(ctx context.Context, update tgbotapi.Update) {
	chatID := updateChatID(update)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("[bot] update %d panicked: %v", update.UpdateID, rec)
			if chatID != 0 {
				wh.send(chatID, Reply{Text: ErrorText})
			}
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		wh.record(KindCallback)
		wh.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		if wh.handleCommand(ctx, update.Message) {
			wh.record(KindCommand)
		} else {
			wh.record(KindIgnored)
		}
	default:
		wh.record(KindIgnored)
	}
}

func (wh *Webhook) handleCommand(ctx context.Context, msg *tgbotapi.Message) bool {
	if msg.Chat == nil {
		return false
	}
	chatID := msg.Chat.ID
	args := msg.CommandArguments()

	var reply Reply
	switch msg.Command() {
	case "start":
		logger.Info("[bot] chat %d: /start", chatID)
		reply = wh.handler.Start(ctx, chatID)
	case "help":
		reply = wh.handler.Help(ctx, chatID)
	case "add":
		reply = wh.handler.Add(ctx, chatID, args)
	case "list":
		reply = wh.handler.List(ctx, chatID)
	case "leaderboard":
		reply = wh.handler.Leaderboard(ctx, chatID)
	case "streak":
		reply = wh.handler.Streak(ctx, chatID, args)
	case "remove":
		reply = wh.handler.Remove(ctx, chatID)
	default:
		return false
	}

	wh.send(chatID, reply)
	return true
}

func (wh *Webhook) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if !removal.IsCallback(cq.Data) || cq.Message == nil || cq.Message.Chat == nil {
		wh.answer(cq.ID, "")
		return
	}

	ev, err := removal.Decode(cq.Data)
	if err != nil {
		logger.Warning("[bot] callback %s: %v", cq.ID, err)
		wh.answer(cq.ID, "Unknown action.")
		return
	}

	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID

	switch ev.Kind {
	case removal.EventSelect:
		reply := wh.handler.RemovalSelected(ctx, chatID, ev.Username)
		edit := tgbotapi.NewEditMessageText(chatID, messageID, reply.Text)
		if reply.HTML {
			edit.ParseMode = tgbotapi.ModeHTML
		}
		if _, err := wh.sender.Send(edit); err != nil {
			logger.Error("[bot] chat %d: edit message %d: %v", chatID, messageID, err)
		}
		wh.answer(cq.ID, "")
	case removal.EventCancel:
		reply := wh.handler.RemovalCancelled(ctx, chatID)
		if reply.Dismiss {
			if _, err := wh.sender.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
				logger.Error("[bot] chat %d: delete message %d: %v", chatID, messageID, err)
			}
		}
		wh.answer(cq.ID, reply.Text)
	}
}

func (wh *Webhook) send(chatID int64, reply Reply) {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if reply.HTML {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	msg.DisableWebPagePreview = true
	if len(reply.Choices) > 0 {
		msg.ReplyMarkup = Keyboard(reply.Choices)
	}

	if _, err := wh.sender.Send(msg); err != nil {
		logger.Error("[bot] chat %d: send: %v", chatID, err)
	}
}

// answer stops the client's loading spinner on a pressed button.
func (wh *Webhook) answer(callbackID, text string) {
	if _, err := wh.sender.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		logger.Warning("[bot] answer callback %s: %v", callbackID, err)
	}
}

func (wh *Webhook) record(kind string) {
	if wh.rec != nil {
		wh.rec.UpdateHandled(kind)
	}
}

// Keyboard lays out one button per row.
func Keyboard(choices []removal.Choice) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(choices))
	for _, c := range choices {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func updateChatID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}

// APIRequester is satisfied by *tgbotapi.BotAPI.
type APIRequester interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// RegisterWebhook points Telegram at url. The secret, when set, is echoed back
// by Telegram in the X-Telegram-Bot-Api-Secret-Token header.
func RegisterWebhook(api APIRequester, url, secret string) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)

	resp, err := api.MakeRequest("setWebhook", params)
	if err != nil {
		return fmt.Errorf("setWebhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("setWebhook: %s", resp.Description)
	}
	return nil
}
