package telegram

import (
	"encoding/json"
	"log"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mandiCropBot/internal/advisor"
	"mandiCropBot/internal/backend"
	"mandiCropBot/internal/session"
	"mandiCropBot/internal/storage"
)

type Bot struct {
	api *tgbotapi.BotAPI
	h   *Handlers
}

func NewBot(token, webhookURL string, api *backend.Client, db storage.DB, adv *advisor.Advisor, seriesLimit int) (*Bot, error) {
	tg, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	webhook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, err
	}
	if _, err := tg.Request(webhook); err != nil {
		return nil, err
	}
	log.Printf("telegram: webhook set to %s", webhookURL)

	h := NewHandlers(tg, api, storage.NewStore(db), session.NewManager(), adv, seriesLimit)
	return &Bot{api: tg, h: h}, nil
}

// Webhook HTTP handler (registered at /telegram/webhook)
func (b *Bot) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "bad update", 400)
		return
	}
	switch {
	case update.Message != nil:
		log.Printf("webhook: chat_id=%d text=%q", update.Message.Chat.ID, update.Message.Text)
		go b.h.HandleMessage(update.Message)
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		log.Printf("webhook: callback chat_id=%d data=%q", update.CallbackQuery.Message.Chat.ID, update.CallbackQuery.Data)
		go b.h.HandleCallback(update.CallbackQuery)
	default:
		log.Printf("webhook: unhandled update type")
	}
	w.WriteHeader(http.StatusOK)
}
