package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"mandiCropBot/internal/advisor"
	"mandiCropBot/internal/backend"
	"mandiCropBot/internal/config"
	"mandiCropBot/internal/server"
	"mandiCropBot/internal/storage"
	"mandiCropBot/internal/telegram"
)

func main() {
	cfg := config.Load()

	// Ensure parent directory for the DB exists
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	log.Printf("db: opened sqlite at %s", cfg.DBPath)
	if err := storage.InitSchema(db); err != nil {
		log.Fatal(err)
	}
	log.Println("db: schema ensured (queries table)")

	be := backend.New(cfg.BackendBaseURL, time.Duration(cfg.BackendTimeoutS)*time.Second)
	log.Printf("backend: targeting %s (timeout %ds)", cfg.BackendBaseURL, cfg.BackendTimeoutS)

	adv := advisor.New(cfg.OpenAIKey)
	if adv.Enabled() {
		log.Println("advisor: enabled")
	}

	tg, err := telegram.NewBot(cfg.TelegramToken, cfg.WebhookPublicURL, be, db, adv, cfg.SeriesLimit)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("telegram: bot initialized, webhook target %s", cfg.WebhookPublicURL)

	mux := server.NewHTTPMux(tg.WebhookHandler) // registers /telegram/webhook
	addr := ":" + cfg.Port
	log.Println("http: listening on", addr)
	if err := server.ListenAndServe(addr, mux); err != nil {
		log.Println("server error:", err)
		os.Exit(1)
	}
}
