package telegram

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mandiCropBot/internal/advisor"
	"mandiCropBot/internal/backend"
	"mandiCropBot/internal/chart"
	"mandiCropBot/internal/query"
	"mandiCropBot/internal/session"
	"mandiCropBot/internal/storage"
	"mandiCropBot/internal/view"
)

var (
	reHelp    = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
	rePredict = regexp.MustCompile(`^/predict(?:@[\w_]+)?$`)
	// /date YYYY-MM-DD, or /date clear
	reDate = regexp.MustCompile(`^/date(?:@[\w_]+)?\s+(\S+)$`)
	reGo   = regexp.MustCompile(`^/go(?:@[\w_]+)?$`)
	// /crop N P K temperature humidity ph rainfall
	reCrop = regexp.MustCompile(`^/crop(?:@[\w_]+)?\s+(.+)$`)
	// /compare Market1 | Market2 | ...
	reCompare = regexp.MustCompile(`^/compare(?:@[\w_]+)?\s+(.+)$`)
	reHistory = regexp.MustCompile(`^/history(?:@[\w_]+)?$`)
	reStats   = regexp.MustCompile(`^/stats(?:@[\w_]+)?(?:\s+(\d+))?$`)
	reHealth  = regexp.MustCompile(`^/health(?:@[\w_]+)?$`)
)

// callback data prefixes for the cascade keyboards
const (
	cbCommodity = "pick_c|"
	cbState     = "pick_s|"
	cbMarket    = "pick_m|"
	cbBackTop   = "back_c"
	cbBackState = "back_s"
)

const callTimeout = 60 * time.Second

type Handlers struct {
	api         *tgbotapi.BotAPI
	backend     *backend.Client
	store       *storage.Store
	sessions    *session.Manager
	advisor     *advisor.Advisor
	seriesLimit int
}

func NewHandlers(api *tgbotapi.BotAPI, be *backend.Client, store *storage.Store, mgr *session.Manager, adv *advisor.Advisor, seriesLimit int) *Handlers {
	return &Handlers{
		api:         api,
		backend:     be,
		store:       store,
		sessions:    mgr,
		advisor:     adv,
		seriesLimit: seriesLimit,
	}
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	txt := strings.TrimSpace(m.Text)
	switch {
	case reHelp.MatchString(txt):
		h.handleHelp(m.Chat.ID)

	case rePredict.MatchString(txt):
		h.handlePredictStart(m.Chat.ID)

	case reDate.MatchString(txt):
		g := reDate.FindStringSubmatch(txt)
		h.handleDate(m.Chat.ID, g[1])

	case reGo.MatchString(txt):
		h.handleGo(m.Chat.ID)

	case reCrop.MatchString(txt):
		g := reCrop.FindStringSubmatch(txt)
		h.handleCrop(m.Chat.ID, g[1])

	case reCompare.MatchString(txt):
		g := reCompare.FindStringSubmatch(txt)
		h.handleCompare(m.Chat.ID, g[1])

	case reHistory.MatchString(txt):
		h.handleHistory(m.Chat.ID)

	case reStats.MatchString(txt):
		days := 30
		if g := reStats.FindStringSubmatch(txt); len(g) == 2 && g[1] != "" {
			fmt.Sscanf(g[1], "%d", &days)
			if days < 1 {
				days = 1
			}
		}
		h.handleStats(m.Chat.ID, days)

	case reHealth.MatchString(txt):
		h.handleHealth(m.Chat.ID)
	}
}

func (h *Handlers) HandleCallback(cb *tgbotapi.CallbackQuery) {
	// Ack first so the client stops its spinner even if we take a while.
	h.api.Request(tgbotapi.NewCallback(cb.ID, ""))

	chatID := cb.Message.Chat.ID
	data := cb.Data
	sess := h.sessions.Get(chatID)
	if sess == nil {
		h.reply(chatID, "Start with /predict.")
		return
	}

	pick := func(level session.LevelKind, arg string) (string, bool) {
		name, ok := pickedOption(sess, level, arg)
		if !ok {
			h.reply(chatID, "That keyboard is out of date — /predict to start over.")
		}
		return name, ok
	}

	switch {
	case strings.HasPrefix(data, cbCommodity):
		if name, ok := pick(session.LevelCommodity, strings.TrimPrefix(data, cbCommodity)); ok {
			h.handlePickCommodity(chatID, sess, name)
		}
	case strings.HasPrefix(data, cbState):
		if name, ok := pick(session.LevelState, strings.TrimPrefix(data, cbState)); ok {
			h.handlePickState(chatID, sess, name)
		}
	case strings.HasPrefix(data, cbMarket):
		if name, ok := pick(session.LevelMarket, strings.TrimPrefix(data, cbMarket)); ok {
			h.handlePickMarket(chatID, sess, name)
		}
	case data == cbBackTop:
		sess.ClearCommodity()
		h.showOptions(chatID, "commodity", sess.LevelView(session.LevelCommodity), cbCommodity, "")
	case data == cbBackState:
		sess.ClearState()
		h.showOptions(chatID, "state", sess.LevelView(session.LevelState), cbState, cbBackTop)
	}
}

// ---- cascade ----

func (h *Handlers) handlePredictStart(chatID int64) {
	sess := h.sessions.Start(chatID)
	tok := sess.BeginCommodityLoad()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	models, err := h.backend.Models(ctx)
	if !sess.Resolve(tok, models, err) {
		return // a newer /predict superseded this load
	}
	switch {
	case err != nil:
		h.reply(chatID, view.Notice("Loading commodities", err))
	case len(models) == 0:
		h.reply(chatID, view.EmptyNotice("commodities", "this backend"))
	default:
		h.showOptions(chatID, "commodity", sess.LevelView(session.LevelCommodity), cbCommodity, "")
	}
}

func (h *Handlers) handlePickCommodity(chatID int64, sess *session.Session, name string) {
	tok := sess.ChooseCommodity(name)

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	states, err := h.backend.States(ctx, name)
	if !sess.Resolve(tok, states, err) {
		return // stale: the user picked again before this fetch finished
	}
	switch {
	case err != nil:
		h.reply(chatID, view.Notice("Loading states", err))
	case len(states) == 0:
		h.reply(chatID, view.EmptyNotice("states", name))
	default:
		h.showOptions(chatID, "state", sess.LevelView(session.LevelState), cbState, cbBackTop)
	}
}

func (h *Handlers) handlePickState(chatID int64, sess *session.Session, name string) {
	sel := sess.Selection()
	if sel.Commodity == "" {
		h.reply(chatID, "Select a commodity first (/predict).")
		return
	}
	tok := sess.ChooseState(name)

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	markets, err := h.backend.Markets(ctx, sel.Commodity, name)
	if !sess.Resolve(tok, markets, err) {
		return
	}
	switch {
	case err != nil:
		h.reply(chatID, view.Notice("Loading markets", err))
	case len(markets) == 0:
		h.reply(chatID, view.EmptyNotice("markets", sel.Commodity+" in "+name))
	default:
		h.showOptions(chatID, "market", sess.LevelView(session.LevelMarket), cbMarket, cbBackState)
	}
}

func (h *Handlers) handlePickMarket(chatID int64, sess *session.Session, name string) {
	sess.ChooseMarket(name)
	sel := sess.Selection()
	h.reply(chatID, "Selected "+sel.String()+"\n"+
		"Optional: /date YYYY-MM-DD to predict as of a past date.\n"+
		"Then /go to run the prediction, or /compare M1 | M2 to compare markets.")
}

func (h *Handlers) handleDate(chatID int64, arg string) {
	sess := h.sessions.Get(chatID)
	if sess == nil {
		h.reply(chatID, "Start with /predict.")
		return
	}
	if strings.EqualFold(arg, "clear") {
		sess.SetDate("")
		h.reply(chatID, "Date cleared.")
		return
	}
	// Checked on its own: the rest of the selection may still be incomplete,
	// which must not mask a malformed date.
	if !query.ValidDate(arg) {
		h.reply(chatID, "Invalid date: date must be YYYY-MM-DD (zero-padded)")
		return
	}
	sess.SetDate(arg)
	h.reply(chatID, "Date set to "+arg+".")
}

// ---- submission pipeline ----

func (h *Handlers) handleGo(chatID int64) {
	sess := h.sessions.Get(chatID)
	if sess == nil {
		h.reply(chatID, "Start with /predict.")
		return
	}
	sel := sess.Selection()
	if err := sel.Validate(); err != nil {
		h.reply(chatID, "Cannot submit: "+err.Error())
		return
	}
	if !sess.TryAcquire() {
		h.reply(chatID, "Still working on your previous request…")
		return
	}
	defer sess.Release()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	pred, err := h.backend.Predict(ctx, sel)
	if err != nil {
		// Hard failure: notify and abort, nothing partial is shown.
		h.reply(chatID, view.Notice("Prediction", err))
		return
	}

	// History is best-effort; without it the chart degrades to one point.
	hist, histErr := h.backend.Series(ctx, sel, h.seriesLimit)
	historyOK := histErr == nil && len(hist.Prices) > 0

	predLabel := sel.Date
	if predLabel == "" {
		predLabel = time.Now().Format("2006-01-02")
	}

	pv := view.Prediction{
		Commodity:  sel.Commodity,
		State:      sel.State,
		Market:     sel.Market,
		Date:       sel.Date,
		Price:      pred.PredictedNextPrice,
		WindowSize: pred.WindowSize,
		UsedPoints: pred.UsedPoints,
		Padded:     pred.Padded,
		HistoryOK:  historyOK,
	}

	img, err := chart.Price(sel.Commodity+" • "+sel.Market+", "+sel.State,
		hist.Dates, hist.Prices, pred.PredictedNextPrice, predLabel)
	if err != nil {
		// Chart trouble should not eat the prediction itself.
		h.reply(chatID, pv.Caption())
	} else {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "prediction.png", Bytes: img})
		photo.Caption = pv.Caption()
		h.api.Send(photo)
	}

	if err := h.store.SavePrediction(chatID, sel.Commodity, sel.State, sel.Market, sel.Date,
		pred.PredictedNextPrice, time.Now().Unix()); err != nil {
		// Log-only concern; the user already has their result.
		log.Printf("storage: save prediction: %v", err)
	}

	if h.advisor.Enabled() {
		h.sendAdvice(ctx, chatID, pred, hist)
	}
}

func (h *Handlers) sendAdvice(ctx context.Context, chatID int64, pred backend.Prediction, hist backend.Series) {
	avg := 0.0
	if len(hist.Prices) > 0 {
		sum := 0.0
		for _, p := range hist.Prices {
			sum += p
		}
		avg = sum / float64(len(hist.Prices))
	}
	advice, err := h.advisor.Advise(ctx, pred, avg)
	if err != nil {
		return // advisory is strictly optional
	}
	msg := tgbotapi.NewMessage(chatID, advice)
	msg.ParseMode = "Markdown"
	h.api.Send(msg)
}

// ---- crop recommendation ----

func (h *Handlers) handleCrop(chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) != 7 {
		h.reply(chatID, "Usage: /crop N P K temperature humidity ph rainfall\ne.g. /crop 90 42 43 20.8 82 6.5 202")
		return
	}
	vals := make([]float64, 7)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			h.reply(chatID, fmt.Sprintf("Value %d (%q) is not a number.", i+1, f))
			return
		}
		vals[i] = v
	}
	in := query.CropInput{
		N: vals[0], P: vals[1], K: vals[2],
		Temperature: vals[3], Humidity: vals[4], PH: vals[5], Rainfall: vals[6],
	}
	if err := in.Validate(); err != nil {
		// Rejected locally; no request goes out.
		h.reply(chatID, "Invalid input — "+err.Error())
		return
	}

	// Always take the submission slot, even when no cascade was started:
	// one in-flight request per chat holds for /crop too.
	sess := h.sessions.GetOrCreate(chatID)
	if !sess.TryAcquire() {
		h.reply(chatID, "Still working on your previous request…")
		return
	}
	defer sess.Release()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	rec, err := h.backend.RecommendCrop(ctx, in)
	if err != nil {
		h.reply(chatID, view.Notice("Crop recommendation", err))
		return
	}

	rv := view.Recommendation{
		Crop:        rec.RecommendedCrop,
		Confidence:  rec.Confidence,
		Suitability: rec.Suitability,
		GrowthScore: rec.GrowthScore,
		RiskLabel:   rec.RiskLabel,
	}
	for _, a := range rec.Alternatives {
		rv.Alternatives = append(rv.Alternatives, view.Alternative{Crop: a.Crop, Confidence: a.Confidence})
	}
	msg := tgbotapi.NewMessage(chatID, rv.Text())
	msg.ParseMode = "Markdown"
	h.api.Send(msg)

	if err := h.store.SaveRecommendation(chatID, rec.RecommendedCrop, rec.Confidence, time.Now().Unix()); err != nil {
		log.Printf("storage: save recommendation: %v", err)
	}
}

// ---- comparison, history, stats, health ----

func (h *Handlers) handleCompare(chatID int64, args string) {
	sess := h.sessions.Get(chatID)
	if sess == nil {
		h.reply(chatID, "Start with /predict and pick a commodity and state first.")
		return
	}
	sel := sess.Selection()
	if sel.Commodity == "" || sel.State == "" {
		h.reply(chatID, "Pick a commodity and state first (/predict).")
		return
	}

	raw := strings.Split(args, "|")
	markets := make([]string, 0, len(raw))
	seen := map[string]struct{}{}
	for _, m := range raw {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		markets = append(markets, m)
	}
	if len(markets) < 2 {
		h.reply(chatID, "Provide at least two markets, e.g. /compare Kanpur | Lucknow")
		return
	}

	if !sess.TryAcquire() {
		h.reply(chatID, "Still working on your previous request…")
		return
	}
	defer sess.Release()

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	series := make([]chart.MarketSeries, 0, len(markets))
	for _, m := range markets {
		q := sel
		q.Market = m
		s, err := h.backend.Series(ctx, q, h.seriesLimit)
		if err != nil {
			h.reply(chatID, view.Notice("Loading "+m, err))
			return
		}
		if len(s.Prices) == 0 {
			h.reply(chatID, view.EmptyNotice("history", m))
			return
		}
		series = append(series, chart.MarketSeries{Market: m, Dates: s.Dates, Prices: s.Prices})
	}

	img, err := chart.Compare(sel.Commodity+" • "+sel.State, series)
	if err != nil {
		h.reply(chatID, view.Notice("Comparison chart", err))
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "compare.png", Bytes: img})
	photo.Caption = sel.Commodity + " across " + strings.Join(markets, ", ")
	h.api.Send(photo)
}

func (h *Handlers) handleHistory(chatID int64) {
	recs, err := h.store.RecentQueries(chatID, 10)
	if err != nil {
		h.reply(chatID, view.Notice("History", err))
		return
	}
	if len(recs) == 0 {
		h.reply(chatID, "No queries logged yet.")
		return
	}
	var b strings.Builder
	b.WriteString("Recent queries:\n")
	for _, r := range recs {
		t := time.Unix(r.TS, 0).Format("Jan 02 15:04")
		if r.Kind == "crop" {
			fmt.Fprintf(&b, "- %s crop → %s (%.1f%%)\n", t, r.Result, r.Value)
			continue
		}
		fmt.Fprintf(&b, "- %s %s / %s / %s → ₹%.2f\n", t, r.Commodity, r.State, r.Market, r.Value)
	}
	h.reply(chatID, b.String())
}

func (h *Handlers) handleStats(chatID int64, days int) {
	since := time.Now().AddDate(0, 0, -days).Unix()
	counts, err := h.store.UsageByCommodity(since)
	if err != nil {
		h.reply(chatID, view.Notice("Stats", err))
		return
	}
	img, err := chart.Usage(counts, days)
	if err != nil {
		h.reply(chatID, "No prediction queries in the last "+strconv.Itoa(days)+" days.")
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "usage.png", Bytes: img})
	h.api.Send(photo)
}

func (h *Handlers) handleHealth(chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	st, err := h.backend.Health(ctx)
	if err != nil {
		h.reply(chatID, view.Notice("Health check", err))
		return
	}
	mark := func(b bool) string {
		if b {
			return "ok"
		}
		return "MISSING"
	}
	h.reply(chatID, fmt.Sprintf("Backend: %s\nprice db: %s\nmodels dir: %s\ncrop model: %s",
		mark(st.OK), mark(st.DB), mark(st.ModelsDir), mark(st.CropModelLoaded)))
}

func (h *Handlers) handleHelp(chatID int64) {
	help := "Commands\n\n" +
		"- /predict - Pick commodity → state → market, then /go for a price prediction\n" +
		"- /date YYYY-MM-DD - Optional cutoff date for the prediction (or /date clear)\n" +
		"- /go - Run the prediction for the current selection\n" +
		"- /compare M1 | M2 ... - Compare markets for the chosen commodity and state\n" +
		"- /crop N P K temperature humidity ph rainfall - Crop recommendation from soil/weather readings\n" +
		"- /history - Your recent queries\n" +
		"- /stats [days] - Query volume by commodity\n" +
		"- /health - Backend status\n" +
		"\nRanges for /crop: N,P,K 0–200 • temperature 0–50 • humidity 0–100 • ph 0–14 • rainfall 0–500."
	h.reply(chatID, help)
}

// ---- keyboards & replies ----

// showOptions renders one cascade level as an inline keyboard, or its
// disabled/empty/error text when there is nothing to pick.
func (h *Handlers) showOptions(chatID int64, levelName string, lv session.Level, prefix, backData string) {
	switch lv.Phase {
	case session.PhaseReady:
		msg := tgbotapi.NewMessage(chatID, view.LevelPrompt(levelName, len(lv.Options)))
		msg.ReplyMarkup = optionKeyboard(lv.Options, prefix, backData)
		h.api.Send(msg)
	case session.PhaseEmpty:
		h.reply(chatID, "No "+levelName+" options available.")
	case session.PhaseError:
		h.reply(chatID, "Could not load "+levelName+" options: "+lv.Reason)
	case session.PhaseLoading:
		h.reply(chatID, "Loading "+levelName+" options…")
	default:
		h.reply(chatID, lv.Reason)
	}
}

// Callback data carries the option's index, not its name: Telegram caps
// callback data at 64 bytes and mandi names can blow past that.
func optionKeyboard(options []string, prefix, backData string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	row := []tgbotapi.InlineKeyboardButton{}
	for i, opt := range options {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(opt, prefix+strconv.Itoa(i)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if backData != "" {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("⬅ back", backData),
		})
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// pickedOption resolves an index callback against the level's current
// options. A miss means the keyboard the user tapped is stale.
func pickedOption(sess *session.Session, level session.LevelKind, arg string) (string, bool) {
	idx, err := strconv.Atoi(arg)
	if err != nil {
		return "", false
	}
	lv := sess.LevelView(level)
	if lv.Phase != session.PhaseReady || idx < 0 || idx >= len(lv.Options) {
		return "", false
	}
	return lv.Options[idx], true
}

func (h *Handlers) reply(chatID int64, text string) {
	h.api.Send(tgbotapi.NewMessage(chatID, text))
}
