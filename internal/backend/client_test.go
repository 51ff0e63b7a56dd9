package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mandiCropBot/internal/query"
)

func testClient(h http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(h)
	return New(srv.URL, 5*time.Second), srv
}

func TestModels(t *testing.T) {
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ModelsResp{Models: []string{"Onion", "Wheat"}, Count: 2, Source: "models_dir"})
	}))
	defer srv.Close()

	got, err := c.Models(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "Onion" {
		t.Errorf("unexpected models: %v", got)
	}
}

func TestStatesAndMarketsQueryParams(t *testing.T) {
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/states":
			if got := r.URL.Query().Get("commodity"); got != "Wheat" {
				t.Errorf("states: commodity=%q", got)
			}
			json.NewEncoder(w).Encode(StatesResp{States: []string{"Punjab"}})
		case "/markets":
			q := r.URL.Query()
			if q.Get("commodity") != "Wheat" || q.Get("state") != "Punjab" {
				t.Errorf("markets: unexpected query %v", q)
			}
			json.NewEncoder(w).Encode(MarketsResp{Markets: []string{"Ludhiana", "Amritsar"}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	if _, err := c.States(context.Background(), "Wheat"); err != nil {
		t.Fatal(err)
	}
	ms, err := c.Markets(context.Background(), "Wheat", "Punjab")
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 2 {
		t.Errorf("expected 2 markets, got %v", ms)
	}
}

func TestSeriesParams(t *testing.T) {
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("date") != "2024-02-01" || q.Get("limit") != "30" || q.Get("market") != "Kanpur" {
			t.Errorf("unexpected query %v", q)
		}
		json.NewEncoder(w).Encode(Series{Dates: []string{"2024-01-30", "2024-01-31"}, Prices: []float64{1800, 1825}})
	}))
	defer srv.Close()

	sel := query.Selection{Commodity: "Wheat", State: "UP", Market: "Kanpur", Date: "2024-02-01"}
	s, err := c.Series(context.Background(), sel, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Dates) != 2 || s.Prices[1] != 1825 {
		t.Errorf("unexpected series %+v", s)
	}
}

func TestPredictBody(t *testing.T) {
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["commodity"] != "Wheat" || body["market"] != "Kanpur" {
			t.Errorf("unexpected body %v", body)
		}
		if _, ok := body["date"]; ok {
			t.Error("empty date must be omitted from the request body")
		}
		json.NewEncoder(w).Encode(Prediction{PredictedNextPrice: 1850.5, WindowSize: 28, UsedPoints: 28})
	}))
	defer srv.Close()

	sel := query.Selection{Commodity: "Wheat", State: "UP", Market: "Kanpur"}
	p, err := c.Predict(context.Background(), sel)
	if err != nil {
		t.Fatal(err)
	}
	if p.PredictedNextPrice != 1850.5 || p.WindowSize != 28 {
		t.Errorf("unexpected prediction %+v", p)
	}
}

func TestRecommendCropBodyVerbatim(t *testing.T) {
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]float64
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		// In-range readings go out exactly as entered.
		if body["N"] != 150 || body["ph"] != 6.5 {
			t.Errorf("unexpected body %v", body)
		}
		json.NewEncoder(w).Encode(Recommendation{
			RecommendedCrop: "rice", Confidence: 81.2, Suitability: "Excellent",
			GrowthScore: 8.1, RiskLabel: "Low",
			Alternatives: []CropAlternative{{Crop: "maize", Confidence: 11.0}},
		})
	}))
	defer srv.Close()

	in := query.CropInput{N: 150, P: 42, K: 43, Temperature: 21, Humidity: 80, PH: 6.5, Rainfall: 200}
	rec, err := c.RecommendCrop(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if rec.RecommendedCrop != "rice" || len(rec.Alternatives) != 1 {
		t.Errorf("unexpected recommendation %+v", rec)
	}
}

func TestStatusError(t *testing.T) {
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"No model found for 'Turmeric'."}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := c.Models(context.Background())
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if serr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", serr.Code)
	}
}

func TestGetRetriesTransientFailure(t *testing.T) {
	attempts := 0
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "busy", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(ModelsResp{Models: []string{"Wheat"}, Count: 1})
	}))
	defer srv.Close()

	got, err := c.Models(context.Background())
	if err != nil {
		t.Fatalf("retry should have recovered: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
	if len(got) != 1 {
		t.Errorf("unexpected models %v", got)
	}
}

func TestPostNotRetried(t *testing.T) {
	attempts := 0
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "model predict failed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := c.Predict(context.Background(), query.Selection{Commodity: "Wheat", State: "UP", Market: "Kanpur"})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("POST must not retry, got %d attempts", attempts)
	}
}

func TestMalformedBody(t *testing.T) {
	c, srv := testClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	if _, err := c.Predict(context.Background(), query.Selection{Commodity: "Wheat", State: "UP", Market: "Kanpur"}); err == nil {
		t.Error("malformed body must surface an error")
	}
}
