package query

import (
	"errors"
	"testing"
)

func field(t *testing.T, err error) string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	return verr.Field
}

func TestValidateOrder(t *testing.T) {
	var s Selection
	if got := field(t, s.Validate()); got != "commodity" {
		t.Errorf("empty selection: expected commodity, got %s", got)
	}
	s.SetCommodity("Wheat")
	if got := field(t, s.Validate()); got != "state" {
		t.Errorf("expected state, got %s", got)
	}
	s.SetState("Uttar Pradesh")
	if got := field(t, s.Validate()); got != "market" {
		t.Errorf("expected market, got %s", got)
	}
	s.SetMarket("Kanpur")
	if err := s.Validate(); err != nil {
		t.Errorf("complete selection should validate: %v", err)
	}
}

func TestValidateDatePatternOnly(t *testing.T) {
	s := Selection{Commodity: "Wheat", State: "Punjab", Market: "Ludhiana"}

	// Pattern check only: a nonsense calendar date that matches the shape
	// goes through; the backend owns calendar validation.
	s.Date = "2024-13-40"
	if err := s.Validate(); err != nil {
		t.Errorf("pattern-matching date should pass: %v", err)
	}

	// Unpadded digit groups fail.
	s.Date = "2024-1-5"
	if got := field(t, s.Validate()); got != "date" {
		t.Errorf("expected date failure, got %v", got)
	}

	s.Date = ""
	if err := s.Validate(); err != nil {
		t.Errorf("empty date is normalized to unspecified: %v", err)
	}
}

func TestValidDateStandsAlone(t *testing.T) {
	// A malformed date must be caught even while the selection is still
	// incomplete; the ordered Validate would report the missing commodity
	// first and let the date slip through.
	if ValidDate("2024-1-5") {
		t.Error("unpadded date must fail the pattern")
	}
	if !ValidDate("2024-13-40") {
		t.Error("pattern-matching nonsense date is accepted by design")
	}
	if !ValidDate("2024-02-01") {
		t.Error("well-formed date must pass")
	}
	if ValidDate("") || ValidDate("tomorrow") {
		t.Error("non-dates must fail")
	}

	var s Selection
	s.Date = "2024-1-5"
	if got := field(t, s.Validate()); got != "commodity" {
		t.Fatalf("ordered validation reports commodity first, got %s", got)
	}
	// which is exactly why date entry goes through ValidDate directly
}

func TestSelectionInvalidatesRight(t *testing.T) {
	s := Selection{Commodity: "Wheat", State: "Punjab", Market: "Ludhiana"}
	s.SetState("Haryana")
	if s.Market != "" {
		t.Error("changing state must clear market")
	}
	s.SetMarket("Karnal")
	s.SetCommodity("Rice")
	if s.State != "" || s.Market != "" {
		t.Error("changing commodity must clear state and market")
	}
	s.ClearCommodity()
	if s.Commodity != "" || s.State != "" || s.Market != "" {
		t.Error("clearing commodity must leave nothing selected")
	}
}

func TestCropBounds(t *testing.T) {
	ok := CropInput{N: 150, P: 42, K: 43, Temperature: 20.8, Humidity: 82, PH: 6.5, Rainfall: 202}
	if err := ok.Validate(); err != nil {
		t.Errorf("in-range input should pass: %v", err)
	}

	bad := ok
	bad.N = 250
	if got := field(t, bad.Validate()); got != "N" {
		t.Errorf("N=250 must be rejected locally, got field %s", got)
	}

	bad = ok
	bad.PH = 15
	if got := field(t, bad.Validate()); got != "ph" {
		t.Errorf("ph=15 must be rejected, got field %s", got)
	}

	bad = ok
	bad.Humidity = -1
	if got := field(t, bad.Validate()); got != "humidity" {
		t.Errorf("humidity=-1 must be rejected, got field %s", got)
	}
}
