// Package query holds the price-query selection model and the local
// validation that runs before anything is sent to the backend.
package query

import (
	"fmt"
	"regexp"
	"strings"
)

// Selection is the (commodity, state, market, optional date) tuple that
// identifies a prediction query. A field is only meaningful when every field
// to its left is set; Set* and Clear* keep that invariant by wiping the
// dependent fields.
type Selection struct {
	Commodity string
	State     string
	Market    string
	Date      string // YYYY-MM-DD or empty
}

func (s *Selection) SetCommodity(c string) {
	s.Commodity = strings.TrimSpace(c)
	s.State = ""
	s.Market = ""
}

func (s *Selection) SetState(st string) {
	s.State = strings.TrimSpace(st)
	s.Market = ""
}

func (s *Selection) SetMarket(m string) {
	s.Market = strings.TrimSpace(m)
}

func (s *Selection) ClearCommodity() { s.SetCommodity("") }
func (s *Selection) ClearState()     { s.SetState("") }

// Complete reports whether the three required levels are all chosen.
func (s Selection) Complete() bool {
	return s.Commodity != "" && s.State != "" && s.Market != ""
}

func (s Selection) String() string {
	out := s.Commodity + " / " + s.State + " / " + s.Market
	if s.Date != "" {
		out += " @ " + s.Date
	}
	return out
}

// Pattern check only. "2024-13-40" passes on purpose: the backend owns
// calendar semantics and rejects what it cannot parse.
var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidDate reports whether s matches the zero-padded YYYY-MM-DD pattern.
// Callers can check a date on its own, without the rest of the selection
// being complete yet.
func ValidDate(s string) bool {
	return dateRe.MatchString(strings.TrimSpace(s))
}

// ValidationError names the first field that failed local validation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }

// Validate checks the selection in fixed order (commodity, state, market,
// date) and returns the first unmet requirement. An empty date is fine and
// is simply omitted from the outgoing request.
func (s Selection) Validate() error {
	if strings.TrimSpace(s.Commodity) == "" {
		return &ValidationError{Field: "commodity", Msg: "select a commodity first"}
	}
	if strings.TrimSpace(s.State) == "" {
		return &ValidationError{Field: "state", Msg: "select a state first"}
	}
	if strings.TrimSpace(s.Market) == "" {
		return &ValidationError{Field: "market", Msg: "select a market first"}
	}
	if d := strings.TrimSpace(s.Date); d != "" && !ValidDate(d) {
		return &ValidationError{Field: "date", Msg: "date must be YYYY-MM-DD (zero-padded)"}
	}
	return nil
}

// CropInput carries the seven soil/weather readings for a crop
// recommendation request.
type CropInput struct {
	N           float64 `json:"N"`
	P           float64 `json:"P"`
	K           float64 `json:"K"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	PH          float64 `json:"ph"`
	Rainfall    float64 `json:"rainfall"`
}

type bound struct {
	name     string
	min, max float64
	get      func(CropInput) float64
}

var cropBounds = []bound{
	{"N", 0, 200, func(c CropInput) float64 { return c.N }},
	{"P", 0, 200, func(c CropInput) float64 { return c.P }},
	{"K", 0, 200, func(c CropInput) float64 { return c.K }},
	{"temperature", 0, 50, func(c CropInput) float64 { return c.Temperature }},
	{"humidity", 0, 100, func(c CropInput) float64 { return c.Humidity }},
	{"ph", 0, 14, func(c CropInput) float64 { return c.PH }},
	{"rainfall", 0, 500, func(c CropInput) float64 { return c.Rainfall }},
}

// Validate rejects out-of-range readings locally, before any network call.
func (c CropInput) Validate() error {
	for _, b := range cropBounds {
		v := b.get(c)
		if v < b.min || v > b.max {
			return &ValidationError{
				Field: b.name,
				Msg:   fmt.Sprintf("%g is outside %g–%g", v, b.min, b.max),
			}
		}
	}
	return nil
}
