// Package view maps typed result view-models to the text the bot sends.
// Handlers build and test against these structs, not against message strings.
package view

import (
	"fmt"
	"strings"
)

// Prediction is everything the result message needs.
type Prediction struct {
	Commodity  string
	State      string
	Market     string
	Date       string // requested date, or the date the prediction stands for
	Price      float64
	WindowSize int
	UsedPoints int
	Padded     bool
	HistoryOK  bool // false adds the muted "history unavailable" note
}

// Chips returns the short numeric facts shown alongside the price.
func (p Prediction) Chips() []string {
	padded := "no"
	if p.Padded {
		padded = "yes"
	}
	return []string{
		fmt.Sprintf("window %d", p.WindowSize),
		fmt.Sprintf("points %d", p.UsedPoints),
		"padded " + padded,
	}
}

// Sentence is the human-readable summary line.
func (p Prediction) Sentence() string {
	return fmt.Sprintf("Predicted next modal price for %s in %s, %s: ₹%.2f",
		p.Commodity, p.Market, p.State, p.Price)
}

// Caption renders the full result text, used as the chart photo caption.
func (p Prediction) Caption() string {
	var b strings.Builder
	b.WriteString(p.Sentence())
	b.WriteString("\n")
	b.WriteString(strings.Join(p.Chips(), " • "))
	if p.Date != "" {
		b.WriteString("\nfor " + p.Date)
	}
	if !p.HistoryOK {
		b.WriteString("\n(historical series unavailable; showing prediction only)")
	}
	return b.String()
}

// Alternative is a runner-up crop for the recommendation card.
type Alternative struct {
	Crop       string
	Confidence float64
}

// Recommendation is the crop recommendation card.
type Recommendation struct {
	Crop         string
	Confidence   float64
	Suitability  string
	GrowthScore  float64
	RiskLabel    string
	Alternatives []Alternative
}

// Text renders the recommendation card.
func (r Recommendation) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommended crop: *%s*\n", r.Crop)
	fmt.Fprintf(&b, "confidence %.1f%% • suitability %s • growth %.1f/10 • risk %s",
		r.Confidence, r.Suitability, r.GrowthScore, r.RiskLabel)
	if len(r.Alternatives) > 0 {
		b.WriteString("\n\nAlternatives:")
		for _, a := range r.Alternatives {
			fmt.Fprintf(&b, "\n- %s (%.1f%%)", a.Crop, a.Confidence)
		}
	}
	return b.String()
}

// LevelPrompt renders the option keyboard header for one cascade level.
func LevelPrompt(level string, optionCount int) string {
	return fmt.Sprintf("Choose a %s (%d available):", level, optionCount)
}

// Notice wraps failure text shown as a plain chat notification.
func Notice(op string, err error) string {
	return op + " failed: " + err.Error()
}

// EmptyNotice is the explicit no-results state, distinct from an error.
func EmptyNotice(what, forWhat string) string {
	return "No " + what + " found for " + forWhat + "."
}
