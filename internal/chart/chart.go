// Package chart renders price-history and prediction charts as PNGs.
package chart

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vicanso/go-charts/v2"
)

// buildPriceSeries assembles the two chart series: the observed history and
// a sparse predicted series that is null everywhere except the final index.
// With no history the chart degrades to a single predicted point.
func buildPriceSeries(dates []string, prices []float64, predicted float64, predLabel string) (labels []string, observed, forecast []float64) {
	null := charts.GetNullValue()
	dates, prices = alignSeries(dates, prices)
	if len(prices) == 0 {
		return []string{predLabel}, nil, []float64{predicted}
	}
	labels = append(append([]string{}, dates...), predLabel)
	observed = append(append([]float64{}, prices...), null)
	forecast = make([]float64, len(prices)+1)
	for i := range forecast {
		forecast[i] = null
	}
	forecast[len(forecast)-1] = predicted
	return labels, observed, forecast
}

// Price renders recent observed prices plus the predicted next value for a
// fully selected context. predLabel is the requested or current date.
func Price(title string, dates []string, prices []float64, predicted float64, predLabel string) ([]byte, error) {
	cacheKey := "price|" + title + "|" + predLabel + "|" + fmt.Sprint(len(dates), predicted)
	if img, ok := cacheGet(cacheKey); ok {
		return img, nil
	}

	labels, observed, forecast := buildPriceSeries(dates, prices, predicted, predLabel)

	var flat []float64
	flat = append(flat, predicted)
	for _, v := range prices {
		flat = append(flat, v)
	}
	yMin, yMax := yRange(flat)

	values := [][]float64{forecast}
	names := []string{"predicted"}
	if observed != nil {
		values = [][]float64{observed, forecast}
		names = []string{"observed", "predicted"}
	}

	split := 8
	if len(labels) <= 10 {
		split = len(labels)
	}

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, err
	}
	img, err := painter.Bytes()
	if err != nil {
		return nil, err
	}
	cacheSet(cacheKey, img)
	return img, nil
}

// MarketSeries is one market's history for a comparison chart.
type MarketSeries struct {
	Market string
	Dates  []string
	Prices []float64
}

// Compare renders several markets of one commodity+state on a single chart.
// Only dates present in every series are plotted.
func Compare(title string, series []MarketSeries) ([]byte, error) {
	if len(series) == 0 {
		return nil, errors.New("no series provided")
	}

	// A date only counts once per series, so a duplicate inside one series
	// cannot fake an overlap with a series that lacks that date.
	count := map[string]int{}
	for i := range series {
		series[i].Dates, series[i].Prices = alignSeries(series[i].Dates, series[i].Prices)
		seen := map[string]struct{}{}
		for _, d := range series[i].Dates {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			count[d]++
		}
	}
	common := make([]string, 0, len(count))
	for d, c := range count {
		if c == len(series) {
			common = append(common, d)
		}
	}
	if len(common) < 2 {
		return nil, errors.New("not enough overlapping dates")
	}
	sort.Strings(common)

	values := make([][]float64, 0, len(series))
	names := make([]string, 0, len(series))
	var flat []float64
	for _, ms := range series {
		byDate := make(map[string]float64, len(ms.Dates))
		for i, d := range ms.Dates {
			byDate[d] = ms.Prices[i]
		}
		aligned := make([]float64, 0, len(common))
		for _, d := range common {
			aligned = append(aligned, byDate[d])
		}
		values = append(values, aligned)
		names = append(names, ms.Market)
		flat = append(flat, aligned...)
	}
	yMin, yMax := yRange(flat)

	split := 8
	if len(common) <= 10 {
		split = len(common)
	}

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title, strings.Join(names, ", ")),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: common, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// Usage renders a pie of query volume per commodity from the local log.
func Usage(counts map[string]int, days int) ([]byte, error) {
	if len(counts) == 0 {
		return nil, errors.New("no usage data available")
	}

	commodities := make([]string, 0, len(counts))
	for c := range counts {
		commodities = append(commodities, c)
	}
	sort.Strings(commodities)

	total := 0
	values := make([]float64, 0, len(commodities))
	for _, c := range commodities {
		values = append(values, float64(counts[c]))
		total += counts[c]
	}

	labels := make([]string, 0, len(commodities))
	for i, c := range commodities {
		labels = append(labels, fmt.Sprintf("%s (%.1f%%)", c, values[i]/float64(total)*100))
	}

	painter, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc(fmt.Sprintf("Query volume by commodity (%d days)", days)),
		charts.LegendOptionFunc(charts.LegendOption{Data: labels, Top: charts.PositionTop}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}
