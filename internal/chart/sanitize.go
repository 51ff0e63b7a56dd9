package chart

// alignSeries trims dates and prices to matching length and drops points
// with negative prices, keeping the arrays index-aligned.
func alignSeries(dates []string, prices []float64) ([]string, []float64) {
	n := len(dates)
	if len(prices) < n {
		n = len(prices)
	}
	dates = dates[:n]
	prices = prices[:n]
	outD := make([]string, 0, n)
	outP := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if prices[i] < 0 {
			continue
		}
		outD = append(outD, dates[i])
		outP = append(outP, prices[i])
	}
	return outD, outP
}

// yRange returns padded axis bounds for a set of values, never below zero.
func yRange(values []float64) (float64, float64) {
	var min, max float64
	first := true
	for _, v := range values {
		if first {
			min, max = v, v
			first = false
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	pad := (max - min) * 0.05
	if pad < max*0.002 {
		pad = max * 0.002
	}
	min -= pad
	if min < 0 {
		min = 0
	}
	max += pad
	return min, max
}
