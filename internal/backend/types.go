package backend

// Response shapes mirror the Future Crop AI backend (trimmed to needed fields).

type HealthResp struct {
	OK              bool `json:"ok"`
	DB              bool `json:"db"`
	ModelsDir       bool `json:"models_dir"`
	CropModelLoaded bool `json:"crop_model_loaded"`
}

type ModelsResp struct {
	Models []string `json:"models"`
	Count  int      `json:"count"`
	Source string   `json:"source"`
}

type StatesResp struct {
	Commodity string   `json:"commodity"`
	States    []string `json:"states"`
}

type MarketsResp struct {
	Commodity string   `json:"commodity"`
	State     string   `json:"state"`
	Markets   []string `json:"markets"`
}

// Series is recent date/price history for one context, ascending by date.
// Dates and Prices are index-aligned.
type Series struct {
	Dates  []string  `json:"dates"`
	Prices []float64 `json:"prices"`
}

type predictReq struct {
	Commodity string `json:"commodity"`
	State     string `json:"state"`
	Market    string `json:"market"`
	Date      string `json:"date,omitempty"`
}

// Prediction is the result of a /predict_by_context call.
type Prediction struct {
	Commodity          string  `json:"commodity"`
	State              string  `json:"state"`
	Market             string  `json:"market"`
	UsedPoints         int     `json:"used_points"`
	WindowSize         int     `json:"window_size"`
	Padded             bool    `json:"padded"`
	PredictedNextPrice float64 `json:"predicted_next_price"`
}

// CropAlternative is a runner-up crop with its confidence percentage.
type CropAlternative struct {
	Crop       string  `json:"crop"`
	Confidence float64 `json:"confidence"`
}

// Recommendation is the result of a /crop/recommend call. Confidence is a
// percentage; GrowthScore is on a 0–10 scale.
type Recommendation struct {
	RecommendedCrop string            `json:"recommended_crop"`
	Confidence      float64           `json:"confidence"`
	Suitability     string            `json:"suitability"`
	GrowthScore     float64           `json:"growth_score"`
	RiskLabel       string            `json:"risk_label"`
	Alternatives    []CropAlternative `json:"alternatives"`
}
