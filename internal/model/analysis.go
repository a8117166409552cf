package model

// Prediction is one (class label, confidence) pair returned by the inference service.
type Prediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Remedy is optional treatment guidance keyed by category. Every field may be empty.
type Remedy struct {
	Info            string `json:"info,omitempty"`
	Treatment       string `json:"treatment,omitempty"`
	Prevention      string `json:"prevention,omitempty"`
	ChemicalControl string `json:"chemical_control,omitempty"`
	OrganicControl  string `json:"organic_control,omitempty"`
	SourceNote      string `json:"source_note,omitempty"`
}

// AnalysisResult is the body of a successful POST /api/predict.
// It is built once from the response and never mutated afterwards.
type AnalysisResult struct {
	PredictedClass string       `json:"predicted_class"`
	Confidence     float64      `json:"confidence"`
	TopPredictions []Prediction `json:"top_predictions"`
	ImageURL       string       `json:"image_url"`
	Remedy         *Remedy      `json:"remedy,omitempty"`
}

// TopClass returns top_predictions[0].class, or "" when the list is empty.
func (r *AnalysisResult) TopClass() string {
	if r == nil || len(r.TopPredictions) == 0 {
		return ""
	}
	return r.TopPredictions[0].Class
}

// TopClassMismatch reports whether the ranked list disagrees with predicted_class.
// The service does not guarantee they match; both are kept as sent.
func (r *AnalysisResult) TopClassMismatch() bool {
	if r == nil || len(r.TopPredictions) == 0 {
		return false
	}
	return r.TopPredictions[0].Class != r.PredictedClass
}
