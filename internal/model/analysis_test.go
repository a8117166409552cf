package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisResult_DecodesServiceBody(t *testing.T) {
	body := `{
		"predicted_class": "Tomato___Late_blight",
		"confidence": 0.93,
		"top_predictions": [
			{"class": "Tomato___Late_blight", "confidence": 0.93},
			{"class": "Tomato___Early_blight", "confidence": 0.05}
		],
		"image_url": "/uploads/1700000000_leaf.jpg",
		"remedy": {"treatment": "Remove infected leaves.", "source_note": "Compiled from web sources."}
	}`

	var result AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(body), &result))

	assert.Equal(t, "Tomato___Late_blight", result.PredictedClass)
	assert.Len(t, result.TopPredictions, 2)
	require.NotNil(t, result.Remedy)
	assert.Equal(t, "Remove infected leaves.", result.Remedy.Treatment)
	assert.Empty(t, result.Remedy.Info)
	assert.False(t, result.TopClassMismatch())
}

func TestAnalysisResult_TopClassMismatch(t *testing.T) {
	result := &AnalysisResult{
		PredictedClass: "Rust",
		TopPredictions: []Prediction{{Class: "Blight", Confidence: 0.6}},
	}
	assert.Equal(t, "Blight", result.TopClass())
	assert.True(t, result.TopClassMismatch())

	empty := &AnalysisResult{PredictedClass: "Rust"}
	assert.Equal(t, "", empty.TopClass())
	assert.False(t, empty.TopClassMismatch())
}
