package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropcare/internal/analysis"
	"cropcare/internal/model"
	"cropcare/internal/predict"
	"cropcare/internal/result"
)

func init() {
	color.NoColor = true
}

func TestPrintView(t *testing.T) {
	v := result.Build(&model.AnalysisResult{
		PredictedClass: "Blight",
		Confidence:     0.75,
		TopPredictions: []model.Prediction{{Class: "Rust", Confidence: 0.75}, {Class: "Blight", Confidence: 0.2}},
		ImageURL:       "/uploads/leaf.jpg",
		Remedy:         &model.Remedy{Treatment: "Spray copper\nRepeat weekly", SourceNote: "Extension office"},
	}, "http://localhost:5000")

	var buf bytes.Buffer
	printView(&buf, v)
	out := buf.String()

	assert.Contains(t, out, "Diagnosis   Blight")
	assert.Contains(t, out, "top-ranked prediction is Rust")
	assert.Contains(t, out, "75.0% (Medium Confidence)")
	assert.Contains(t, out, "http://localhost:5000/uploads/leaf.jpg")
	assert.Contains(t, out, "  - Blight: 20.0%")
	assert.Contains(t, out, "    Repeat weekly")
	assert.Contains(t, out, "Extension office")
	assert.NotContains(t, out, "Information")
}

func TestPrintView_NoRemedy(t *testing.T) {
	var buf bytes.Buffer
	printView(&buf, result.Build(&model.AnalysisResult{PredictedClass: "Healthy", Confidence: 0.99}, ""))
	assert.NotContains(t, buf.String(), "Treatment Recommendations")
	assert.NotContains(t, buf.String(), "Alternative Diagnoses")
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := progressPrinter(&buf)
	p(predict.Progress{Sent: 5, Total: 10})
	p(predict.Progress{Sent: 5, Total: 10})
	p(predict.Progress{Sent: 10, Total: 10})

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, analysis.MessageUploading))
	assert.Contains(t, out, analysis.MessageAnalyzing+" 100%")
}

func TestReadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaf.png")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	require.NoError(t, os.WriteFile(path, png, 0o644))

	img, err := readImage(path)
	require.NoError(t, err)
	assert.Equal(t, "leaf.png", img.Filename)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, png, img.Data)

	_, err = readImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
