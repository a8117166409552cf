// Package result turns an AnalysisResult into what the result card shows.
package result

import (
	"fmt"
	"html/template"
	"strings"

	"cropcare/internal/model"
	"cropcare/internal/predict"
)

// Tier colours of the confidence bar.
const (
	ColorHigh   = "#388e3c"
	ColorMedium = "#fbc02d"
	ColorLow    = "#e53935"
)

const (
	HighThreshold   = 0.9
	MediumThreshold = 0.7
)

type Tier struct {
	Label string
	Color string
}

// TierFor maps a confidence in [0,1] onto its label and bar colour.
func TierFor(confidence float64) Tier {
	switch {
	case confidence >= HighThreshold:
		return Tier{Label: "High Confidence", Color: ColorHigh}
	case confidence >= MediumThreshold:
		return Tier{Label: "Medium Confidence", Color: ColorMedium}
	default:
		return Tier{Label: "Low Confidence", Color: ColorLow}
	}
}

func Percent(confidence float64) string {
	return fmt.Sprintf("%.1f%%", confidence*100)
}

// Section keys, in display order.
const (
	SectionInfo      = "info"
	SectionTreatment = "treatment"
	SectionPrevent   = "prevention"
	SectionChemical  = "chemical"
	SectionOrganic   = "organic"
)

type Section struct {
	Key   string
	Title string
	Text  string
	HTML  template.HTML
}

type Alternative struct {
	Class      string
	Confidence float64
	Label      string
}

type View struct {
	ImageURL         string
	TopLabel         string
	Diagnosis        string
	Confidence       float64
	ConfidencePct    string
	BarWidth         string
	Tier             Tier
	BarFrom          string
	Alternatives     []Alternative
	Sections         []Section
	SourceNote       string
	Expanded         string
	TopClassMismatch bool
}

// Build renders r against origin. r is not modified.
func Build(r *model.AnalysisResult, origin string) View {
	if r == nil {
		return View{}
	}

	v := View{
		ImageURL:         predict.JoinOrigin(origin, r.ImageURL),
		TopLabel:         r.TopClass(),
		Diagnosis:        r.PredictedClass,
		Confidence:       r.Confidence,
		ConfidencePct:    Percent(r.Confidence),
		BarWidth:         barWidth(r.Confidence),
		Tier:             TierFor(r.Confidence),
		BarFrom:          TierFor(r.Confidence - 0.2).Color,
		TopClassMismatch: r.TopClassMismatch(),
	}
	if v.TopLabel == "" {
		v.TopLabel = r.PredictedClass
	}

	if len(r.TopPredictions) > 1 {
		v.Alternatives = make([]Alternative, 0, len(r.TopPredictions)-1)
		for _, p := range r.TopPredictions[1:] {
			v.Alternatives = append(v.Alternatives, Alternative{
				Class:      p.Class,
				Confidence: p.Confidence,
				Label:      fmt.Sprintf("%s: %s", p.Class, Percent(p.Confidence)),
			})
		}
	}

	if r.Remedy != nil {
		v.Sections = sections(r.Remedy)
		v.SourceNote = r.Remedy.SourceNote
	}
	if v.hasSection(SectionInfo) {
		v.Expanded = SectionInfo
	}
	return v
}

// HasRecommendations reports whether the Treatment Recommendations block is shown at all.
func (v View) HasRecommendations() bool {
	return len(v.Sections) > 0 || v.SourceNote != ""
}

// Expand opens key, closing whatever was open. Closing the open section leaves none open.
func (v *View) Expand(key string, open bool) {
	if !open {
		if v.Expanded == key {
			v.Expanded = ""
		}
		return
	}
	if v.hasSection(key) {
		v.Expanded = key
	}
}

func (v View) IsExpanded(key string) bool {
	return v.Expanded != "" && v.Expanded == key
}

func (v View) hasSection(key string) bool {
	for _, s := range v.Sections {
		if s.Key == key {
			return true
		}
	}
	return false
}

func sections(r *model.Remedy) []Section {
	all := []Section{
		{Key: SectionInfo, Title: "Information", Text: r.Info},
		{Key: SectionTreatment, Title: "Treatment", Text: r.Treatment},
		{Key: SectionPrevent, Title: "Prevention", Text: r.Prevention},
		{Key: SectionChemical, Title: "Chemical Control", Text: r.ChemicalControl},
		{Key: SectionOrganic, Title: "Organic Control", Text: r.OrganicControl},
	}
	out := make([]Section, 0, len(all))
	for _, s := range all {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		s.HTML = RenderMarkdown(s.Text)
		out = append(out, s)
	}
	return out
}

func barWidth(confidence float64) string {
	switch {
	case confidence < 0:
		confidence = 0
	case confidence > 1:
		confidence = 1
	}
	return fmt.Sprintf("%.1f%%", confidence*100)
}
