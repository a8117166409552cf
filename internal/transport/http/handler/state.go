package handler

import (
	"cropcare/internal/analysis"
	"cropcare/internal/result"
	"cropcare/internal/workspace"
)

type snapshotResponse struct {
	Status  analysis.Status `json:"status"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Percent int             `json:"percent"`
	Seq     uint64          `json:"seq"`
}

type resultResponse struct {
	ImageURL         string   `json:"image_url"`
	TopLabel         string   `json:"top_label"`
	Diagnosis        string   `json:"diagnosis"`
	Confidence       float64  `json:"confidence"`
	ConfidenceLabel  string   `json:"confidence_label"`
	Tier             string   `json:"tier"`
	TierColor        string   `json:"tier_color"`
	Alternatives     []string `json:"alternatives"`
	Sections         []string `json:"sections"`
	Expanded         string   `json:"expanded,omitempty"`
	SourceNote       string   `json:"source_note,omitempty"`
	TopClassMismatch bool     `json:"top_class_mismatch"`
}

type stateResponse struct {
	snapshotResponse
	HasFile      bool            `json:"has_file"`
	Filename     string          `json:"filename,omitempty"`
	PreviewReady bool            `json:"preview_ready"`
	PreviewError bool            `json:"preview_error"`
	CanSubmit    bool            `json:"can_submit"`
	Result       *resultResponse `json:"result,omitempty"`
}

func newSnapshotResponse(s analysis.Snapshot) snapshotResponse {
	return snapshotResponse{
		Status:  s.Status,
		Message: s.Message,
		Error:   s.Error,
		Percent: s.Percent(),
		Seq:     s.Seq,
	}
}

func newStateResponse(st workspace.State) stateResponse {
	resp := stateResponse{
		snapshotResponse: newSnapshotResponse(st.Snapshot),
		HasFile:          st.HasFile,
		Filename:         st.Filename,
		PreviewReady:     st.PreviewReady,
		PreviewError:     st.PreviewError,
		CanSubmit:        st.CanSubmit,
	}
	if st.Result != nil {
		resp.Result = newResultResponse(st.Result)
	}
	return resp
}

func newResultResponse(v *result.View) *resultResponse {
	out := &resultResponse{
		ImageURL:         v.ImageURL,
		TopLabel:         v.TopLabel,
		Diagnosis:        v.Diagnosis,
		Confidence:       v.Confidence,
		ConfidenceLabel:  v.ConfidencePct,
		Tier:             v.Tier.Label,
		TierColor:        v.Tier.Color,
		Alternatives:     make([]string, 0, len(v.Alternatives)),
		Sections:         make([]string, 0, len(v.Sections)),
		Expanded:         v.Expanded,
		SourceNote:       v.SourceNote,
		TopClassMismatch: v.TopClassMismatch,
	}
	for _, a := range v.Alternatives {
		out.Alternatives = append(out.Alternatives, a.Label)
	}
	for _, s := range v.Sections {
		out.Sections = append(out.Sections, s.Key)
	}
	return out
}
