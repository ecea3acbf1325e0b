package cli

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mchmarny/coxrisk/pkg/form"
	"github.com/mchmarny/coxrisk/pkg/score"
)

const maxJSONBytes = 1 << 16

// ScoreRequest is the body of POST /api/score. Coverage is a single
// choice, so the one-hot flags are always derived server side.
type ScoreRequest struct {
	Age              *float64 `json:"age"`
	Albumin          *float64 `json:"albumin"`
	ConvulsiveCrises bool     `json:"convulsive_crises"`
	AVFistula        bool     `json:"av_fistula"`
	ResidualDiuresis bool     `json:"residual_diuresis"`
	Coverage         string   `json:"coverage"`
}

// ScoreResponse is the body of a successful POST /api/score.
type ScoreResponse struct {
	Patient score.PatientRecord `json:"patient"`
	Score   form.View           `json:"score"`
}

type errorResponse struct {
	Error  string             `json:"error"`
	Fields []*form.FieldError `json:"fields,omitempty"`
}

type modelResponse struct {
	Model  score.Model `json:"model"`
	Bounds form.Bounds `json:"bounds"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// toInput converts the request into typed patient data. Missing numbers
// and unknown coverage are reported as field errors.
func (req *ScoreRequest) toInput() (score.PatientInput, []*form.FieldError) {
	var fields []*form.FieldError
	p := score.PatientInput{
		ConvulsiveCrises: req.ConvulsiveCrises,
		AVFistulaCreated: req.AVFistula,
		ResidualDiuresis: req.ResidualDiuresis,
	}

	if req.Age == nil {
		fields = append(fields, &form.FieldError{Field: form.FieldAge, Reason: "is required"})
	} else {
		p.Age = *req.Age
	}
	if req.Albumin == nil {
		fields = append(fields, &form.FieldError{Field: form.FieldAlbumin, Reason: "is required"})
	} else {
		p.SerumAlbumin = *req.Albumin
	}

	cov, err := score.ParseCoverage(req.Coverage)
	if err != nil {
		fields = append(fields, &form.FieldError{Field: form.FieldCoverage, Reason: "must be one of none, ramed, amo, cnops"})
	}
	p.Coverage = cov

	return p, fields
}

func (h *handler) scoreAPIHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)

	var req ScoreRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		log.Debug("error decoding score request", "error", err)
		writeError(w, http.StatusBadRequest, "error decoding json")
		return
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		log.Debug("trailing data after score request", "error", err)
		writeError(w, http.StatusBadRequest, "request body must hold a single json object")
		return
	}

	p, fields := req.toInput()
	if len(fields) == 0 {
		fields = form.FieldErrors(form.Validate(p, h.bounds))
	}
	if len(fields) > 0 {
		for _, fe := range fields {
			h.metrics.ObserveRejected(fe.Field)
		}
		log.Debug("score request rejected", "fields", len(fields))
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  form.ErrInvalidInput.Error(),
			Fields: fields,
		})
		return
	}

	v := h.compute(r, p)
	writeJSON(w, http.StatusOK, ScoreResponse{
		Patient: score.NewPatientRecord(p),
		Score:   v,
	})
}

func (h *handler) modelAPIHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, modelResponse{
		Model:  h.scorer.Model(),
		Bounds: h.bounds,
	})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
