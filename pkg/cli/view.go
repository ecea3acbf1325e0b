package cli

import (
	"bytes"
	"net/http"

	"github.com/mchmarny/coxrisk/pkg/form"
	"github.com/mchmarny/coxrisk/pkg/score"
)

const maxFormBytes = 1 << 16

// homePage is the data of the "home" template.
type homePage struct {
	Version   string
	Commit    string
	BuildDate string
	Input     form.Input
	Coverages []score.Coverage
	Bounds    form.Bounds
	Errors    map[string]string
	View      *form.View
}

func (h *handler) newPage(in form.Input) *homePage {
	return &homePage{
		Version:   version,
		Commit:    commit,
		BuildDate: date,
		Input:     in,
		Coverages: score.Coverages,
		Bounds:    h.bounds,
	}
}

func (h *handler) homeViewHandler(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, h.newPage(form.DefaultInput()))
}

func (h *handler) scoreViewHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		requestLogger(r).Debug("form parse failed", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	in := form.FromValues(r.PostForm)
	page := h.newPage(in)

	p, err := form.Parse(in, h.bounds)
	if err != nil {
		page.Errors = make(map[string]string)
		for _, fe := range form.FieldErrors(err) {
			page.Errors[fe.Field] = fe.Reason
			h.metrics.ObserveRejected(fe.Field)
		}
		requestLogger(r).Debug("form rejected", "error", err)
		h.render(w, r, http.StatusUnprocessableEntity, page)
		return
	}

	v := h.compute(r, p)
	page.View = &v
	h.render(w, r, http.StatusOK, page)
}

func (h *handler) compute(r *http.Request, p score.PatientInput) form.View {
	res := h.scorer.Compute(score.NewPatientRecord(p))
	h.metrics.ObserveScore(res)

	requestLogger(r).Debug("score computed",
		"lp", res.LinearPredictor,
		"hr", res.HazardRatio,
		"category", res.Category)

	return form.NewView(res, h.scorer.Model().Thresholds)
}

// render executes the template into a buffer first so a failure can still
// produce a clean 500.
func (h *handler) render(w http.ResponseWriter, r *http.Request, status int, page *homePage) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "home", page); err != nil {
		requestLogger(r).Error("template render failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		requestLogger(r).Error("failed to write page", "error", err)
	}
}
