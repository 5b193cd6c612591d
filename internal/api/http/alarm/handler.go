package alarm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/boiler-alarm/internal/auth"
	"github.com/oshokin/boiler-alarm/internal/clock"
	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
	"github.com/oshokin/boiler-alarm/internal/export"
	"github.com/oshokin/boiler-alarm/internal/logger"
	"github.com/oshokin/boiler-alarm/internal/render"
	"github.com/oshokin/boiler-alarm/internal/version"
)

// PageHistoryRows is how many of the newest history rows the status page shows.
const PageHistoryRows = 12

// Service abstracts the controller operations the handlers depend on.
type Service interface {
	Status() *domain.Status
	SetState(ctx context.Context, actor *domain.Actor, target domain.State) (bool, error)
	UpdateThresholds(ctx context.Context, actor *domain.Actor, t domain.Thresholds) (domain.Thresholds, error)
	UpdatePhones(ctx context.Context, actor *domain.Actor, raw string) ([]string, error)
}

// RecordSource lists persisted records.
type RecordSource interface {
	Records(ctx context.Context) ([]string, error)
}

// QuotaReader reports today's notification usage.
type QuotaReader interface {
	Used(ctx context.Context) (int, error)
	Limit() int
}

// Options wires the handler.
type Options struct {
	Service Service
	History RecordSource
	Audit   RecordSource
	Quota   QuotaReader
	Clock   clock.Clock
	// Secret verifies operator tokens. The operator API is not mounted when empty.
	Secret []byte
	// Page is the status page template; render.StatusPage if empty.
	Page string
	// Placeholders fill Page; render.Default() if nil.
	Placeholders render.Placeholders
}

type handler struct {
	opts Options
}

// NewHandler returns the router for every HTTP endpoint.
func NewHandler(opts Options) http.Handler {
	if opts.Page == "" {
		opts.Page = render.StatusPage
	}

	if opts.Placeholders == nil {
		opts.Placeholders = render.Default()
	}

	h := &handler{opts: opts}

	r := mux.NewRouter()
	r.Use(allowAnyOrigin)

	r.HandleFunc("/", h.page).Methods(http.MethodGet)
	r.HandleFunc("/temp", h.temp).Methods(http.MethodGet)
	r.HandleFunc("/info", h.info).Methods(http.MethodGet)
	r.HandleFunc("/status", h.status).Methods(http.MethodGet)
	r.HandleFunc("/hist", h.historyCSV).Methods(http.MethodGet)
	r.HandleFunc("/hist.xlsx", h.historyXLSX).Methods(http.MethodGet)
	r.HandleFunc("/hist.pdf", h.historyPDF).Methods(http.MethodGet)
	r.HandleFunc("/audit", h.audit).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if len(opts.Secret) > 0 {
		api := r.PathPrefix("/api").Subrouter()
		api.Use(auth.Middleware(opts.Secret))
		api.HandleFunc("/state", h.setState).Methods(http.MethodPost)
		api.HandleFunc("/thresholds", h.setThresholds).Methods(http.MethodPut)
		api.HandleFunc("/phones", h.setPhones).Methods(http.MethodPut)
	}

	return r
}

func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func (h *handler) page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	view := render.View{
		Status:   h.opts.Service.Status(),
		Commit:   version.Commit,
		BootTime: version.BootTime(),
		Now:      h.opts.Clock.Now(),
	}

	if records, err := h.opts.Audit.Records(ctx); err == nil {
		view.Audit = records
	} else {
		logger.WarnKV(ctx, "Status page without audit", "error", err)
	}

	if rows, err := h.opts.History.Records(ctx); err == nil {
		view.History = tail(rows, PageHistoryRows)
	} else {
		logger.WarnKV(ctx, "Status page without history", "error", err)
	}

	if h.opts.Quota != nil {
		view.Quota = h.opts.Quota.Limit()
		view.QuotaUsed, _ = h.opts.Quota.Used(ctx)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(h.opts.Placeholders.Execute(h.opts.Page, view)))
}

type tempResponse struct {
	TempC *float64 `json:"temp_c"`
}

func (h *handler) temp(w http.ResponseWriter, r *http.Request) {
	resp := tempResponse{TempC: roundedTemp(h.opts.Service.Status())}

	writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *handler) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, version.Describe(h.opts.Clock.Now()))
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, newStatusResponse(h.opts.Service.Status()))
}

func (h *handler) historyCSV(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.records(w, r, h.opts.History)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(joinLines(rows)))
}

func (h *handler) historyXLSX(w http.ResponseWriter, r *http.Request) {
	h.historyExport(w, r,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "history.xlsx",
		export.XLSX)
}

func (h *handler) historyPDF(w http.ResponseWriter, r *http.Request) {
	h.historyExport(w, r, "application/pdf", "history.pdf", func(samples []export.Sample) ([]byte, error) {
		return export.PDF("Katilines istorija "+clock.Date(h.opts.Clock), samples)
	})
}

func (h *handler) historyExport(
	w http.ResponseWriter,
	r *http.Request,
	contentType, filename string,
	build func([]export.Sample) ([]byte, error),
) {
	rows, ok := h.records(w, r, h.opts.History)
	if !ok {
		return
	}

	samples, skipped := export.ParseRows(rows)
	if skipped > 0 {
		logger.WarnKV(r.Context(), "Skipped malformed history rows", "count", skipped)
	}

	data, err := build(samples)
	if err != nil {
		logger.ErrorKV(r.Context(), "Failed to export history", "format", filename, "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (h *handler) audit(w http.ResponseWriter, r *http.Request) {
	records, ok := h.records(w, r, h.opts.Audit)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(joinLines(records)))
}

func (h *handler) records(w http.ResponseWriter, r *http.Request, src RecordSource) ([]string, bool) {
	records, err := src.Records(r.Context())
	if err != nil {
		logger.ErrorKV(r.Context(), "Failed to read records", "path", r.URL.Path, "error", err)
		http.Error(w, "storage unavailable", http.StatusInternalServerError)

		return nil, false
	}

	return records, true
}

type stateRequest struct {
	State string `json:"state"`
}

func (h *handler) setState(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	target, err := domain.ParseState(req.State)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	actor := auth.ActorFromContext(r.Context())

	if _, err = h.opts.Service.SetState(r.Context(), actor, target); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, newStatusResponse(h.opts.Service.Status()))
}

type thresholdsRequest struct {
	TriggerC *float64 `json:"trigger_c"`
	ResetC   *float64 `json:"reset_c"`
}

func (h *handler) setThresholds(w http.ResponseWriter, r *http.Request) {
	var req thresholdsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// Omitted fields keep their current value.
	t := h.opts.Service.Status().Thresholds
	if req.TriggerC != nil {
		t.TriggerC = *req.TriggerC
	}

	if req.ResetC != nil {
		t.ResetC = *req.ResetC
	}

	if _, err := h.opts.Service.UpdateThresholds(r.Context(), auth.ActorFromContext(r.Context()), t); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, newStatusResponse(h.opts.Service.Status()))
}

type phonesRequest struct {
	Phones string `json:"phones"`
}

func (h *handler) setPhones(w http.ResponseWriter, r *http.Request) {
	var req phonesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.opts.Service.UpdatePhones(r.Context(), auth.ActorFromContext(r.Context()), req.Phones); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(r.Context(), w, http.StatusOK, newStatusResponse(h.opts.Service.Status()))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(dst); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}

	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		http.Error(w, verr.Error(), http.StatusBadRequest)
		return
	}

	logger.ErrorKV(r.Context(), "Operator request failed", "path", r.URL.Path, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)

	if _, err = w.Write(append(data, '\n')); err != nil {
		logger.WarnKV(ctx, "Failed to write response", "error", err)
	}
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}

	return strings.Join(lines, "\n") + "\n"
}

func tail(rows []string, n int) []string {
	if len(rows) <= n {
		return rows
	}

	return rows[len(rows)-n:]
}
