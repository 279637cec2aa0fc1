package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fd1az/feejar-monitor/business/jar/app"
	"github.com/fd1az/feejar-monitor/business/jar/domain"
	"github.com/fd1az/feejar-monitor/internal/apm"
	"github.com/fd1az/feejar-monitor/internal/apperror"
	"github.com/fd1az/feejar-monitor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/feejar-monitor/business/jar/infra/httpapi"

	maxBodyBytes = 1 << 20
)

// JarAPI is what the handlers need from the jar service.
type JarAPI interface {
	Evaluate(ctx context.Context) (*app.Evaluation, error)
	Status(ctx context.Context) (*app.Status, error)
	Simulate(in app.SimulationInput) (domain.BurnSelection, domain.FormattedResult, error)
	BuildClaim(ctx context.Context, recipient string) (*app.ClaimTx, error)
}

// Handler serves the /api routes and the /ws stream.
type Handler struct {
	jar            JarAPI
	stream         http.Handler
	allowedOrigins []string
	logger         logger.LoggerInterface
	tracer         apm.Tracer
}

// NewHandler creates a Handler. stream may be nil to disable /ws.
func NewHandler(jar JarAPI, stream http.Handler, allowedOrigins []string, log logger.LoggerInterface) *Handler {
	return &Handler{
		jar:            jar,
		stream:         stream,
		allowedOrigins: allowedOrigins,
		logger:         log,
		tracer:         apm.NewTracer(tracerName),
	}
}

// Mount registers the routes on r.
func (h *Handler) Mount(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(requestID, accessLog(h.logger), cors(h.allowedOrigins))

	api.HandleFunc("/status", h.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/profitability", h.handleProfitability).Methods(http.MethodGet)
	api.HandleFunc("/simulate", h.handleSimulate).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/claim-tx", h.handleClaimTx).Methods(http.MethodGet)

	if h.stream != nil {
		r.Handle("/ws", h.stream).Methods(http.MethodGet)
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.StartSpanFromContext(r.Context(), "api.status")
	defer span.End()

	st, err := h.jar.Status(ctx)
	if err != nil {
		span.NoticeError(err)
		h.writeError(ctx, w, err)
		return
	}
	span.MarkOK()
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) handleProfitability(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.StartSpanFromContext(r.Context(), "api.profitability")
	defer span.End()

	ev, err := h.jar.Evaluate(ctx)
	if err != nil {
		span.NoticeError(err)
		h.writeError(ctx, w, err)
		return
	}
	span.SetAttributes(attribute.Bool("profitable", ev.Formatted.IsProfitable))
	span.MarkOK()
	writeJSON(w, http.StatusOK, ev.Payload())
}

func (h *Handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.StartSpanFromContext(r.Context(), "api.simulate")
	defer span.End()

	var req SimulateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.writeError(ctx, w, apperror.New(apperror.CodeInvalidFormat,
			apperror.WithCause(err),
			apperror.WithContext("request body must be JSON")))
		return
	}

	in, err := req.toInput()
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	_, result, err := h.jar.Simulate(in)
	if err != nil {
		span.NoticeError(err)
		h.writeError(ctx, w, err)
		return
	}
	span.SetAttributes(attribute.Int("tokens", len(in.Tokens)))
	span.MarkOK()
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleClaimTx(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.StartSpanFromContext(r.Context(), "api.claim_tx")
	defer span.End()

	tx, err := h.jar.BuildClaim(ctx, r.URL.Query().Get("recipient"))
	if err != nil {
		span.NoticeError(err)
		h.writeError(ctx, w, err)
		return
	}
	span.MarkOK()
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	appErr := apperror.Wrap(err, apperror.CodeInternalError, "").WithSpan(ctx)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	args := append(appErr.ToLog(), "request_id", RequestID(ctx))
	if status >= http.StatusInternalServerError {
		h.logger.Error(ctx, "api request failed", args...)
	} else {
		h.logger.Debug(ctx, "api request rejected", args...)
	}

	writeJSON(w, status, appErr.ToResponse())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
