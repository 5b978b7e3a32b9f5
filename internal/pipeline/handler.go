package pipeline

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/mathlens/internal/fallback"
	"github.com/JaimeStill/mathlens/internal/faults"
	"github.com/JaimeStill/mathlens/pkg/handlers"
	"github.com/JaimeStill/mathlens/pkg/routes"
)

// Handler provides HTTP endpoints for the capture pipeline.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// ProcessHTTPRequest is the JSON body for capture submission. Image carries
// base64-encoded PNG or JPEG bytes.
type ProcessHTTPRequest struct {
	Image  string `json:"image"`
	Source string `json:"source"`
}

// ManualRequest is the JSON body for typed expression submission.
type ManualRequest struct {
	Expression string `json:"expression"`
}

// BatchRequest is the JSON body for concurrent capture submission.
type BatchRequest struct {
	Images []string `json:"images"`
	Source string   `json:"source"`
}

// FallbacksRequest asks for the recovery options available after a failure
// of the given kind under the client's capabilities.
type FallbacksRequest struct {
	Kind         faults.Kind           `json:"kind"`
	Stage        string                `json:"stage"`
	Capabilities fallback.Capabilities `json:"capabilities"`
}

// FallbacksResponse pairs the ranked strategy with the capability-filtered
// options.
type FallbacksResponse struct {
	Strategy    fallback.Strategy       `json:"strategy"`
	Available   []fallback.Option       `json:"available"`
	Recovery    faults.RecoveryStrategy `json:"recovery"`
	Suggestions []string                `json:"suggestions"`
}

// ExecuteFallbackRequest is the JSON body for fallback execution.
type ExecuteFallbackRequest struct {
	Option fallback.Option `json:"option"`
}

// NewHandler creates a Handler over the pipeline system.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "pipeline"),
	}
}

// Routes returns the route group definition for pipeline endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/pipeline",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Process},
			{Method: "POST", Pattern: "/manual", Handler: h.Manual},
			{Method: "POST", Pattern: "/batch", Handler: h.Batch},
			{Method: "GET", Pattern: "/state", Handler: h.State},
			{Method: "POST", Pattern: "/cancel", Handler: h.Cancel},
			{Method: "POST", Pattern: "/fallbacks", Handler: h.Fallbacks},
			{Method: "POST", Pattern: "/fallbacks/execute", Handler: h.ExecuteFallback},
		},
	}
}

// Process submits one captured image for recognition and calculation.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("image is not valid base64"))
		return
	}

	source := req.Source
	if source == "" {
		source = SourceCamera
	}

	result, e := h.sys.Process(r.Context(), ProcessRequest{Image: image, Source: source})
	if e != nil {
		h.respondFault(w, e)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Manual evaluates a typed expression directly.
func (h *Handler) Manual(w http.ResponseWriter, r *http.Request) {
	var req ManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, e := h.sys.ProcessManual(r.Context(), req.Expression)
	if e != nil {
		h.respondFault(w, e)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Batch submits multiple independent captures for concurrent recognition.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if len(req.Images) == 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("images is empty"))
		return
	}

	source := req.Source
	if source == "" {
		source = SourceFileUpload
	}

	reqs := make([]ProcessRequest, len(req.Images))
	for i, encoded := range req.Images {
		image, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("image is not valid base64"))
			return
		}
		reqs[i] = ProcessRequest{Image: image, Source: source}
	}

	items := h.sys.ProcessBatch(r.Context(), reqs)
	handlers.RespondJSON(w, http.StatusOK, items)
}

// State returns the observable processing state of the active capture.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.sys.State())
}

// Cancel aborts the active capture.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.sys.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

// Fallbacks returns the recovery strategy and capability-filtered fallback
// options for a failure kind.
func (h *Handler) Fallbacks(w http.ResponseWriter, r *http.Request) {
	var req FallbacksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if req.Kind == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errors.New("kind is required"))
		return
	}

	// Rehydrate the fault from its kind defaults so the derived recovery
	// strategy sees the correct retryability.
	class, recoverable, retryable, action := faults.Definition(req.Kind)
	e := &faults.Error{
		Class:           class,
		Kind:            req.Kind,
		Stage:           req.Stage,
		Recoverable:     recoverable,
		Retryable:       retryable,
		SuggestedAction: action,
	}

	handlers.RespondJSON(w, http.StatusOK, FallbacksResponse{
		Strategy:    h.sys.FallbackStrategy(e),
		Available:   h.sys.AvailableFallbacks(e, req.Capabilities),
		Recovery:    h.sys.RecoveryStrategy(e),
		Suggestions: h.sys.RetrySuggestions(e),
	})
}

// ExecuteFallback performs a fallback option's registered side effect.
func (h *Handler) ExecuteFallback(w http.ResponseWriter, r *http.Request) {
	var req ExecuteFallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	outcome := h.sys.ExecuteFallback(r.Context(), req.Option)
	handlers.RespondJSON(w, http.StatusOK, outcome)
}

// respondFault writes a classified pipeline error with its mapped status and
// the full fault payload, so clients can drive recovery from the response.
func (h *Handler) respondFault(w http.ResponseWriter, e *faults.Error) {
	status := MapHTTPStatus(e)

	if status >= http.StatusInternalServerError {
		h.logger.Error("capture failed", "status", status, "kind", e.Kind, "stage", e.Stage)
	} else {
		h.logger.Warn("capture rejected", "status", status, "kind", e.Kind, "stage", e.Stage)
	}

	handlers.RespondJSON(w, status, e)
}

// MapHTTPStatus maps fault kinds to HTTP status codes.
func MapHTTPStatus(e *faults.Error) int {
	switch e.Kind {
	case faults.KindImageInvalid, faults.KindParsingFailed,
		faults.KindValidationFailed, faults.KindInsufficientConfidence:
		return http.StatusUnprocessableEntity
	case faults.KindRateLimitExceeded:
		return http.StatusTooManyRequests
	case faults.KindTimeout:
		return http.StatusGatewayTimeout
	case faults.KindLLMServiceError, faults.KindNetworkError:
		return http.StatusBadGateway
	case faults.KindCaptureFailed:
		return http.StatusConflict
	case faults.KindPermissionDenied:
		return http.StatusForbidden
	case faults.KindConfigurationError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
