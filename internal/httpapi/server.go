// Package httpapi exposes the coordinator as a JSON HTTP API.
package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/data-power-io/partsquote/internal/app"
	"github.com/data-power-io/partsquote/internal/catalog"
	"github.com/data-power-io/partsquote/internal/diagram"
	"github.com/data-power-io/partsquote/internal/quote"
	"github.com/data-power-io/partsquote/internal/session"
	"github.com/data-power-io/partsquote/internal/store"
	"github.com/data-power-io/partsquote/libs/metrics"
)

const (
	// maxRequestBodySize limits JSON bodies.
	maxRequestBodySize = 1 << 20
	// maxImageSize limits diagram image uploads.
	maxImageSize = 20 << 20
)

var errBadRequest = errors.New("bad request")

// Handler serves the API of one coordinator.
type Handler struct {
	coord  *app.Coordinator
	logger *zap.Logger
}

func NewHandler(coord *app.Coordinator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{coord: coord, logger: logger}
}

// Routes returns the complete handler: the API under /api plus /healthz and
// /metrics, with request counting.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterHTTPHandlers("api", mux)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return instrument(mux)
}

// RegisterHTTPHandlers registers the API under prefix, e.g. "api":
//
//	GET    <prefix>/stats
//	GET    <prefix>/settings
//	PUT    <prefix>/settings/labor-rate
//	PUT    <prefix>/settings/shop
//	PUT    <prefix>/settings/customer
//	GET    <prefix>/brands
//	POST   <prefix>/brands
//	GET    <prefix>/brands/{brand}/models
//	POST   <prefix>/brands/{brand}/models
//	GET    <prefix>/brands/{brand}/diagrams
//	GET    <prefix>/models/{brand}/{model}/images
//	POST   <prefix>/models/{brand}/{model}/images
//	PUT    <prefix>/models/{brand}/{model}/images/{index}
//	DELETE <prefix>/models/{brand}/{model}/images/{index}
//	GET    <prefix>/models/{brand}/{model}/parts
//	POST   <prefix>/models/{brand}/{model}/parts
//	DELETE <prefix>/models/{brand}/{model}/parts
//	PUT    <prefix>/models/{brand}/{model}/parts/{index}
//	PUT    <prefix>/models/{brand}/{model}/groups
//	GET    <prefix>/models/{brand}/{model}/groups
//	GET    <prefix>/models/{brand}/{model}/markers
//	POST   <prefix>/sessions
//	DELETE <prefix>/sessions/{id}
//	POST   <prefix>/sessions/{id}/clicks
//	GET    <prefix>/sessions/{id}/form
//	PUT    <prefix>/sessions/{id}/form/{slot}
//	POST   <prefix>/sessions/{id}/form/submit
//	POST   <prefix>/sessions/{id}/toggle
//	POST   <prefix>/sessions/{id}/menu
//	POST   <prefix>/sessions/{id}/menu/choose
//	DELETE <prefix>/sessions/{id}/menu
//	GET    <prefix>/sessions/{id}/selection
//	DELETE <prefix>/sessions/{id}/selection
//	PUT    <prefix>/sessions/{id}/selection/{index}/labor
//	DELETE <prefix>/sessions/{id}/selection/{index}
//	GET    <prefix>/sessions/{id}/quote
func (h *Handler) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	handle := func(method, path string, fn http.HandlerFunc) {
		mux.HandleFunc(method+" "+prefix+path, fn)
	}

	handle("GET", "/stats", h.handleStats)
	handle("GET", "/settings", h.handleSettings)
	handle("PUT", "/settings/labor-rate", h.handleSetLaborRate)
	handle("PUT", "/settings/shop", h.handleSetShop)
	handle("PUT", "/settings/customer", h.handleSetCustomer)

	handle("GET", "/brands", h.handleBrands)
	handle("POST", "/brands", h.handleAddBrand)
	handle("GET", "/brands/{brand}/models", h.handleModels)
	handle("POST", "/brands/{brand}/models", h.handleAddModel)
	handle("GET", "/brands/{brand}/diagrams", h.handleDiagramIndex)

	handle("GET", "/models/{brand}/{model}/images", h.handleImages)
	handle("POST", "/models/{brand}/{model}/images", h.handleAddImage)
	handle("PUT", "/models/{brand}/{model}/images/{index}", h.handleReplaceImage)
	handle("DELETE", "/models/{brand}/{model}/images/{index}", h.handleRemoveImage)
	handle("GET", "/models/{brand}/{model}/parts", h.handleParts)
	handle("POST", "/models/{brand}/{model}/parts", h.handleAddPart)
	handle("DELETE", "/models/{brand}/{model}/parts", h.handleRemoveParts)
	handle("PUT", "/models/{brand}/{model}/parts/{index}", h.handleEditPart)
	handle("GET", "/models/{brand}/{model}/groups", h.handleGroups)
	handle("PUT", "/models/{brand}/{model}/groups", h.handleRenameGroup)
	handle("GET", "/models/{brand}/{model}/markers", h.handleMarkers)

	handle("POST", "/sessions", h.handleOpenSession)
	handle("DELETE", "/sessions/{id}", h.handleCloseSession)
	handle("POST", "/sessions/{id}/clicks", h.handleClick)
	handle("GET", "/sessions/{id}/form", h.handleForm)
	handle("PUT", "/sessions/{id}/form/{slot}", h.handleSetFormSlot)
	handle("POST", "/sessions/{id}/form/submit", h.handleSubmitForm)
	handle("POST", "/sessions/{id}/toggle", h.handleToggle)
	handle("POST", "/sessions/{id}/menu", h.handleOpenMenu)
	handle("POST", "/sessions/{id}/menu/choose", h.handleChooseMenuItem)
	handle("DELETE", "/sessions/{id}/menu", h.handleDismissMenu)
	handle("GET", "/sessions/{id}/selection", h.handleSelection)
	handle("DELETE", "/sessions/{id}/selection", h.handleResetSelection)
	handle("PUT", "/sessions/{id}/selection/{index}/labor", h.handleSetLabor)
	handle("DELETE", "/sessions/{id}/selection/{index}", h.handleRemoveSelected)
	handle("GET", "/sessions/{id}/quote", h.handleQuote)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.APIRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps err to a status code and writes it as {"error": msg}.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, catalog.ErrUnknownCatalog),
		errors.Is(err, catalog.ErrUnknownBrand),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrSessionExpired),
		errors.Is(err, app.ErrNoStackedMarker):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrDuplicateBrand),
		errors.Is(err, catalog.ErrDuplicateSubPosition),
		errors.Is(err, catalog.ErrBaseCollision),
		errors.Is(err, diagram.ErrMenuClosed):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, catalog.ErrInvalidPosition),
		errors.Is(err, catalog.ErrInvalidPart),
		errors.Is(err, catalog.ErrIndexOutOfRange),
		errors.Is(err, catalog.ErrImageOutOfRange),
		errors.Is(err, quote.ErrInvalidLaborOption),
		errors.Is(err, quote.ErrInvalidLaborHours),
		errors.Is(err, quote.ErrIncompleteQuote):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func pathIndex(r *http.Request, name string) (int, error) {
	i, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	return i, nil
}

// imageUpload is the JSON form of an image upload. Image is a data URL or
// plain base64.
type imageUpload struct {
	Model string `json:"model,omitempty"`
	Image string `json:"image"`
}

// readImage reads an image from a multipart "image" file field or a JSON
// body. The model field is returned for model creation requests.
func readImage(w http.ResponseWriter, r *http.Request) (model string, data []byte, err error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
		if err := r.ParseMultipartForm(maxImageSize); err != nil {
			return "", nil, fmt.Errorf("%w: invalid multipart body: %v", errBadRequest, err)
		}
		model = r.FormValue("model")
		file, _, err := r.FormFile("image")
		if errors.Is(err, http.ErrMissingFile) {
			return model, nil, nil
		}
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		defer file.Close()
		data, err = io.ReadAll(file)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read image: %w", err)
		}
		return model, data, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
	var req imageUpload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", nil, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if req.Image == "" {
		return req.Model, nil, nil
	}
	if strings.HasPrefix(req.Image, "data:") {
		data, err = store.DecodeDataURL(req.Image)
	} else {
		data, err = base64.StdEncoding.DecodeString(req.Image)
	}
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return req.Model, data, nil
}
