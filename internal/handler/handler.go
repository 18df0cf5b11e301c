package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"neurosim/internal/auth"
	"neurosim/internal/codec"
	"neurosim/internal/domain"
	"neurosim/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxImportBytes bounds the body of an import request
const maxImportBytes = 8 << 20

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// NetworkHandler serves the authenticated owner's network
type NetworkHandler struct {
	svc    *service.NetworkService
	logger *zap.Logger
}

// NewNetworkHandler creates a new network handler
func NewNetworkHandler(svc *service.NetworkService, logger *zap.Logger) *NetworkHandler {
	return &NetworkHandler{svc: svc, logger: logger}
}

// AddNeuronRequest places a neuron. Both coordinates or neither.
type AddNeuronRequest struct {
	X *float64 `json:"x" validate:"required_with=Y"`
	Y *float64 `json:"y" validate:"required_with=X"`
}

// ConnectRequest connects id1 -> id2
type ConnectRequest struct {
	ID1 string `json:"id1" validate:"required"`
	ID2 string `json:"id2" validate:"required"`
}

// StimulateRequest names the neuron to stimulate; empty picks one at random
type StimulateRequest struct {
	NeuronID string `json:"neuron_id" validate:"omitempty,max=64"`
}

// AutoConnectRequest overrides the configured auto-connect defaults.
// Omitted fields keep the default; an explicit 0 is honoured.
type AutoConnectRequest struct {
	MaxDistance             *float64 `json:"max_distance" validate:"omitempty,gt=0"`
	MaxConnectionsPerNeuron *int     `json:"max_connections_per_neuron" validate:"omitempty,gte=0,lte=1000"`
	BaseProbability         *float64 `json:"base_probability" validate:"omitempty,gte=0,lte=1"`
}

// GetNetwork returns the owner's graph, reloaded from storage with ?reload=true
func (h *NetworkHandler) GetNetwork(w http.ResponseWriter, r *http.Request) {
	reload, _ := strconv.ParseBool(r.URL.Query().Get("reload"))

	graph, err := h.svc.GetGraph(r.Context(), auth.OwnerFromContext(r.Context()), reload)
	if err != nil {
		h.writeServiceError(w, "Failed to get network", err)
		return
	}
	h.writeJSON(w, graph, http.StatusOK)
}

// ClearNetwork deletes every neuron, connection and firing event of the owner
func (h *NetworkHandler) ClearNetwork(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Clear(r.Context(), auth.OwnerFromContext(r.Context())); err != nil {
		h.writeServiceError(w, "Failed to clear network", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddNeuron creates a neuron
func (h *NetworkHandler) AddNeuron(w http.ResponseWriter, r *http.Request) {
	var req AddNeuronRequest
	if !h.decode(w, r, &req) {
		return
	}

	n, err := h.svc.AddNeuron(r.Context(), auth.OwnerFromContext(r.Context()), domain.NewPosition(req.X, req.Y))
	if err != nil {
		h.writeServiceError(w, "Failed to add neuron", err)
		return
	}
	h.writeJSON(w, n, http.StatusCreated)
}

// GetNeuron returns one neuron
func (h *NetworkHandler) GetNeuron(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	n, err := h.svc.GetNeuron(r.Context(), auth.OwnerFromContext(r.Context()), id)
	if err != nil {
		h.writeServiceError(w, "Failed to get neuron", err)
		return
	}
	h.writeJSON(w, n, http.StatusOK)
}

// Connect creates a connection
func (h *NetworkHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.Connect(r.Context(), auth.OwnerFromContext(r.Context()), req.ID1, req.ID2); err != nil {
		h.writeServiceError(w, "Failed to connect neurons", err)
		return
	}
	h.writeJSON(w, domain.Connection{FromID: req.ID1, ToID: req.ID2}, http.StatusCreated)
}

// Stimulate runs one cascade
func (h *NetworkHandler) Stimulate(w http.ResponseWriter, r *http.Request) {
	var req StimulateRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	result, err := h.svc.Stimulate(r.Context(), auth.OwnerFromContext(r.Context()), req.NeuronID)
	if err != nil {
		h.writeServiceError(w, "Failed to stimulate", err)
		return
	}
	h.writeJSON(w, result, http.StatusOK)
}

// AutoConnect wires the network by distance
func (h *NetworkHandler) AutoConnect(w http.ResponseWriter, r *http.Request) {
	var req AutoConnectRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	created, err := h.svc.AutoConnect(r.Context(), auth.OwnerFromContext(r.Context()), domain.AutoConnectOverrides(req))
	if err != nil {
		h.writeServiceError(w, "Failed to auto-connect", err)
		return
	}
	h.writeJSON(w, map[string]int{"connections_created": created}, http.StatusOK)
}

// Report returns firing statistics
func (h *NetworkHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Report(r.Context(), auth.OwnerFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, "Failed to build report", err)
		return
	}
	h.writeJSON(w, report, http.StatusOK)
}

// Export writes the network as JSON or YAML
func (h *NetworkHandler) Export(w http.ResponseWriter, r *http.Request) {
	c, err := codec.ForFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}

	// Buffer so a failure can still produce an error status
	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), auth.OwnerFromContext(r.Context()), c, &buf); err != nil {
		h.writeServiceError(w, "Failed to export network", err)
		return
	}

	w.Header().Set("Content-Type", c.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename=network."+c.Format())
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write export", zap.Error(err))
	}
}

// Import merges a JSON or YAML document into the network
func (h *NetworkHandler) Import(w http.ResponseWriter, r *http.Request) {
	c, err := codec.ForFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.writeError(w, "Unsupported format", err.Error(), http.StatusBadRequest)
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	result, err := h.svc.Import(r.Context(), auth.OwnerFromContext(r.Context()), c, body)
	if err != nil {
		h.writeServiceError(w, "Failed to import network", err)
		return
	}
	h.writeJSON(w, result, http.StatusOK)
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, domain.ErrNeuronNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyNetwork),
		errors.Is(err, domain.ErrSelfConnection),
		errors.Is(err, domain.ErrInvalidParams),
		errors.Is(err, codec.ErrMalformed):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrNoOwner):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *NetworkHandler) writeServiceError(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
		// storage details stay in the log
		h.writeError(w, msg, "", status)
		return
	}
	h.writeError(w, msg, err.Error(), status)
}

func (h *NetworkHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	writeJSON(w, h.logger, data, statusCode)
}

func (h *NetworkHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	writeError(w, h.logger, error, details, statusCode)
}

func (h *NetworkHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeAndValidate(w, r, h.logger, dst, false)
}

func (h *NetworkHandler) decodeOptional(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeAndValidate(w, r, h.logger, dst, true)
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to encode JSON", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, error, details string, statusCode int) {
	writeJSON(w, logger, ErrorResponse{Error: error, Details: details}, statusCode)
}
