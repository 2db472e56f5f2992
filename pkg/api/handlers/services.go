package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/pushstore/pkg/service"
)

// ServicesHandler reports the status of registered services.
type ServicesHandler struct {
	registry Registry
}

// NewServicesHandler creates a services handler.
func NewServicesHandler(registry Registry) *ServicesHandler {
	return &ServicesHandler{registry: registry}
}

// List handles GET /services.
func (h *ServicesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse("registry not initialized"))
		return
	}

	ctrls := h.registry.Controllers()
	out := make([]service.Status, 0, len(ctrls))
	for _, c := range ctrls {
		out = append(out, c.Status())
	}
	writeJSON(w, http.StatusOK, okResponse(out))
}

// Get handles GET /services/{name}.
func (h *ServicesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse("registry not initialized"))
		return
	}

	name := chi.URLParam(r, "name")
	ctrl, ok := h.registry.Lookup(service.ParseName(name))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse("service not found: "+name))
		return
	}
	writeJSON(w, http.StatusOK, okResponse(ctrl.Status()))
}
