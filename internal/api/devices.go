package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-media/internal/media"
)

// maxQueryParamLen limits path and query parameter length.
const maxQueryParamLen = 100

// deviceResponse is a registered device with its current state.
type deviceResponse struct {
	*media.Descriptor
	State media.State `json:"state"`
}

func newDeviceResponse(n *media.Node) deviceResponse {
	return deviceResponse{Descriptor: n.Descriptor(), State: n.State()}
}

// handleListDevices returns all registered media devices ordered by ID.
//
// Query parameters:
//   - type: filter by device type (e.g. "TV" or "action.devices.types.TV")
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	var filter media.DeviceType
	if typeStr := r.URL.Query().Get("type"); typeStr != "" {
		if len(typeStr) > maxQueryParamLen {
			writeBadRequest(w, "type exceeds maximum length")
			return
		}
		t, ok := media.ParseDeviceType(typeStr)
		if !ok {
			writeBadRequest(w, "unknown device type")
			return
		}
		filter = t
	}

	nodes := s.registry.List()
	devices := make([]deviceResponse, 0, len(nodes))
	for _, n := range nodes {
		resp := newDeviceResponse(n)
		if filter != "" && resp.DeviceType() != filter {
			continue
		}
		devices = append(devices, resp)
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	node, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newDeviceResponse(node))
}

// handleGetDeviceState returns the current state of a device.
func (s *Server) handleGetDeviceState(w http.ResponseWriter, r *http.Request) {
	node, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": node.ID(),
		"state":     node.State(),
	})
}

// handleDeleteDevice stops a device and deletes its recorded history.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return
	}

	if err := s.registry.Remove(r.Context(), id); err != nil {
		if errors.Is(err, media.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("device removal incomplete", "device_id", id, "error", err)
		writeInternalError(w, "failed to remove device data")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// lookupDevice resolves the {id} URL parameter, writing the error response
// itself when the device cannot be returned.
func (s *Server) lookupDevice(w http.ResponseWriter, r *http.Request) (*media.Node, bool) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return nil, false
	}

	node, err := s.registry.Get(id)
	if err != nil {
		if errors.Is(err, media.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return nil, false
		}
		writeInternalError(w, "failed to get device")
		return nil, false
	}
	return node, true
}
