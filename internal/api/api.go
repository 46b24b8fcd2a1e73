// Package api exposes the locomotive coordinator to the host automation
// platform as a small JSON-over-HTTP control surface.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lionchief-bridge/internal/proto"
	"lionchief-bridge/internal/train"
)

// Controller is the slice of the coordinator contract the API needs.
type Controller interface {
	Connected() bool
	Status() train.Snapshot
	DeviceInfo() train.DeviceInfo
	SetSpeed(speed int) (bool, error)
	SetDirection(forward bool) bool
	SetLights(on bool) bool
	SetHorn(on bool) bool
	SetBell(on bool) bool
	SetSmoke(on bool) bool
	SetCabLights(on bool) bool
	SetNumberBoards(on bool) bool
	SetMasterVolume(volume int) (bool, error)
	SetSoundVolume(source proto.SoundSource, volume int, pitch *int) (bool, error)
	FireCoupler() bool
	PlayAnnouncement(a proto.Announcement) bool
	SendDisconnect() bool
	RequestStatus() bool
	RequestBattery() bool
	RequestTemperature() bool
	RequestVoltage() bool
	ForceReconnect() bool
}

// Handler serves the bridge API for one coordinator.
type Handler struct {
	ctrl Controller
}

// NewHandler creates an API handler around the given coordinator.
func NewHandler(ctrl Controller) *Handler {
	return &Handler{ctrl: ctrl}
}

// Routes builds the router for the bridge API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)
	r.Get("/status", h.GetStatus)
	r.Get("/device", h.GetDevice)

	r.Post("/speed", h.SetSpeed)
	r.Post("/direction", h.SetDirection)
	r.Post("/lights", h.switchHandler(h.ctrl.SetLights))
	r.Post("/horn", h.switchHandler(h.ctrl.SetHorn))
	r.Post("/bell", h.switchHandler(h.ctrl.SetBell))
	r.Post("/smoke", h.switchHandler(h.ctrl.SetSmoke))
	r.Post("/cab-lights", h.switchHandler(h.ctrl.SetCabLights))
	r.Post("/number-boards", h.switchHandler(h.ctrl.SetNumberBoards))

	r.Post("/volume/master", h.SetMasterVolume)
	r.Post("/volume/{source}", h.SetSoundVolume)

	r.Post("/coupler", h.FireCoupler)
	r.Post("/announcement", h.PlayAnnouncement)
	r.Post("/request/{kind}", h.Request)
	r.Post("/reconnect", h.Reconnect)
	r.Post("/disconnect", h.Disconnect)

	return r
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]interface{}{
		"error": message,
		"code":  status,
	})
}

// sendResponse maps a transmission outcome to HTTP: the locomotive being
// unreachable is an upstream failure, not a caller error.
func sendResponse(w http.ResponseWriter, sent bool) {
	if !sent {
		errorResponse(w, http.StatusBadGateway, "locomotive unreachable")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "lionchief-bridge",
		"connected": h.ctrl.Connected(),
	})
}

// GetStatus returns the full session state snapshot.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.ctrl.Status())
}

// GetDevice returns the device identity projection.
func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.ctrl.DeviceInfo())
}

// SetSpeed handles POST /speed {"speed": 0-100}.
func (h *Handler) SetSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed int `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sent, err := h.ctrl.SetSpeed(req.Speed)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	sendResponse(w, sent)
}

// SetDirection handles POST /direction {"forward": bool}.
func (h *Handler) SetDirection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Forward bool `json:"forward"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sendResponse(w, h.ctrl.SetDirection(req.Forward))
}

// switchHandler adapts an on/off intent to POST {"on": bool}.
func (h *Handler) switchHandler(set func(bool) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			On bool `json:"on"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		sendResponse(w, set(req.On))
	}
}

// SetMasterVolume handles POST /volume/master {"volume": 0-7}.
func (h *Handler) SetMasterVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume int `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sent, err := h.ctrl.SetMasterVolume(req.Volume)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	sendResponse(w, sent)
}

var soundSources = map[string]proto.SoundSource{
	"horn":   proto.SourceHorn,
	"bell":   proto.SourceBell,
	"speech": proto.SourceSpeech,
	"engine": proto.SourceEngine,
}

// SetSoundVolume handles POST /volume/{source} {"volume": 0-7, "pitch": -2..2}.
// Pitch is optional.
func (h *Handler) SetSoundVolume(w http.ResponseWriter, r *http.Request) {
	source, ok := soundSources[chi.URLParam(r, "source")]
	if !ok {
		errorResponse(w, http.StatusNotFound, "unknown sound source")
		return
	}
	var req struct {
		Volume int  `json:"volume"`
		Pitch  *int `json:"pitch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sent, err := h.ctrl.SetSoundVolume(source, req.Volume, req.Pitch)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	sendResponse(w, sent)
}

// FireCoupler handles POST /coupler.
func (h *Handler) FireCoupler(w http.ResponseWriter, r *http.Request) {
	sendResponse(w, h.ctrl.FireCoupler())
}

// PlayAnnouncement handles POST /announcement {"name": "Hey There"}.
func (h *Handler) PlayAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	code, ok := proto.Announcements[req.Name]
	if !ok {
		errorResponse(w, http.StatusBadRequest, "unknown announcement")
		return
	}
	sendResponse(w, h.ctrl.PlayAnnouncement(code))
}

// Request handles POST /request/{kind} for status and telemetry refreshes.
func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	var sent bool
	switch chi.URLParam(r, "kind") {
	case "status":
		sent = h.ctrl.RequestStatus()
	case "battery":
		sent = h.ctrl.RequestBattery()
	case "temperature":
		sent = h.ctrl.RequestTemperature()
	case "voltage":
		sent = h.ctrl.RequestVoltage()
	default:
		errorResponse(w, http.StatusNotFound, "unknown request kind")
		return
	}
	sendResponse(w, sent)
}

// Reconnect handles POST /reconnect: the explicit recovery path.
func (h *Handler) Reconnect(w http.ResponseWriter, r *http.Request) {
	if !h.ctrl.ForceReconnect() {
		errorResponse(w, http.StatusBadGateway, "reconnect failed")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// Disconnect handles POST /disconnect: asks the locomotive to drop the link.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	sendResponse(w, h.ctrl.SendDisconnect())
}
