package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/hadiscovery/internal/discovery"
	"github.com/nerrad567/hadiscovery/internal/hass"
)

// RuntimeStatus is the response of GET /runtime.
type RuntimeStatus struct {
	State         string     `json:"state"`
	Running       bool       `json:"running"`
	LastError     string     `json:"last_error,omitempty"`
	Runs          int        `json:"runs"`
	LastDiscovery *time.Time `json:"last_discovery,omitempty"`
	HubOnline     *bool      `json:"hub_online,omitempty"`
}

// DeviceView is the API representation of a device.
type DeviceView struct {
	Name         string       `json:"name"`
	Identifiers  []string     `json:"identifiers"`
	SerialNumber string       `json:"serial_number,omitempty"`
	Entities     []EntityView `json:"entities"`
}

// EntityView is the API representation of an entity.
type EntityView struct {
	Name       string `json:"name"`
	Component  string `json:"component"`
	Identifier string `json:"identifier"`
	Schedules  int    `json:"schedules"`
}

// DiscoveryView is one composed discovery document.
type DiscoveryView struct {
	Topic    string         `json:"topic"`
	Device   string         `json:"device"`
	Document map[string]any `json:"document"`
}

// runtimeStatus combines the active run, if any, with the recorded events.
// A finished run is no longer registered on the source, so its outcome
// comes from the events.
func (s *Server) runtimeStatus() RuntimeStatus {
	snap := s.events.snapshot()
	status := RuntimeStatus{
		State:     hass.StateIdle.String(),
		Runs:      snap.runs,
		HubOnline: snap.hubOnline,
	}
	if !snap.lastPublish.IsZero() {
		t := snap.lastPublish.UTC()
		status.LastDiscovery = &t
	}

	if rt := s.source.Runtime(); rt != nil {
		status.State = rt.State().String()
		status.Running = rt.IsRunning()
		status.LastError = errString(rt.LastError())
		return status
	}
	if snap.stopped {
		status.State = hass.StateStopped.String()
		status.LastError = errString(snap.lastErr)
	}
	return status
}

// handleRuntime returns the run state.
func (s *Server) handleRuntime(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.runtimeStatus())
}

// handleListDevices returns every registered device.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.source.Devices()
	views := make([]DeviceView, 0, len(devices))
	for _, d := range devices {
		views = append(views, deviceView(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": views,
		"count":   len(views),
	})
}

// handleGetDevice returns the device carrying the identifier in the path.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, d := range s.source.Devices() {
		if slices.Contains(d.Identifiers(), id) {
			writeJSON(w, http.StatusOK, deviceView(d))
			return
		}
	}
	writeError(w, http.StatusNotFound, "device not found")
}

// handleDiscovery composes and returns the discovery documents.
func (s *Server) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	msgs, err := s.source.Compose()
	if err != nil {
		s.logger.Error("composing discovery documents", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]DiscoveryView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, DiscoveryView{
			Topic:    m.Topic,
			Device:   m.DeviceName,
			Document: m.Document,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": views,
		"count":     len(views),
	})
}

func deviceView(d *discovery.Device) DeviceView {
	entities := d.Entities()
	view := DeviceView{
		Name:         d.Name(),
		Identifiers:  d.Identifiers(),
		SerialNumber: d.SerialNumber(),
		Entities:     make([]EntityView, 0, len(entities)),
	}
	for _, e := range entities {
		view.Entities = append(view.Entities, EntityView{
			Name:       e.Name(),
			Component:  string(e.Component()),
			Identifier: e.Identifier(),
			Schedules:  len(e.Schedules()),
		})
	}
	return view
}
