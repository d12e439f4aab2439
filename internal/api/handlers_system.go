package api

import (
	"net/http"
	"time"

	"github.com/photonvision/photonvision-go/internal/platform"
)

func (h *Handlers) restartProgram(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
	// Give the response a moment to flush before systemd takes us down.
	go func() {
		time.Sleep(250 * time.Millisecond)
		platform.RestartProgram()
	}()
}

func (h *Handlers) platformInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, platform.Detect())
}

func (h *Handlers) restartDevice(w http.ResponseWriter, r *http.Request) {
	if err := platform.RestartDevice(); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
