package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/photonvision/photonvision-go/internal/config"
	"github.com/photonvision/photonvision-go/internal/models"
	"github.com/photonvision/photonvision-go/internal/network"
)

func (h *Handlers) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.GetConfig())
}

// setGeneralSettings replaces the network settings record. Malformed JSON
// is rejected outright; it never falls back to defaults, so a bad request
// cannot silently reset persisted settings.
func (h *Handlers) setGeneralSettings(w http.ResponseWriter, r *http.Request) {
	var nc models.NetworkConfig
	if err := json.NewDecoder(r.Body).Decode(&nc); err != nil {
		slog.Error("api: malformed general settings", "err", err)
		writeError(w, models.ErrBadRequest("the provided general settings were malformed"))
		return
	}

	h.mgr.SetNetworkSettings(nc)
	network.ApplySettings(nc)

	slog.Info("api: saved general settings")
	writeJSON(w, http.StatusOK, map[string]string{"status": "successfully saved general settings"})
}

func (h *Handlers) exportSettings(w http.ResponseWriter, r *http.Request) {
	slog.Info("api: exporting settings archive")

	path, err := h.mgr.ExportSettingsZip()
	if err != nil {
		writeError(w, models.ErrInternal("there was an error while exporting the settings archive"))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+config.ExportDownloadName+`"`)
	http.ServeFile(w, r, path)
}

func (h *Handlers) importSettings(w http.ResponseWriter, r *http.Request) {
	file, header, err := uploadedFile(r, ".zip")
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	staged, err := stageUpload(file, header.Filename)
	if err != nil {
		writeError(w, models.ErrInternal("there was an error while creating a temporary copy of the file"))
		return
	}
	defer os.Remove(staged)

	if err := h.mgr.ImportSettingsZip(staged); err != nil {
		slog.Error("api: settings import failed", "err", err)
		writeError(w, models.ErrInternal("there was an error while saving the uploaded settings zip"))
		return
	}
	slog.Info("api: imported settings archive", "file", header.Filename)
	writeJSON(w, http.StatusOK, map[string]string{"status": "successfully saved the uploaded settings zip"})
}

// uploadHandler builds the shared flow for the three targeted JSON
// uploads: stage the file, hand it to the manager, report the outcome.
func (h *Handlers) uploadHandler(what string, save func(path string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := uploadedFile(r, ".json")
		if err != nil {
			writeError(w, err)
			return
		}
		defer file.Close()

		staged, err := stageUpload(file, header.Filename)
		if err != nil {
			writeError(w, models.ErrInternal("there was an error while creating a temporary copy of the file"))
			return
		}
		defer os.Remove(staged)

		if err := save(staged); err != nil {
			slog.Error("api: upload rejected", "what", what, "err", err)
			writeError(w, models.ErrInternal("there was an error while saving the uploaded "+what))
			return
		}
		slog.Info("api: saved uploaded "+what, "file", header.Filename)
		writeJSON(w, http.StatusOK, map[string]string{"status": "successfully saved the uploaded " + what})
	}
}

func (h *Handlers) factoryReset(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.ClearConfig(); err != nil {
		slog.Error("api: factory reset failed", "err", err)
		writeError(w, models.ErrInternal("there was an error while clearing the configuration"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "configuration cleared"})
}

func (h *Handlers) publishMetrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		writeJSON(w, http.StatusOK, hardwareUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, h.metrics.Metrics())
}

var hardwareUnavailable = map[string]string{"status": "hardware metrics unavailable"}

func (h *Handlers) networkInterfaces(w http.ResponseWriter, r *http.Request) {
	ifaces, err := network.ActiveInterfaces()
	if err != nil {
		writeError(w, models.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, ifaces)
}
