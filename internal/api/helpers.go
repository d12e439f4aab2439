// Package api implements the HTTP API the web UI uses to manage the
// coprocessor's settings.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/photonvision/photonvision-go/internal/hardware"
	"github.com/photonvision/photonvision-go/internal/models"
)

// ConfigManager is the interface the handlers use to read and mutate the
// persisted configuration.
type ConfigManager interface {
	GetConfig() *models.Config
	SetNetworkSettings(models.NetworkConfig)
	RequestSave()
	SaveToDisk() error
	ClearConfig() error
	SaveUploadedHardwareConfig(path string) error
	SaveUploadedHardwareSettings(path string) error
	SaveUploadedNetworkConfig(path string) error
	ExportSettingsZip() (string, error)
	ImportSettingsZip(path string) error
}

// MetricsSource reports board health for the publishMetrics endpoint.
type MetricsSource interface {
	Metrics() hardware.Metrics
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	mgr     ConfigManager
	metrics MetricsSource
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*models.AppError); ok {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
}

// uploadedFile pulls the multipart file sent under the "data" key and
// checks its extension.
func uploadedFile(r *http.Request, wantExt string) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(100 << 20); err != nil {
		return nil, nil, models.ErrBadRequest("failed to parse multipart form: " + err.Error())
	}
	file, header, err := r.FormFile("data")
	if err != nil {
		return nil, nil, models.ErrBadRequest("no file was sent with the request; send it at the key 'data'")
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), wantExt) {
		file.Close()
		return nil, nil, models.ErrBadRequest(fmt.Sprintf("the uploaded file should be a %s file", wantExt))
	}
	return file, header, nil
}

// stageUpload copies an uploaded file to a uniquely named temp file and
// returns its path. The caller removes it when done.
func stageUpload(file multipart.File, originalName string) (string, error) {
	path := filepath.Join(os.TempDir(), "photonvision-upload-"+uuid.NewString()+filepath.Ext(originalName))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create temp upload: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("stage upload: %w", err)
	}
	return path, nil
}
