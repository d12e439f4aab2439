package api_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/photonvision/photonvision-go/internal/api"
	"github.com/photonvision/photonvision-go/internal/config"
	"github.com/photonvision/photonvision-go/internal/models"
)

func newTestServer(t *testing.T) (http.Handler, *config.Manager, *config.MemProvider) {
	t.Helper()
	mem := config.NewMemProvider()
	mgr := config.New(t.TempDir(), mem)
	t.Cleanup(mgr.Stop)
	return api.NewRouter(mgr, nil), mgr, mem
}

func TestGetSettings(t *testing.T) {
	router, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var cfg models.Config
	if err := json.NewDecoder(rec.Body).Decode(&cfg); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if cfg.NetworkConfig.Hostname != "photonvision" {
		t.Errorf("Hostname = %q, want the default", cfg.NetworkConfig.Hostname)
	}
}

func TestSetGeneralSettings(t *testing.T) {
	router, mgr, _ := newTestServer(t)

	body := `{"ntServerAddress":"10.49.51.2","connectionType":"STATIC","staticIp":"10.49.51.11","hostname":"pv-front","shouldManage":false}`
	req := httptest.NewRequest(http.MethodPost, "/api/settings/general", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	nc := mgr.GetConfig().NetworkConfig
	if nc.Hostname != "pv-front" || nc.StaticIP != "10.49.51.11" {
		t.Errorf("network settings not applied: %+v", nc)
	}
}

func TestSetGeneralSettingsRejectsMalformedJSON(t *testing.T) {
	router, mgr, mem := newTestServer(t)
	before := mgr.GetConfig().NetworkConfig

	req := httptest.NewRequest(http.MethodPost, "/api/settings/general", strings.NewReader(`{"hostname":`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	// A malformed request must not disturb the stored settings.
	if got := mgr.GetConfig().NetworkConfig; got != before {
		t.Errorf("malformed request mutated settings: %+v", got)
	}
	if got := mem.SaveCalls(); got != 0 {
		t.Errorf("SaveCalls() = %d after rejected request, want 0", got)
	}
}

func TestFactoryReset(t *testing.T) {
	router, mgr, mem := newTestServer(t)
	mgr.SaveModule(models.CameraConfiguration{UniqueName: "cam"}, "cam")

	req := httptest.NewRequest(http.MethodPost, "/api/settings/factoryReset", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := len(mgr.GetConfig().CameraConfigurations); got != 0 {
		t.Errorf("got %d cameras after reset, want none", got)
	}
	if got := mem.SaveCalls(); got != 1 {
		t.Errorf("SaveCalls() = %d, want the reset committed immediately", got)
	}
}

func multipartBody(t *testing.T, filename, contents string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("data", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(contents)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadNetworkConfig(t *testing.T) {
	router, mgr, _ := newTestServer(t)

	body, contentType := multipartBody(t, "networkSettings.json", `{"connectionType":"DHCP","hostname":"uploaded"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/settings/networkConfig", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	if got := mgr.GetConfig().NetworkConfig.Hostname; got != "uploaded" {
		t.Errorf("Hostname = %q, want uploaded", got)
	}
}

func TestUploadRejectsWrongExtension(t *testing.T) {
	router, _, _ := newTestServer(t)

	body, contentType := multipartBody(t, "networkSettings.txt", `{}`)
	req := httptest.NewRequest(http.MethodPost, "/api/settings/networkConfig", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadRejectsMissingFileKey(t *testing.T) {
	router, _, _ := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("wrongkey", "{}"); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/settings/hardwareConfig", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestExportSettingsHeaders(t *testing.T) {
	router, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/settings/export", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, config.ExportDownloadName) {
		t.Errorf("Content-Disposition = %q, want the export filename", got)
	}
	// A zip stream starts with the PK signature.
	if body := rec.Body.Bytes(); len(body) < 2 || body[0] != 'P' || body[1] != 'K' {
		t.Error("response body is not a zip archive")
	}
}

func TestPublishMetricsWithoutHardware(t *testing.T) {
	router, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/utils/publishMetrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unavailable") {
		t.Errorf("body = %s, want the unavailable notice", rec.Body)
	}
}

func TestPlatformInfo(t *testing.T) {
	router, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/utils/platformInfo", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var info struct {
		OSName string `json:"osName"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if info.OSName == "" {
		t.Error("platform info missing osName")
	}
}

func TestCORSPreflight(t *testing.T) {
	router, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/settings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestUploadRateLimit(t *testing.T) {
	router, _, _ := newTestServer(t)

	// The limiter admits a burst of 5; the rest of a rapid volley is
	// turned away before the handler runs.
	var limited int
	for i := 0; i < 8; i++ {
		body, contentType := multipartBody(t, "hardwareSettings.json", `{"ledBrightnessPercentage":50}`)
		req := httptest.NewRequest(http.MethodPost, "/api/settings/hardwareSettings", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited == 0 {
		t.Error("rapid upload volley was never rate limited")
	}
}
