package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetHealth(version string, critical ...string) {
	healthChecker = &HealthChecker{
		components: make(map[string]ComponentHealth),
		startTime:  time.Now(),
		version:    version,
		critical:   critical,
	}
}

func TestRegisterComponent(t *testing.T) {
	resetHealth("")

	RegisterComponent("mdns", true, "2 sockets")

	require.Len(t, healthChecker.components, 1)
	comp := healthChecker.components["mdns"]
	assert.True(t, comp.Healthy)
	assert.Equal(t, "2 sockets", comp.Message)
}

func TestComponentDetails(t *testing.T) {
	resetHealth("")

	SetComponentDetail("mdns", "sockets", "2")
	_, ok := GetComponent("mdns")
	assert.False(t, ok, "details do not register a component")

	RegisterComponent("mdns", true, "listening")
	SetComponentDetail("mdns", "sockets", "2")
	UpdateComponent("mdns", false, "connection error")
	SetComponentDetail("mdns", "last_error", "read failed")

	comp, ok := GetComponent("mdns")
	require.True(t, ok)
	assert.False(t, comp.Healthy)
	assert.Equal(t, map[string]string{"sockets": "2", "last_error": "read failed"}, comp.Details)

	health := GetHealth()
	assert.Equal(t, "unhealthy: mdns", health.Message)
	assert.Equal(t, "unhealthy", health.Components["mdns"].Status)
	assert.Equal(t, "connection error", health.Components["mdns"].Message)
	assert.Equal(t, "2", health.Components["mdns"].Details["sockets"])

	// registering again starts from a clean slate
	RegisterComponent("mdns", true, "listening")
	comp, _ = GetComponent("mdns")
	assert.Empty(t, comp.Details)
}

func TestUpdateComponentRegistersUnknown(t *testing.T) {
	resetHealth("")

	UpdateComponent("dns", true, "answered")
	comp, ok := GetComponent("dns")
	require.True(t, ok)
	assert.Equal(t, "dns", comp.Name)
	assert.True(t, comp.Healthy)
}

func TestGetHealth(t *testing.T) {
	tests := []struct {
		name       string
		components map[string]bool
		wantStatus string
	}{
		{name: "all healthy", components: map[string]bool{"mdns": true, "dns": true}, wantStatus: "healthy"},
		{name: "one unhealthy", components: map[string]bool{"mdns": false, "dns": true}, wantStatus: "unhealthy"},
		{name: "nothing registered", components: map[string]bool{}, wantStatus: "healthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetHealth("1.0.0")
			for name, healthy := range tt.components {
				RegisterComponent(name, healthy, "socket closed")
			}

			health := GetHealth()
			assert.Equal(t, tt.wantStatus, health.Status)
			assert.Len(t, health.Components, len(tt.components))
			assert.Equal(t, "1.0.0", health.Version)
		})
	}
}

func TestGetReadiness(t *testing.T) {
	tests := []struct {
		name        string
		critical    []string
		components  map[string]bool
		wantStatus  string
		wantMessage bool
	}{
		{
			name:       "no critical components",
			components: map[string]bool{"mdns": false},
			wantStatus: "ready",
		},
		{
			name:       "critical ready",
			critical:   []string{"mdns"},
			components: map[string]bool{"mdns": true},
			wantStatus: "ready",
		},
		{
			name:        "critical missing",
			critical:    []string{"mdns", "dns"},
			components:  map[string]bool{"mdns": true},
			wantStatus:  "not_ready",
			wantMessage: true,
		},
		{
			name:        "critical unhealthy",
			critical:    []string{"mdns"},
			components:  map[string]bool{"mdns": false},
			wantStatus:  "not_ready",
			wantMessage: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetHealth("")
			SetCriticalComponents(tt.critical...)
			for name, healthy := range tt.components {
				RegisterComponent(name, healthy, "")
			}

			readiness := GetReadiness()
			assert.Equal(t, tt.wantStatus, readiness.Status)
			if tt.wantMessage {
				assert.NotEmpty(t, readiness.Message)
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	resetHealth("dev")
	RegisterComponent("mdns", true, "")

	rec := httptest.NewRecorder()
	HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Components["mdns"].Status)

	UpdateComponent("mdns", false, "connection error")
	rec = httptest.NewRecorder()
	HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReadyHandler(t *testing.T) {
	resetHealth("", "dns")

	rec := httptest.NewRecorder()
	ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	RegisterComponent("dns", true, "")
	rec = httptest.NewRecorder()
	ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLivenessHandler(t *testing.T) {
	resetHealth("")

	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "alive", body["status"])
}
