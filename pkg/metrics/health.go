package metrics

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// HealthStatus is the body of /health and /ready
type HealthStatus struct {
	Status     string                     `json:"status"` // "healthy", "unhealthy", "ready", "not_ready"
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
	Message    string                     `json:"message,omitempty"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
}

// ComponentStatus is one component as reported by /health and /ready
type ComponentStatus struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
	Updated time.Time         `json:"updated,omitempty"`
}

var (
	healthChecker = newHealthChecker()
)

// ComponentHealth tracks the health of a single component
type ComponentHealth struct {
	Name    string
	Healthy bool
	Message string
	Details map[string]string
	Updated time.Time
}

// HealthChecker is the registry behind the health endpoints
type HealthChecker struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	startTime  time.Time
	version    string
	critical   []string
}

func newHealthChecker() *HealthChecker {
	return &HealthChecker{
		components: make(map[string]ComponentHealth),
		startTime:  time.Now(),
	}
}

// SetVersion sets the version string for health responses
func SetVersion(version string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()
	healthChecker.version = version
}

// SetCriticalComponents sets the components that must be healthy for
// readiness. burrow marks "mdns" critical while listening, "dns" while
// running unicast queries and every monitored nameserver under "burrow monitor".
func SetCriticalComponents(names ...string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()
	healthChecker.critical = append([]string(nil), names...)
}

// RegisterComponent (re)registers a component, dropping its details
func RegisterComponent(name string, healthy bool, message string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()

	healthChecker.components[name] = ComponentHealth{
		Name:    name,
		Healthy: healthy,
		Message: message,
		Updated: time.Now(),
	}
}

// UpdateComponent changes the health of a component and keeps its
// details. An unknown component is registered.
func UpdateComponent(name string, healthy bool, message string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()

	comp := healthChecker.components[name]
	comp.Name = name
	comp.Healthy = healthy
	comp.Message = message
	comp.Updated = time.Now()
	healthChecker.components[name] = comp
}

// SetComponentDetail attaches a key/value to a registered component, such
// as its socket count or last error. Unknown components are ignored.
func SetComponentDetail(name, key, value string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()

	comp, ok := healthChecker.components[name]
	if !ok {
		return
	}
	details := make(map[string]string, len(comp.Details)+1)
	for k, v := range comp.Details {
		details[k] = v
	}
	details[key] = value
	comp.Details = details
	healthChecker.components[name] = comp
}

// GetComponent returns a copy of the named component
func GetComponent(name string) (ComponentHealth, bool) {
	healthChecker.mu.RLock()
	defer healthChecker.mu.RUnlock()

	comp, ok := healthChecker.components[name]
	return comp, ok
}

// GetHealth returns the overall health status. Any unhealthy component
// makes the whole process unhealthy.
func GetHealth() HealthStatus {
	healthChecker.mu.RLock()
	defer healthChecker.mu.RUnlock()

	status := "healthy"
	var failing []string
	components := make(map[string]ComponentStatus, len(healthChecker.components))

	for name, comp := range healthChecker.components {
		state := "healthy"
		if !comp.Healthy {
			state = "unhealthy"
			status = "unhealthy"
			failing = append(failing, name)
		}
		components[name] = comp.report(state)
	}

	return healthChecker.status(status, components, failingMessage(failing))
}

// GetReadiness reports ready when every critical component is registered
// and healthy
func GetReadiness() HealthStatus {
	healthChecker.mu.RLock()
	defer healthChecker.mu.RUnlock()

	status := "ready"
	message := ""
	components := make(map[string]ComponentStatus, len(healthChecker.critical))

	for _, name := range healthChecker.critical {
		comp, exists := healthChecker.components[name]
		switch {
		case !exists:
			status = "not_ready"
			message = "waiting for " + name + " initialization"
			components[name] = ComponentStatus{Status: "not_registered"}
		case !comp.Healthy:
			status = "not_ready"
			message = "waiting for " + name
			components[name] = comp.report("not_ready")
		default:
			components[name] = comp.report("ready")
		}
	}

	return healthChecker.status(status, components, message)
}

func (c ComponentHealth) report(state string) ComponentStatus {
	return ComponentStatus{
		Status:  state,
		Message: c.Message,
		Details: c.Details,
		Updated: c.Updated,
	}
}

func (h *HealthChecker) status(status string, components map[string]ComponentStatus, message string) HealthStatus {
	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: components,
		Message:    message,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	}
}

func failingMessage(names []string) string {
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return "unhealthy: " + strings.Join(names, ", ")
}

// HealthHandler returns an HTTP handler for the /health endpoint
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := GetHealth()
		writeStatus(w, health, health.Status == "healthy")
	}
}

// ReadyHandler returns an HTTP handler for the /ready endpoint
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		readiness := GetReadiness()
		writeStatus(w, readiness, readiness.Status == "ready")
	}
}

// LivenessHandler answers 200 while the process runs
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		healthChecker.mu.RLock()
		uptime := time.Since(healthChecker.startTime).Round(time.Second)
		healthChecker.mu.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
			"uptime": uptime.String(),
		})
	}
}

func writeStatus(w http.ResponseWriter, status HealthStatus, ok bool) {
	w.Header().Set("Content-Type", "application/json")

	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(status)
}
