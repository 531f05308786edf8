package health

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/metrics"
	"github.com/rs/zerolog"
)

// Monitor runs registered checkers at the configured interval and
// publishes their status to the component health registry
type Monitor struct {
	config   Config
	monitors map[string]*targetMonitor
	mu       sync.Mutex
	onResult func(name string, status Status)
	logger   zerolog.Logger
}

// targetMonitor tracks health check state for a single target
type targetMonitor struct {
	name    string
	checker Checker
	status  *Status
}

// NewMonitor creates a monitor with no targets
func NewMonitor(config Config) *Monitor {
	return &Monitor{
		config:   config,
		monitors: make(map[string]*targetMonitor),
		logger:   log.WithComponent("health"),
	}
}

// Add registers a checker under name. Targets must be added before Run.
func (m *Monitor) Add(name string, checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.monitors[name] = &targetMonitor{
		name:    name,
		checker: checker,
		status:  NewStatus(),
	}
	metrics.RegisterComponent(name, true, "not checked yet")
}

// OnResult registers fn to be called after every check
func (m *Monitor) OnResult(fn func(name string, status Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onResult = fn
}

// Status returns a snapshot of the status of name
func (m *Monitor) Status(name string) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	monitor, ok := m.monitors[name]
	if !ok {
		return Status{}, false
	}
	return *monitor.status, true
}

// Run checks every target immediately, then once per interval, until ctx
// is done
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	targets := make([]*targetMonitor, 0, len(m.monitors))
	for _, monitor := range m.monitors {
		targets = append(targets, monitor)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, monitor := range targets {
		wg.Add(1)
		go func(monitor *targetMonitor) {
			defer wg.Done()
			m.healthCheckLoop(ctx, monitor)
		}(monitor)
	}
	wg.Wait()
	return ctx.Err()
}

// healthCheckLoop runs health checks for a target
func (m *Monitor) healthCheckLoop(ctx context.Context, monitor *targetMonitor) {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	// Run initial check immediately
	m.runHealthCheck(ctx, monitor)

	for {
		select {
		case <-ticker.C:
			m.runHealthCheck(ctx, monitor)
		case <-ctx.Done():
			return
		}
	}
}

// runHealthCheck performs a single health check and reports the result
func (m *Monitor) runHealthCheck(ctx context.Context, monitor *targetMonitor) {
	checkCtx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	result := monitor.checker.Check(checkCtx)
	if ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	wasHealthy := monitor.status.Healthy
	monitor.status.Update(result, m.config)
	status := *monitor.status
	onResult := m.onResult
	m.mu.Unlock()

	metrics.UpdateComponent(monitor.name, status.Healthy, result.Message)
	metrics.SetComponentDetail(monitor.name, "consecutive_failures", strconv.Itoa(status.ConsecutiveFailures))
	metrics.SetComponentDetail(monitor.name, "last_duration", result.Duration.String())
	if wasHealthy != status.Healthy {
		m.logger.Warn().
			Str("target", monitor.name).
			Bool("healthy", status.Healthy).
			Int("consecutive_failures", status.ConsecutiveFailures).
			Msg(result.Message)
	}

	if onResult != nil {
		onResult(monitor.name, status)
	}
}
