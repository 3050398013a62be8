package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// State — состояние компонента или сервиса в целом.
type State string

const (
	StateUp   State = "up"
	StateDown State = "down"
)

// CheckFunc проверяет доступность одного компонента.
type CheckFunc func() error

// CheckResult — результат одной проверки в ответе health-эндпоинта.
type CheckResult struct {
	Name       string `json:"name"`
	State      State  `json:"state"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Report — полный ответ health-эндпоинта.
type Report struct {
	State         State         `json:"state"`
	Version       string        `json:"version,omitempty"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	Checks        []CheckResult `json:"checks,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

type probe struct {
	name string
	fn   CheckFunc
}

// Handler агрегирует проверки зависимостей и отдаёт их состояние по HTTP.
type Handler struct {
	mu      sync.RWMutex
	probes  []probe
	version string
	started time.Time
}

// NewHandler создаёт health handler без зарегистрированных проверок.
func NewHandler(version string) *Handler {
	return &Handler{
		version: version,
		started: time.Now(),
	}
}

// Register добавляет именованную проверку зависимости.
func (h *Handler) Register(name string, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes = append(h.probes, probe{name: name, fn: fn})
}

func (h *Handler) run() ([]CheckResult, State) {
	h.mu.RLock()
	probes := make([]probe, len(h.probes))
	copy(probes, h.probes)
	h.mu.RUnlock()

	overall := StateUp
	results := make([]CheckResult, 0, len(probes))
	for _, p := range probes {
		start := time.Now()
		err := p.fn()
		result := CheckResult{
			Name:       p.name,
			State:      StateUp,
			DurationMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			result.State = StateDown
			result.Error = err.Error()
			overall = StateDown
		}
		results = append(results, result)
	}
	return results, overall
}

// ServeHTTP отдаёт полный отчёт о состоянии сервиса.
func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	checks, overall := h.run()

	status := http.StatusOK
	if overall == StateDown {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Report{
		State:         overall,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Checks:        checks,
		Timestamp:     time.Now(),
	})
}

// Live — liveness probe: процесс жив, всегда 200.
func Live(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready — readiness probe: 503, если хоть одна зависимость недоступна.
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	if _, overall := h.run(); overall == StateDown {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
