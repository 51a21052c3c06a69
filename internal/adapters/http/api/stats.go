package api

import (
	"net/http"
	"runtime"

	"github.com/okian/armpredict/pkg/metrics"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests. Runtime figures are added to the
// service's own statistics and mirrored into the system gauges.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := h.statsProvider.GetStats()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	goroutines := runtime.NumGoroutine()
	metrics.UpdateSystemMemoryUsage(mem.HeapAlloc)
	metrics.UpdateSystemGoroutineCount(goroutines)
	if mem.NumGC > 0 {
		metrics.RecordSystemGCPauseTime(float64(mem.PauseTotalNs) / float64(mem.NumGC) / 1e6)
	}
	stats["goroutines"] = goroutines
	stats["heapBytes"] = mem.HeapAlloc

	writeJSON(w, http.StatusOK, stats)
}
