package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/aristath/paperdesk/internal/database"
	"github.com/aristath/paperdesk/internal/di"
	"github.com/aristath/paperdesk/internal/scheduler"
)

const healthCheckTimeout = 2 * time.Second

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	cacheDB     *database.DB
	scheduler   *scheduler.Scheduler
	jobs        *di.JobInstances
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	cacheDB *database.DB,
	sched *scheduler.Scheduler,
	jobs *di.JobInstances,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		startupTime: time.Now(),
		cacheDB:     cacheDB,
		scheduler:   sched,
		jobs:        jobs,
	}
}

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	CacheError    string  `json:"cache_error,omitempty"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	ProcessRSSMB  float64 `json:"process_rss_mb"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	CacheHealthy  bool    `json:"cache_healthy"`
}

// JobsStatusResponse represents the scheduler state
type JobsStatusResponse struct {
	Jobs      []scheduler.JobStatus `json:"jobs"`
	TotalJobs int                   `json:"total_jobs"`
}

// DatabaseStatsResponse represents database statistics
type DatabaseStatsResponse struct {
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	LastChecked string  `json:"last_checked"`
	SizeMB      float64 `json:"size_mb"`
	PageCount   int64   `json:"page_count"`
	PageSize    int64   `json:"page_size"`
}

// GetSystemStatusSnapshot returns a snapshot of the current system status.
func (h *SystemHandlers) GetSystemStatusSnapshot(ctx context.Context) SystemStatusResponse {
	uptime := time.Since(h.startupTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(memStats.HeapAlloc) / 1024 / 1024,
		ProcessRSSMB:  h.getProcessRSS(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		CacheHealthy:  true,
	}

	if h.cacheDB != nil {
		if err := h.cacheDB.QuickCheck(ctx); err != nil {
			response.Status = "degraded"
			response.CacheHealthy = false
			response.CacheError = err.Error()
		}
	}

	return response
}

// HandleHealth answers liveness checks. The cache database is the only
// local dependency, so a failed integrity check marks the service degraded.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "paperdesk",
	}

	if h.cacheDB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := h.cacheDB.QuickCheck(ctx); err != nil {
			h.log.Warn().Err(err).Msg("Health check failed")
			response["status"] = "degraded"
			response["cache_error"] = err.Error()
			h.writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleSystemStatus returns comprehensive system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")
	h.writeJSON(w, http.StatusOK, h.GetSystemStatusSnapshot(r.Context()))
}

// HandleJobsStatus returns scheduler job status
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting jobs status")

	var jobs []scheduler.JobStatus
	if h.scheduler != nil {
		jobs = h.scheduler.Status()
	}
	h.writeJSON(w, http.StatusOK, JobsStatusResponse{
		Jobs:      jobs,
		TotalJobs: len(jobs),
	})
}

// HandleDatabaseStats returns market cache statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	if h.cacheDB == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Cache database not available")
		return
	}

	stats, err := h.cacheDB.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get database stats")
		h.writeError(w, http.StatusInternalServerError, "Failed to get database stats")
		return
	}

	h.writeJSON(w, http.StatusOK, DatabaseStatsResponse{
		Name:        h.cacheDB.Name(),
		Path:        h.cacheDB.Path(),
		SizeMB:      float64(stats.SizeBytes) / 1024 / 1024,
		PageCount:   stats.PageCount,
		PageSize:    stats.PageSize,
		LastChecked: time.Now().Format(time.RFC3339),
	})
}

// HandleTriggerCacheCleanup runs the cache cleanup job immediately
// POST /api/system/jobs/cache-cleanup
func (h *SystemHandlers) HandleTriggerCacheCleanup(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Jobs not registered")
		return
	}
	h.runJob(w, h.jobs.CacheCleanup)
}

// HandleTriggerQuoteWarmup runs the quote warmup job immediately
// POST /api/system/jobs/quote-warmup
func (h *SystemHandlers) HandleTriggerQuoteWarmup(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Jobs not registered")
		return
	}
	h.runJob(w, h.jobs.QuoteWarmup)
}

func (h *SystemHandlers) runJob(w http.ResponseWriter, job scheduler.Job) {
	if job == nil || h.scheduler == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Job not registered")
		return
	}

	if err := h.scheduler.RunNow(job); err != nil {
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status":  "error",
			"job":     job.Name(),
			"message": err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"job":     job.Name(),
		"message": "Job completed",
	})
}

// getSystemStats calculates CPU and RAM usage percentages.
// The CPU sample is kept short so the endpoint answers quickly.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// getProcessRSS returns the resident set size of this process in MB
func (h *SystemHandlers) getProcessRSS() float64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to open own process")
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get process memory")
		return 0
	}
	return float64(info.RSS) / 1024 / 1024
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *SystemHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
