package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/quantdesk/quantdesk-go/internal/database"
)

var startTime = time.Now()

// HealthHandler reports service and system health.
type HealthHandler struct {
	db    *database.PostgresDB
	redis *database.RedisClient
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Services  map[string]string `json:"services"`
	System    SystemStats       `json:"system"`
}

// SystemStats carries process and host resource usage.
type SystemStats struct {
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	ProcessRSSBytes   uint64  `json:"process_rss_bytes"`
}

// NewHealthHandler creates the health handler. Either dependency may be nil
// when that backend is not configured.
func NewHealthHandler(db *database.PostgresDB, redis *database.RedisClient) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Check handles GET /health.
func (h *HealthHandler) Check(c *gin.Context) {
	services := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		if err := h.db.HealthCheck(c.Request.Context()); err != nil {
			services["database"] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			services["database"] = "healthy"
		}
	} else {
		services["database"] = "not configured"
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Services:  services,
		System:    systemStats(),
	})
}

func systemStats() SystemStats {
	stats := SystemStats{}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemoryUsedPercent = vm.UsedPercent
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil && info != nil {
			stats.ProcessRSSBytes = info.RSS
		}
	}
	return stats
}
