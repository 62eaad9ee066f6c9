// Package diagnostics serves runtime introspection over HTTP: pipeline
// health, Prometheus metrics, host resources, and capture devices.
package diagnostics

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/audiocore/sources"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/logging"
	"github.com/jamesmcarthur-3999/taskerino-sub000/internal/observability"
)

var startTime = time.Now()

// PipelineStatus is what the embedding recorder exposes to /healthz.
type PipelineStatus struct {
	GraphState string
	Health     audiocore.HealthStats
}

// Server hosts the diagnostics endpoints.
type Server struct {
	echo    *echo.Echo
	status  func() PipelineStatus
	metrics *observability.Metrics
	devices *sources.DeviceManager
}

// NewServer creates a diagnostics server. status may be nil when no
// pipeline is running.
func NewServer(metrics *observability.Metrics, status func() PipelineStatus) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		status:  status,
		metrics: metrics,
		devices: sources.NewDeviceManager(),
	}

	e.GET("/healthz", s.handleHealth)
	e.GET("/system", s.handleSystem)
	e.GET("/devices", s.handleDevices)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(
			metrics.Registry(), promhttp.HandlerOpts{})))
	}
	return s
}

// Start serves until Shutdown. It blocks.
func (s *Server) Start(addr string) error {
	logging.ForService("diagnostics").Info("diagnostics server listening", "addr", addr)
	err := s.echo.Start(addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(ctx echo.Context) error {
	resp := map[string]any{
		"status":     "ok",
		"app_uptime": int64(time.Since(startTime).Seconds()),
	}
	if s.status != nil {
		st := s.status()
		resp["graph_state"] = st.GraphState
		resp["health"] = st.Health
		if st.GraphState == "error" {
			resp["status"] = "degraded"
			return ctx.JSON(http.StatusServiceUnavailable, resp)
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (s *Server) handleSystem(ctx echo.Context) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	resp := map[string]any{
		"os":           runtime.GOOS,
		"architecture": runtime.GOARCH,
		"hostname":     hostname,
		"num_cpu":      runtime.NumCPU(),
		"go_version":   runtime.Version(),
		"goroutines":   runtime.NumGoroutine(),
		"app_start":    startTime,
	}

	if hostInfo, err := host.Info(); err == nil {
		resp["platform"] = hostInfo.Platform
		resp["platform_version"] = hostInfo.PlatformVersion
		resp["host_uptime"] = hostInfo.Uptime
	}
	if memInfo, err := mem.VirtualMemory(); err == nil {
		resp["memory_total"] = memInfo.Total
		resp["memory_used"] = memInfo.Used
		resp["memory_usage_percent"] = memInfo.UsedPercent
	}

	return ctx.JSON(http.StatusOK, resp)
}

func (s *Server) handleDevices(ctx echo.Context) error {
	devices, err := s.devices.ListDevices()
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error": err.Error(),
		})
	}
	return ctx.JSON(http.StatusOK, devices)
}
