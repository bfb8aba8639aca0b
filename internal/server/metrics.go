package server

import (
	"net/http"
	"runtime"
	"sync"
)

type serverMetrics struct {
	mu        sync.RWMutex
	total     int64
	active    int64
	extracted int64
	rejected  int64
}

type metricsSnapshot struct {
	Total     int64
	Active    int64
	Extracted int64
	Rejected  int64
}

func (m *serverMetrics) incActive() {
	m.mu.Lock()
	m.active++
	m.total++
	m.mu.Unlock()
}

func (m *serverMetrics) decActive() {
	m.mu.Lock()
	m.active--
	m.mu.Unlock()
}

func (m *serverMetrics) incExtracted() {
	m.mu.Lock()
	m.extracted++
	m.mu.Unlock()
}

func (m *serverMetrics) incRejected() {
	m.mu.Lock()
	m.rejected++
	m.mu.Unlock()
}

func (m *serverMetrics) get() metricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return metricsSnapshot{Total: m.total, Active: m.active, Extracted: m.extracted, Rejected: m.rejected}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.metrics.get()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"active":  snap.Active,
		"model":   s.opts.ModelName,
		"backend": s.extractor.Name(),
		"version": version,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	snap := s.metrics.get()

	writeJSON(w, http.StatusOK, map[string]any{
		"activeRequests":   snap.Active,
		"totalRequests":    snap.Total,
		"extractedReports": snap.Extracted,
		"rejectedUploads":  snap.Rejected,
		"goroutines":       runtime.NumGoroutine(),
		"memAllocMB":       m.Alloc / (1 << 20),
		"memSysMB":         m.Sys / (1 << 20),
	})
}
