package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"
)

func (s *Server) withConcurrencyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.requestSem != nil {
			if !s.requestSem.TryAcquire(1) {
				writeErr(w, http.StatusServiceUnavailable, "Service at capacity")
				return
			}
			defer s.requestSem.Release(1)
		}

		s.metrics.incActive()
		defer s.metrics.decActive()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.limiters == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiters.allow(getClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeErr(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			s.logger.Error("handler panic",
				"path", sanitizeLogString(r.URL.Path), "panic", rec, "stack", string(debug.Stack()))
			writeErr(w, http.StatusInternalServerError, "Internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", sanitizeLogString(r.URL.Path),
			"status", sw.code(),
			"duration", time.Since(start),
		)
	})
}

// statusWriter remembers the first status code written.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// RunHousekeeping logs process stats and clears rate limiter state every
// CleanupInterval until ctx is done.
func (s *Server) RunHousekeeping(ctx context.Context) {
	interval := s.opts.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.housekeep()
		}
	}
}

func (s *Server) housekeep() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	snap := s.metrics.get()

	dropped := 0
	if s.limiters != nil {
		dropped = s.limiters.reset()
	}
	s.logger.Info("stats",
		"active", snap.Active,
		"total", snap.Total,
		"extracted", snap.Extracted,
		"rejected", snap.Rejected,
		"goroutines", runtime.NumGoroutine(),
		"mem_mb", mem.Alloc>>20,
		"limiters_dropped", dropped,
	)
}

// sanitizeError trims error text for clients and hides temp paths.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return truncate(strings.ReplaceAll(err.Error(), os.TempDir(), "[tmp]"), 300)
}

func sanitizeLogString(s string) string {
	s = strings.NewReplacer("\n", "", "\r", "").Replace(s)
	return truncate(s, 200)
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
