package logging

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RequestLog is one access log entry.
type RequestLog struct {
	Timestamp  time.Time
	Method     string
	Path       string
	Status     int
	Bytes      int
	Duration   time.Duration
	RemoteAddr string
}

// statusRecorder captures the response status and size. It forwards Flush so
// server-sent event handlers keep streaming through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// RequestLogger writes an access log line per request. 5xx responses log at
// error level, 4xx at warn, everything else at debug.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		writeRequestLog(RequestLog{
			Timestamp:  start,
			Method:     r.Method,
			Path:       r.URL.Path,
			Status:     rec.status,
			Bytes:      rec.bytes,
			Duration:   time.Since(start),
			RemoteAddr: r.RemoteAddr,
		})
	})
}

func writeRequestLog(entry RequestLog) {
	fields := []zap.Field{
		zap.String("method", entry.Method),
		zap.String("path", entry.Path),
		zap.Int("status", entry.Status),
		zap.Int("bytes", entry.Bytes),
		zap.Duration("duration", entry.Duration),
		zap.String("remote_addr", entry.RemoteAddr),
	}

	switch {
	case entry.Status >= http.StatusInternalServerError:
		L().Error("request", fields...)
	case entry.Status >= http.StatusBadRequest:
		L().Warn("request", fields...)
	default:
		L().Debug("request", fields...)
	}
}
