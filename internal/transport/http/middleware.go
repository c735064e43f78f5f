package httptransport

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"offersync/pkg/requestcontext"
)

// Metadata stamps each request with an id, a device summary parsed from the
// User-Agent header, and the request time. Engine code reads these through
// requestcontext without touching net/http.
func Metadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())

		if ua := r.Header.Get("User-Agent"); ua != "" {
			ctx = requestcontext.WithDevice(ctx, deviceSummary(ua))
		}

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func deviceSummary(raw string) string {
	ua := useragent.New(raw)
	name, version := ua.Browser()
	summary := name
	if version != "" {
		summary += " " + version
	}
	if os := ua.OS(); os != "" {
		summary += " on " + os
	}
	if ua.Mobile() {
		summary += " (mobile)"
	}
	return summary
}

// RequestLogger logs one line per request after it completes.
func RequestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Printf("http: %s %s %d %s request_id=%s",
				r.Method, r.URL.Path, rec.status,
				time.Since(start).Round(time.Microsecond),
				requestcontext.RequestID(r.Context()))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
