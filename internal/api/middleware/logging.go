// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"time"

	"github.com/ManuGH/placecore/internal/log"
)

// AccessLog writes one Debug line per request, Warn for 5xx responses.
func AccessLog(next http.Handler) http.Handler {
	base := log.WithComponent("api")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := newStatusWriter(w)
		next.ServeHTTP(sw, r)

		logger := log.WithContext(r.Context(), base)
		evt := logger.Debug()
		if sw.statusCode >= http.StatusInternalServerError {
			evt = logger.Warn()
		}
		evt.Str("method", r.Method).
			Str(log.FieldPath, r.URL.Path).
			Int(log.FieldStatusCode, sw.statusCode).
			Int("bytes", sw.bytesWritten).
			Dur("duration", time.Since(start)).
			Msg("debug api request")
	})
}
