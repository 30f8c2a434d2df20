package proxy

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/justin8/apicache/pkg/upstream"
	"github.com/rs/zerolog"
)

// writeResponse relays a response (cached or fresh) to the client. The
// X-Cache header reports where it came from and always overrides any
// same-named header from the upstream.
func (h *Handler) writeResponse(w http.ResponseWriter, statusCode int, header http.Header, body []byte, cacheStatus string) {
	out := w.Header()
	for k, vv := range header {
		for _, v := range vv {
			out.Add(k, v)
		}
	}
	out.Set("X-Cache", cacheStatus)
	out.Set("Access-Control-Expose-Headers", "X-Cache")

	w.WriteHeader(statusCode)
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			h.logger.Debug().Err(err).Msg("Failed to write response body")
		}
	}
}

// writeError sends a JSON error envelope.
func (h *Handler) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Debug().Err(err).Msg("Failed to write error response")
	}
}

// writeFetchError maps a failed round to its status code: 504 for
// upstream timeouts, 502 for other transport failures, 500 when the
// response could not be persisted.
func (h *Handler) writeFetchError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	requestsTotal.WithLabelValues("error").Inc()

	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		if upErr.Timeout() {
			logger.Error().Err(err).Msg("Upstream timeout")
			h.writeError(w, http.StatusGatewayTimeout, "upstream timeout")
			return
		}
		logger.Error().Err(err).Msg("Upstream unreachable")
		h.writeError(w, http.StatusBadGateway, "upstream unreachable")
		return
	}

	logger.Error().Err(err).Msg("Failed to store response")
	h.writeError(w, http.StatusInternalServerError, "failed to store response")
}
