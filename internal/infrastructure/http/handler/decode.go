package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mrops-br/shop-cart-api/internal/infrastructure/http/response"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object into dst. It writes the 400 response
// itself and returns false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	if err := dec.Decode(dst); err != nil {
		logger.WarnContext(r.Context(), "Failed to decode request body",
			slog.String("error", err.Error()),
		)
		if errors.Is(err, io.EOF) {
			response.BadRequest(w, "request body is required")
			return false
		}
		response.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}
