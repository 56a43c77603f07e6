package response

import (
	"encoding/json"
	"net/http"

	"github.com/mrops-br/shop-cart-api/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// StatusOf maps a domain error kind to its HTTP status.
func StatusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error sends the error body for err. Storage failures never expose their
// underlying message.
func Error(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	message := err.Error()
	if kind == domain.KindStorage {
		message = "internal server error"
	}

	JSON(w, StatusOf(err), ErrorResponse{
		Error:   kind.String(),
		Message: message,
	})
}

// BadRequest reports a malformed request body.
func BadRequest(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   domain.KindValidation.String(),
		Message: message,
	})
}
