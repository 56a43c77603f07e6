package service

import "github.com/mrops-br/shop-cart-api/internal/domain"

// resultOf labels an operation outcome for the *.operations counters.
func resultOf(err error) string {
	if err == nil {
		return "success"
	}
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return "invalid"
	case domain.KindNotFound:
		return "not_found"
	case domain.KindUnauthenticated:
		return "unauthorized"
	default:
		return "failure"
	}
}
