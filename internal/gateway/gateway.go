// Package gateway holds payment gateway adapters for service.Gateway.
package gateway

import (
	"fmt"
	"net/http"

	"vehiclerental/internal/service"
)

// classifyTransport wraps an http.Client failure as a network error.
func classifyTransport(err error) error {
	return fmt.Errorf("%w: %v", service.ErrNetwork, err)
}

// classifyStatus maps a non-2xx HTTP status code to the service taxonomy.
func classifyStatus(code int, detail string) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: gateway returned %d: %s", service.ErrUnauthorized, code, detail)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: gateway returned %d: %s", service.ErrNotFound, code, detail)
	case code >= 500:
		return fmt.Errorf("%w: gateway returned %d: %s", service.ErrServer, code, detail)
	case code >= 400:
		return fmt.Errorf("gateway rejected request with %d: %s", code, detail)
	}
	return nil
}
