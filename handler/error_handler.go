package handler

import (
	"errors"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"task-manager-api/common"
	"task-manager-api/config"
	"task-manager-api/service"
)

// ErrorHandlingMiddleware adapts a handler that returns *common.AppError to http.HandlerFunc.
func ErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) *common.AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			err.Send(w)
		}
	}
}

// mapServiceError converts service sentinels into HTTP errors. fallback is
// the client-facing message for unexpected failures.
func mapServiceError(err error, fallback string) *common.AppError {
	switch {
	case errors.Is(err, service.ErrValidation):
		return common.NewAppError(http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, service.ErrInvalidCredentials):
		return common.NewAppError(http.StatusUnauthorized, service.ErrInvalidCredentials.Error(), err)
	case errors.Is(err, service.ErrTokenExpired):
		return common.NewAppError(http.StatusUnauthorized, service.ErrTokenExpired.Error(), err)
	case errors.Is(err, service.ErrTokenInvalid), errors.Is(err, service.ErrTokenNotActive):
		return common.NewAppError(http.StatusUnauthorized, "Invalid or expired token", err)
	case errors.Is(err, service.ErrLastAdmin):
		return common.NewAppError(http.StatusForbidden, service.ErrLastAdmin.Error(), err)
	case errors.Is(err, service.ErrNotFound):
		return common.NewAppError(http.StatusNotFound, "Resource not found", err)
	case errors.Is(err, service.ErrConflict):
		return common.NewAppError(http.StatusConflict, service.ErrConflict.Error(), err)
	default:
		return common.NewAppError(http.StatusInternalServerError, fallback, err)
	}
}

// TrustedProxies are the peers allowed to report the client address through X-Forwarded-For.
type TrustedProxies []netip.Prefix

func NewTrustedProxies(entries []string) (TrustedProxies, error) {
	proxies := make(TrustedProxies, 0, len(entries))
	for _, e := range entries {
		p, err := config.ParseProxy(e)
		if err != nil {
			return nil, err
		}
		proxies = append(proxies, p)
	}
	return proxies, nil
}

func (p TrustedProxies) trusts(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range p {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the peer address. X-Forwarded-For is only consulted when
// the peer is a trusted proxy; it is read right to left and the first hop not
// in the trusted set is the client.
func (p TrustedProxies) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !p.trusts(peer) {
		return host
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	client := host
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		client = hop.Unmap().String()
		if !p.trusts(hop) {
			break
		}
	}
	return client
}
