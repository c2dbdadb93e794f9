package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/sheetbridge/internal/core"
)

// WithRequestMetadata adds the client IP and User-Agent to ctx for the run
// history.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr // Already rewritten by TrustedRealIP
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return core.WithRunOrigin(ctx, core.RunOrigin{IPAddress: ip, UserAgent: r.UserAgent()})
}
