package engine

import (
	"net"
	"strings"

	"github.com/valyala/fasthttp"
)

// RealIP extracts the client IP the way the access log should report
// it: X-Forwarded-For, then X-Real-IP, then CF-Connecting-IP, falling
// back to the raw connection's remote address.
func RealIP(ctx *fasthttp.RequestCtx) string {
	if xff := string(ctx.Request.Header.Peek("X-Forwarded-For")); xff != "" {
		if ips := strings.Split(xff, ","); len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := string(ctx.Request.Header.Peek("X-Real-IP")); xri != "" {
		return strings.TrimSpace(xri)
	}
	if cf := string(ctx.Request.Header.Peek("CF-Connecting-IP")); cf != "" {
		return strings.TrimSpace(cf)
	}
	remote := ctx.RemoteAddr()
	if remote == nil {
		return ""
	}
	if tcp, ok := remote.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	return remote.String()
}
