package server

import (
	"context"
	"net/http"
	"strconv"
)

// rateLimitContextKey is the context key for rate limit info
type rateLimitContextKey struct{}

// RateLimitInfo carries the admitted budget for the current request so the
// header middleware can surface it. Only the unit that actually governed
// admission is populated.
type RateLimitInfo struct {
	RequestsLimit     int64
	RequestsRemaining int64
	TokensLimit       int64
	TokensRemaining   int64
	ResetSeconds      int
}

// GetRateLimits retrieves the request's rate limit holder from context.
// Handlers fill it in after admission; it is nil when the middleware is not
// installed.
func GetRateLimits(ctx context.Context) *RateLimitInfo {
	if rl, ok := ctx.Value(rateLimitContextKey{}).(*RateLimitInfo); ok {
		return rl
	}
	return nil
}

// RateLimitHeaderMiddleware attaches an empty RateLimitInfo holder to the
// request context and writes x-ratelimit-* headers from it just before the
// first response byte, by which point the handler has populated it.
func RateLimitHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &RateLimitInfo{}
		ctx := context.WithValue(r.Context(), rateLimitContextKey{}, info)
		wrapped := &rateLimitResponseWriter{
			ResponseWriter: w,
			info:           info,
		}
		next.ServeHTTP(wrapped, r.WithContext(ctx))
	})
}

// rateLimitResponseWriter wraps ResponseWriter to write rate limit headers
// just before the first byte of the response goes out.
type rateLimitResponseWriter struct {
	http.ResponseWriter
	info         *RateLimitInfo
	wroteHeaders bool
}

func (rw *rateLimitResponseWriter) WriteHeader(code int) {
	rw.writeRateLimitHeaders()
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *rateLimitResponseWriter) Write(b []byte) (int, error) {
	rw.writeRateLimitHeaders()
	return rw.ResponseWriter.Write(b)
}

func (rw *rateLimitResponseWriter) writeRateLimitHeaders() {
	if rw.wroteHeaders {
		return
	}
	rw.wroteHeaders = true

	rl := rw.info
	h := rw.Header()
	if rl.RequestsLimit > 0 {
		h.Set("x-ratelimit-limit-requests", strconv.FormatInt(rl.RequestsLimit, 10))
		h.Set("x-ratelimit-remaining-requests", strconv.FormatInt(rl.RequestsRemaining, 10))
	}
	if rl.TokensLimit > 0 {
		h.Set("x-ratelimit-limit-tokens", strconv.FormatInt(rl.TokensLimit, 10))
		h.Set("x-ratelimit-remaining-tokens", strconv.FormatInt(rl.TokensRemaining, 10))
	}
	if rl.ResetSeconds > 0 {
		h.Set("x-ratelimit-reset", strconv.Itoa(rl.ResetSeconds))
	}
}

// Flush forwards Flush to the underlying ResponseWriter if it supports http.Flusher.
func (rw *rateLimitResponseWriter) Flush() {
	rw.writeRateLimitHeaders()
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
