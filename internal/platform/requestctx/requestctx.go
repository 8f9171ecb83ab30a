package requestctx

import "context"

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	ipKey        ctxKey = "client_ip"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey, ip)
}

func GetIP(ctx context.Context) string {
	if value, ok := ctx.Value(ipKey).(string); ok {
		return value
	}
	return ""
}
