package context

import (
	stdcontext "context"
	"strings"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorTypeKey
	actorIDKey
)

// WithRequestID stores the request correlation id.
func WithRequestID(ctx stdcontext.Context, requestID string) stdcontext.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return stdcontext.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithActor stores who is performing the request, e.g. ("user", "1234").
func WithActor(ctx stdcontext.Context, actorType, actorID string) stdcontext.Context {
	ctx = stdcontext.WithValue(ctx, actorTypeKey, strings.TrimSpace(actorType))
	return stdcontext.WithValue(ctx, actorIDKey, strings.TrimSpace(actorID))
}

func ActorFromContext(ctx stdcontext.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	actorType, _ := ctx.Value(actorTypeKey).(string)
	actorID, _ := ctx.Value(actorIDKey).(string)
	return actorType, actorID
}
