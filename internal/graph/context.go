package graph

import (
	"context"
	"net/http"
)

type ctxKey struct{}

// withResponseWriter lets resolvers set cookies on the HTTP response.
func withResponseWriter(ctx context.Context, w http.ResponseWriter) context.Context {
	return context.WithValue(ctx, ctxKey{}, w)
}

func responseWriter(ctx context.Context) http.ResponseWriter {
	w, _ := ctx.Value(ctxKey{}).(http.ResponseWriter)
	return w
}
