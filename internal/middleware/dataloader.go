package middleware

import (
	"context"
	"net/http"

	"github.com/flowgrid/flowgrid/internal/pipelineloader"
	"github.com/flowgrid/flowgrid/internal/repository"
)

type ctxKey string

const pipelineLoaderKey ctxKey = "pipelineLoader"

// DataLoaderMiddleware attaches a request-scoped pipeline loader to
// the context so handlers can batch lookups within one request.
func DataLoaderMiddleware(repo repository.PipelineRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := pipelineloader.NewPipelineLoader(repo)

			ctx := context.WithValue(r.Context(), pipelineLoaderKey, loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PipelineLoaderFromContext retrieves the loader from context
func PipelineLoaderFromContext(ctx context.Context) *pipelineloader.PipelineLoader {
	if l, ok := ctx.Value(pipelineLoaderKey).(*pipelineloader.PipelineLoader); ok {
		return l
	}
	return nil
}
