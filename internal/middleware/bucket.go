package middleware

import (
	"context"
	"net/http"
)

// BucketHeader carries the namespace id on every remote-store request.
const BucketHeader = "X-Bucket-Id"

type contextKey string

const bucketContextKey contextKey = "bucketID"

// WithBucket copies the X-Bucket-Id header into the request context.
// It never rejects by itself: the list endpoint treats a missing bucket
// as an empty namespace, every other endpoint answers 401. Handlers
// decide via GetBucketFromContext.
func WithBucket(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(BucketHeader); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), bucketContextKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

// GetBucketFromContext returns the bucket id extracted by WithBucket.
func GetBucketFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(bucketContextKey).(string)
	return id, ok && id != ""
}
