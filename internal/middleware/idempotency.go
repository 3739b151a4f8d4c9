package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyPrefix = "idempotency:"

	// ReplayedHeader marks a response served from the idempotency cache.
	ReplayedHeader = "Idempotent-Replayed"
)

// storedResponse is what a replay needs to reproduce a POST's response.
type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

type responseRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

type responseStore struct {
	client *redis.Client
	ttl    time.Duration
}

func (s responseStore) get(ctx context.Context, key string) (*storedResponse, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var resp storedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s responseStore) put(ctx context.Context, key string, resp storedResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

// IdempotencyMiddleware replays the stored response when a POST is retried
// with the same Idempotency-Key on the same path. A device's samples must be
// strictly increasing in time, so a blind retry would otherwise be rejected.
// Reusing a key with a different body is answered with 422.
func IdempotencyMiddleware(redisClient *redis.Client, ttl time.Duration) gin.HandlerFunc {
	store := responseStore{client: redisClient, ttl: ttl}

	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if c.Request.Method != http.MethodPost || key == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		fingerprint := fingerprintOf(body)

		ctx := c.Request.Context()
		storeKey := idempotencyPrefix + c.Request.URL.Path + ":" + key

		prev, err := store.get(ctx, storeKey)
		switch {
		case err == nil:
			if prev.Fingerprint != fingerprint {
				c.AbortWithStatusJSON(http.StatusUnprocessableEntity,
					gin.H{"error": "Idempotency-Key was already used with a different request body"})
				return
			}
			c.Header(ReplayedHeader, "true")
			c.Data(prev.Status, prev.ContentType, prev.Body)
			c.Abort()
			return
		case err != redis.Nil:
			// Redis unavailable: serve the request without replay protection.
			c.Next()
			return
		}

		rec := &responseRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if !cacheable(status) {
			return
		}
		_ = store.put(ctx, storeKey, storedResponse{
			Fingerprint: fingerprint,
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.buf.Bytes(),
		})
	}
}

// cacheable excludes server errors and lock contention, which a retry may resolve.
func cacheable(status int) bool {
	return status >= 200 && status < 500 && status != http.StatusConflict
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
