package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	replayTTL         = 24 * time.Hour
)

// replay is a finished response kept under an Idempotency-Key together with
// the fingerprint of the request that produced it.
type replay struct {
	Fingerprint string          `json:"fingerprint"`
	Status      int             `json:"status"`
	ContentType string          `json:"content_type"`
	Body        json.RawMessage `json:"body"`
}

// recorder tees the handler output so it can be stored after the request.
type recorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *recorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotency replays the stored response of a booking, cancel or payment
// call that repeats an Idempotency-Key. Keys are scoped to the authenticated
// user and route, so it must run after Auth. Reusing a key with a different
// body is refused with 422. A nil client disables it.
func Idempotency(client redis.Cmdable, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if client == nil || key == "" || !mutating(c.Request.Method) {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable request body", "code": "validation_error"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := c.Request.Context()
		storeKey := replayKey(UserID(c), c.Request.Method, c.FullPath(), key)
		fingerprint := fingerprintOf(body)

		prev, err := loadReplay(ctx, client, storeKey)
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			log.WithError(err).WithField("idempotency_key", key).Warn("idempotency lookup failed, serving without replay")
			c.Next()
			return
		case prev.Fingerprint != fingerprint:
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"error": "idempotency key was used with a different request body",
				"code":  "idempotency_key_reused",
			})
			return
		default:
			c.Header(replayedHeader, "true")
			c.Data(prev.Status, prev.ContentType, prev.Body)
			c.Abort()
			return
		}

		rec := &recorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		if !replayable(rec.Status()) {
			return
		}
		saved := replay{
			Fingerprint: fingerprint,
			Status:      rec.Status(),
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.buf.Bytes(),
		}
		if err := storeReplay(ctx, client, storeKey, saved); err != nil {
			log.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotent response")
		}
	}
}

func mutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// replayable excludes server errors and lock contention, which the client
// is expected to retry.
func replayable(status int) bool {
	return status >= 200 && status < 500 && status != http.StatusLocked
}

func replayKey(userID, method, route, key string) string {
	return "idempotency:" + userID + ":" + method + ":" + route + ":" + key
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func loadReplay(ctx context.Context, client redis.Cmdable, key string) (*replay, error) {
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var r replay
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func storeReplay(ctx context.Context, client redis.Cmdable, key string, r replay) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, raw, replayTTL).Err()
}
