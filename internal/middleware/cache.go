package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey  = "response_meta"
	requestStartKey  = "response_meta_start"
	cacheHitKey      = "cache_hit"
	processingTimeMS = "processing_time_ms"
)

// WithResponseMeta attaches an empty metadata map and the request start time
// so handlers can report cache usage and latency in the envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit records whether the payload was served from the query cache.
func SetCacheHit(c *gin.Context, hit bool) {
	metaFor(c)[cacheHitKey] = hit
}

// ExtractMeta returns the metadata stored on the context, or nil.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta, _ := c.Value(responseMetaKey).(map[string]interface{})
	return meta
}

// ResponseMeta stamps processing time onto the request metadata and returns
// it for the response envelope. Without WithResponseMeta the elapsed time is 0.
func ResponseMeta(c *gin.Context) map[string]interface{} {
	meta := metaFor(c)
	var elapsed time.Duration
	if c != nil {
		if start, ok := c.Value(requestStartKey).(time.Time); ok {
			elapsed = time.Since(start)
		}
	}
	meta[processingTimeMS] = elapsed.Milliseconds()
	return meta
}

func metaFor(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := map[string]interface{}{}
	if c != nil {
		c.Set(responseMetaKey, meta)
	}
	return meta
}
