package middleware

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// bodyCacheWriter buffers the response body so an ETag can be computed before anything is sent.
// bodyCacheWriter 缓冲响应正文，以便在发送前计算 ETag。
type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCacheWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *bodyCacheWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

// ConditionalGET tags successful GET responses with a strong ETag derived from the body and
// answers 304 Not Modified when the client already holds the same representation.
// maxAge <= 0 makes clients revalidate on every use.
func ConditionalGET(maxAge time.Duration) gin.HandlerFunc {
	cacheControl := "no-cache"
	if maxAge > 0 {
		cacheControl = "public, max-age=" + strconv.Itoa(int(maxAge.Seconds())) + ", must-revalidate"
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		original := c.Writer
		bcw := &bodyCacheWriter{body: &bytes.Buffer{}, ResponseWriter: original}
		c.Writer = bcw
		defer func() { c.Writer = original }()

		c.Next()

		body := bcw.body.Bytes()
		if c.Writer.Status() == http.StatusOK && len(body) > 0 {
			etag := fmt.Sprintf(`"%x"`, sha256.Sum256(body))
			c.Header("ETag", etag)
			c.Header("Cache-Control", cacheControl)

			if etagMatches(c.GetHeader("If-None-Match"), etag) {
				c.Status(http.StatusNotModified)
				original.WriteHeaderNow()
				return
			}
		}

		_, _ = original.Write(body)
	}
}

// etagMatches implements the weak comparison If-None-Match calls for.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
