package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aq2208/gorder-pos/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	bodyLogLimit = 8 * 1024
	truncMark    = "...truncated..."
	requestIDHdr = "X-Request-Id"

	IdempotencyHeader = "X-Idempotency-Key"
)

// scrubbers rewrite sensitive JSON fields before a body is logged. Keys are
// matched case-insensitively at any depth.
var scrubbers = map[string]func(any) any{
	"password":      hide,
	"authorization": hide,
	"token":         hide,
	"secret":        hide,
	"phone":         maskPhone,
	"data":          summarizeBlob, // base64 product images
}

func hide(any) any { return "***redacted***" }

// maskPhone keeps the last three digits so a cashier can still match a log
// line to a receipt.
func maskPhone(v any) any {
	s, ok := v.(string)
	if !ok || len(s) <= 3 {
		return "***"
	}
	return strings.Repeat("*", len(s)-3) + s[len(s)-3:]
}

func summarizeBlob(v any) any {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("<%d bytes>", len(s))
	}
	return hide(v)
}

func scrub(x any) any {
	switch v := x.(type) {
	case map[string]any:
		for k, val := range v {
			if f, ok := scrubbers[strings.ToLower(k)]; ok {
				v[k] = f(val)
				continue
			}
			v[k] = scrub(val)
		}
		return v
	case []any:
		for i := range v {
			v[i] = scrub(v[i])
		}
	}
	return x
}

func scrubJSON(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var m any
	if err := json.Unmarshal(raw, &m); err != nil {
		return string(raw)
	}
	b, err := json.Marshal(scrub(m))
	if err != nil {
		return string(raw)
	}
	return string(b)
}

// cappedBuffer keeps the first bodyLogLimit bytes written through it.
type cappedBuffer struct {
	bytes.Buffer
	dropped bool
}

func (b *cappedBuffer) keep(p []byte) {
	if room := bodyLogLimit - b.Len(); room < len(p) {
		b.dropped = true
		p = p[:max(room, 0)]
	}
	b.Write(p)
}

// String returns only the marker once the cap was hit; a partial JSON
// document cannot be scrubbed.
func (b *cappedBuffer) String() string {
	if b.dropped {
		return truncMark
	}
	return scrubJSON(b.Bytes())
}

func capString(s string) string {
	if len(s) > bodyLogLimit {
		return s[:bodyLogLimit] + truncMark
	}
	return s
}

type bodyLogWriter struct {
	gin.ResponseWriter
	buf *cappedBuffer
}

func (w *bodyLogWriter) Write(p []byte) (int, error) {
	w.buf.keep(p)
	return w.ResponseWriter.Write(p)
}

func isJSON(contentType string) bool {
	return strings.Contains(contentType, "application/json")
}

// Logging logs one line per request and injects a request-scoped slog.Logger
// into the gin and request contexts. JSON bodies are logged scrubbed; binary
// responses such as invoice PDFs are only sized.
func Logging(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(requestIDHdr)
		if reqID == "" {
			reqID = uuid.NewString()
			c.Request.Header.Set(requestIDHdr, reqID)
		}
		c.Header(requestIDHdr, reqID)

		l := base.With(
			"req_id", reqID,
			"method", c.Request.Method,
			"route", c.FullPath(),
			"remote", c.ClientIP(),
		)
		if key := c.GetHeader(IdempotencyHeader); key != "" {
			l = l.With("idempotency_key", key)
		}
		logging.With(c, l)

		var reqBody string
		if isJSON(c.GetHeader("Content-Type")) && c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			_ = c.Request.Body.Close()
			reqBody = capString(scrubJSON(raw))
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		}

		blw := &bodyLogWriter{ResponseWriter: c.Writer, buf: &cappedBuffer{}}
		c.Writer = blw

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"dur_ms", time.Since(start).Milliseconds(),
			"resp_bytes", c.Writer.Size(),
		}
		if id := EmployeeID(c); id != "" {
			attrs = append(attrs, "employee_id", id)
		}
		if reqBody != "" {
			attrs = append(attrs, "req_body", reqBody)
		}
		if isJSON(c.Writer.Header().Get("Content-Type")) && blw.buf.Len() > 0 {
			attrs = append(attrs, "resp_body", blw.buf.String())
		}
		if len(c.Params) > 0 {
			attrs = append(attrs, "params", c.Params)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			l.Error("http_request", attrs...)
		case status >= http.StatusBadRequest:
			l.Warn("http_request", attrs...)
		default:
			l.Info("http_request", attrs...)
		}
	}
}
