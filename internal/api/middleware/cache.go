package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/labstack/echo/v4"

	"github.com/islandman/hotel-listing/internal/api/metrics"
	"github.com/islandman/hotel-listing/internal/core/domain"
)

// bufferedWriter holds the body back so the ETag can be computed before
// anything reaches the client. Headers go straight to the real writer.
type bufferedWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *bufferedWriter) WriteHeader(code int) { w.status = code }

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

// CacheHeaders adds freshness headers and a weak ETag to successful GET and
// HEAD responses, and answers a matching If-None-Match with 304.
func CacheHeaders(policy domain.CachePolicy) echo.MiddlewareFunc {
	cacheControl := "public, max-age=" + strconv.Itoa(int(policy.MaxAge.Seconds()))
	if policy.MustRevalidate {
		cacheControl += ", must-revalidate"
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}

			res := c.Response()
			original := res.Writer
			buf := &bufferedWriter{ResponseWriter: original}
			res.Writer = buf

			err := next(c)
			res.Writer = original
			if buf.status == 0 {
				// Nothing written; the error handler renders the response.
				return err
			}

			if buf.status >= 200 && buf.status < 300 {
				etag := fmt.Sprintf(`W/"%016x"`, xxhash.Sum64(buf.body.Bytes()))
				h := res.Header()
				h.Set(echo.HeaderCacheControl, cacheControl)
				h.Set("ETag", etag)

				if etagMatches(req.Header.Get("If-None-Match"), etag) {
					metrics.CacheNotModifiedTotal.Inc()
					h.Del(echo.HeaderContentLength)
					h.Del(echo.HeaderContentType)
					res.Status = http.StatusNotModified
					original.WriteHeader(http.StatusNotModified)
					return err
				}
			}

			original.WriteHeader(buf.status)
			if _, werr := original.Write(buf.body.Bytes()); werr != nil && err == nil {
				err = werr
			}
			return err
		}
	}
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	if strings.TrimSpace(header) == "*" {
		return true
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == want {
			return true
		}
	}
	return false
}
