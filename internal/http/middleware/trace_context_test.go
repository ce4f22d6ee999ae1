package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/evoplanner-backend/internal/platform/ctxutil"
)

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen *ctxutil.TraceData
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/ping", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerRequestID, "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil {
		t.Fatalf("trace data missing from request context")
	}
	if seen.RequestID != "req-1" {
		t.Fatalf("request id: want=%q got=%q", "req-1", seen.RequestID)
	}
	if seen.TraceID == "" {
		t.Fatalf("trace id: want generated value")
	}
	if got := rec.Header().Get(headerTraceID); got != seen.TraceID {
		t.Fatalf("trace header: want=%q got=%q", seen.TraceID, got)
	}
}

func TestAttachTraceContextRouteResource(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var fields []interface{}
	r := gin.New()
	r.GET("/api/jobs/:id", AttachTraceContext(), func(c *gin.Context) {
		fields = ctxutil.LogFields(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/abc", nil)
	req.Header.Set(headerTraceID, "trace-9")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if len(fields) != 6 {
		t.Fatalf("log fields: want=6 got=%d (%v)", len(fields), fields)
	}
	if fields[1] != "trace-9" {
		t.Fatalf("trace id: want=%q got=%v", "trace-9", fields[1])
	}
	if fields[4] != "resource_id" || fields[5] != "abc" {
		t.Fatalf("resource field: got=%v", fields[4:])
	}
}
