package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/evoplanner-backend/internal/platform/apierr"
)

func TestRespondServiceErrorUsesTaxonomy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apierr.Wrap(apierr.ErrNotFound, "job %d", 1), http.StatusNotFound, "not_found"},
		{apierr.Wrap(apierr.ErrConflict, "already completed"), http.StatusConflict, "conflict"},
		{apierr.Wrap(apierr.ErrTransientInfra, "redis down"), http.StatusServiceUnavailable, "infrastructure_unavailable"},
		{apierr.New(http.StatusTeapot, "teapot", nil), http.StatusTeapot, "teapot"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		RespondServiceError(c, tc.err)

		if rec.Code != tc.status {
			t.Fatalf("status: want=%d got=%d", tc.status, rec.Code)
		}
		var env ErrorEnvelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Error.Code != tc.code {
			t.Fatalf("code: want=%q got=%q", tc.code, env.Error.Code)
		}
		if env.Error.Message == "" {
			t.Fatalf("message: want non-empty")
		}
	}
}
