package middlewares_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"bitbucket.org/mmdatafocus/budget_backend/middlewares"
	"bitbucket.org/mmdatafocus/budget_backend/utils"
	"github.com/gin-gonic/gin"
)

const testBusinessId = "9f3a1c2e-5b4d-4e6f-8a7b-0c1d2e3f4a5b"

func runBusinessContext(t *testing.T, headers map[string]string) (int, context.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var captured context.Context
	r := gin.New()
	r.Use(middlewares.BusinessContextMiddleware())
	r.GET("/probe-target", func(c *gin.Context) {
		captured = c.Request.Context()
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe-target", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code, captured
}

func TestBusinessContextRequiresHeader(t *testing.T) {
	if code, _ := runBusinessContext(t, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 without X-Business-Id, got %d", code)
	}
	if code, _ := runBusinessContext(t, map[string]string{"X-Business-Id": "not-a-uuid"}); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed X-Business-Id, got %d", code)
	}
}

func TestBusinessContextSetsIdentity(t *testing.T) {
	code, ctx := runBusinessContext(t, map[string]string{
		"X-Business-Id": testBusinessId,
		"X-User-Id":     "42",
		"X-User-Name":   "aye chan",
	})
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId != testBusinessId {
		t.Fatalf("business id not in context: %q", businessId)
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId != 42 {
		t.Fatalf("user id not in context: %d", userId)
	}
	userName, ok := utils.GetUserNameFromContext(ctx)
	if !ok || userName != "aye chan" {
		t.Fatalf("user name not in context: %q", userName)
	}
}

func TestBusinessContextIdentityOptional(t *testing.T) {
	code, ctx := runBusinessContext(t, map[string]string{
		"X-Business-Id": testBusinessId,
		"X-User-Id":     "not-a-number",
	})
	if code != http.StatusOK {
		t.Fatalf("identity headers are optional, got %d", code)
	}
	if _, ok := utils.GetUserIdFromContext(ctx); ok {
		t.Fatal("malformed X-User-Id must be ignored")
	}
	if _, ok := utils.GetUserNameFromContext(ctx); ok {
		t.Fatal("absent X-User-Name must not land in context")
	}
}
