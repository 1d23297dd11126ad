package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/feedback-api/internal/models"
	appErrors "github.com/noah-isme/feedback-api/pkg/errors"
)

type stubValidator struct{ valid string }

func (s stubValidator) ValidateToken(token string) (*models.AdminClaims, error) {
	if token != s.valid {
		return nil, appErrors.Wrap(errors.New("bad signature"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid session")
	}
	return &models.AdminClaims{Role: models.RoleAdmin}, nil
}

func newSessionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", AdminSession(stubValidator{valid: "good"}, "admin_session"), func(c *gin.Context) {
		if AdminClaims(c) == nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func TestAdminSessionAcceptsBearerAndCookie(t *testing.T) {
	r := newSessionRouter()

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "admin_session", Value: "good"})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminSessionRejects(t *testing.T) {
	r := newSessionRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

type observerSpy struct {
	paths []string
}

func (o *observerSpy) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.paths = append(o.paths, path)
}

func TestMetricsUsesRouteTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	spy := &observerSpy{}
	r := gin.New()
	r.Use(Metrics(spy))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/AB12", nil))

	require.Len(t, spy.paths, 2)
	assert.Equal(t, "/items/:id", spy.paths[0])
	assert.Equal(t, "unmatched", spy.paths[1])
}

func TestResponseMetaCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/summary", func(c *gin.Context) {
		assert.Nil(t, ExtractMeta(c))
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/summary", nil))
	assert.Equal(t, true, meta[cacheHitKey])
}
