package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testIssuer = "vehicle-rental"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	r.Use(Auth(testSecret, testIssuer))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c), "admin": IsAdmin(c)})
	})
	admin := r.Group("/admin", RequireRole(RoleAdmin))
	admin.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func doGet(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_ValidToken(t *testing.T) {
	t.Parallel()

	token, err := IssueToken(testSecret, testIssuer, "user-1", RoleUser, time.Hour)
	require.NoError(t, err)

	w := doGet(newAuthRouter(), "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"user-1","admin":false}`, w.Body.String())
}

func TestAuth_Rejections(t *testing.T) {
	t.Parallel()

	expired, err := IssueToken(testSecret, testIssuer, "user-1", RoleUser, -time.Minute)
	require.NoError(t, err)
	wrongSecret, err := IssueToken("other", testIssuer, "user-1", RoleUser, time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := IssueToken(testSecret, "someone-else", "user-1", RoleUser, time.Hour)
	require.NoError(t, err)
	noSubject, err := IssueToken(testSecret, testIssuer, "", RoleUser, time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    testIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"expired", expired},
		{"wrong secret", wrongSecret},
		{"wrong issuer", wrongIssuer},
		{"no subject", noSubject},
		{"alg none", unsigned},
		{"garbage", "not-a-jwt"},
	}

	router := newAuthRouter()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := doGet(router, "/me", tt.token)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"unauthorized"`)
		})
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	router := newAuthRouter()

	userToken, err := IssueToken(testSecret, testIssuer, "user-1", RoleUser, time.Hour)
	require.NoError(t, err)
	w := doGet(router, "/admin/ping", userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken, err := IssueToken(testSecret, testIssuer, "admin-1", RoleAdmin, time.Hour)
	require.NoError(t, err)
	w = doGet(router, "/admin/ping", adminToken)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
