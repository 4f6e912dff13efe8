package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func authRouter(t *testing.T, roles ...string) (*gin.Engine, *Authenticator) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := zap.NewDevelopment()

	auth, err := NewAuthenticator(testSecret, 16, logger)
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}

	router := gin.New()
	router.GET("/protected", auth.Middleware(roles...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"patient_id": PatientID(c),
			"role":       Role(c),
			"caller_id":  CallerID(c),
		})
	})
	return router, auth
}

func patientClaims(patientID int64) Claims {
	return Claims{
		PatientID: patientID,
		Role:      RolePatient,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func doRequest(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	router, _ := authRouter(t, RolePatient)
	token := signToken(t, patientClaims(7), testSecret)

	w := doRequest(router, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	router, _ := authRouter(t, RolePatient)

	w := doRequest(router, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddlewareRejectsWrongSignature(t *testing.T) {
	router, _ := authRouter(t, RolePatient)
	token := signToken(t, patientClaims(7), "other-secret")

	w := doRequest(router, token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	router, _ := authRouter(t, RolePatient)
	claims := patientClaims(7)
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	token := signToken(t, claims, testSecret)

	w := doRequest(router, token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddlewareEnforcesRole(t *testing.T) {
	router, _ := authRouter(t, RoleStaff)
	token := signToken(t, patientClaims(7), testSecret)

	w := doRequest(router, token)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for wrong role", w.Code)
	}
}

func TestAuthMiddlewareCachesVerifiedTokens(t *testing.T) {
	router, auth := authRouter(t, RolePatient)
	token := signToken(t, patientClaims(7), testSecret)

	if w := doRequest(router, token); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	if _, ok := auth.cache.Get(token); !ok {
		t.Error("verified token should be cached")
	}
	if w := doRequest(router, token); w.Code != http.StatusOK {
		t.Errorf("cached request status = %d", w.Code)
	}
}

func TestAuthMiddlewareRejectsCachedTokenAfterExpiry(t *testing.T) {
	router, auth := authRouter(t, RolePatient)
	claims := patientClaims(7)
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(150 * time.Millisecond))
	token := signToken(t, claims, testSecret)

	if w := doRequest(router, token); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", w.Code)
	}
	if _, ok := auth.cache.Get(token); !ok {
		t.Fatal("verified token should be cached")
	}

	time.Sleep(250 * time.Millisecond)

	if w := doRequest(router, token); w.Code != http.StatusUnauthorized {
		t.Errorf("status after expiry = %d, want 401", w.Code)
	}
	if _, ok := auth.cache.Get(token); ok {
		t.Error("expired token should be evicted from the cache")
	}
}

func TestNewAuthenticatorRequiresSecret(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	if _, err := NewAuthenticator("", 16, logger); err == nil {
		t.Error("empty secret should be rejected")
	}
}
