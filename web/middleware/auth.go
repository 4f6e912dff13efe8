package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

const (
	// RolePatient identifies tokens issued to patients.
	RolePatient = "patient"
	// RoleStaff identifies tokens issued to clinical staff.
	RoleStaff = "staff"
)

// Context keys set by the auth middleware.
const (
	ctxKeyPatientID = "patientID"
	ctxKeyRole      = "role"
	ctxKeyCallerID  = "callerID"
)

// Claims carries the identity embedded in access tokens.
type Claims struct {
	PatientID int64  `json:"patient_id,omitempty"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator validates bearer tokens and caches verified identities
// so hot callers skip signature checks.
type Authenticator struct {
	secret []byte
	cache  *lru.Cache
	logger *zap.Logger
}

type cachedIdentity struct {
	patientID int64
	role      string
	subject   string
	expiresAt time.Time
}

// NewAuthenticator builds an Authenticator with an LRU cache of the
// given size. cacheSize must be positive.
func NewAuthenticator(secret string, cacheSize int, logger *zap.Logger) (*Authenticator, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create auth cache: %w", err)
	}
	return &Authenticator{
		secret: []byte(secret),
		cache:  cache,
		logger: logger,
	}, nil
}

func (a *Authenticator) verify(token string) (cachedIdentity, error) {
	// A cache hit is only valid while the token itself is; an entry
	// must never outlive the exp claim it was verified with.
	if v, ok := a.cache.Get(token); ok {
		id := v.(cachedIdentity)
		if id.expiresAt.IsZero() || time.Now().Before(id.expiresAt) {
			return id, nil
		}
		a.cache.Remove(token)
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return cachedIdentity{}, err
	}
	if !parsed.Valid {
		return cachedIdentity{}, fmt.Errorf("invalid token")
	}

	id := cachedIdentity{
		patientID: claims.PatientID,
		role:      claims.Role,
		subject:   claims.Subject,
	}
	if claims.ExpiresAt != nil {
		id.expiresAt = claims.ExpiresAt.Time
	}
	a.cache.Add(token, id)
	return id, nil
}

// Middleware authenticates the request and rejects callers whose role
// is not in allowedRoles. With no allowedRoles any valid token passes.
func (a *Authenticator) Middleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		id, err := a.verify(token)
		if err != nil {
			a.logger.Warn("Token verification failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if len(allowedRoles) > 0 {
			permitted := false
			for _, role := range allowedRoles {
				if id.role == role {
					permitted = true
					break
				}
			}
			if !permitted {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
				return
			}
		}

		c.Set(ctxKeyPatientID, id.patientID)
		c.Set(ctxKeyRole, id.role)
		caller := id.subject
		if caller == "" {
			caller = strconv.FormatInt(id.patientID, 10)
		}
		c.Set(ctxKeyCallerID, caller)
		c.Next()
	}
}

// PatientID returns the authenticated patient id, zero when absent.
func PatientID(c *gin.Context) int64 {
	if v, ok := c.Get(ctxKeyPatientID); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// Role returns the authenticated caller's role.
func Role(c *gin.Context) string {
	return c.GetString(ctxKeyRole)
}

// CallerID returns a stable identifier for the authenticated caller.
func CallerID(c *gin.Context) string {
	return c.GetString(ctxKeyCallerID)
}
