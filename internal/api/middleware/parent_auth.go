package middleware

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/davigonia/mr-learning/internal/utils"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

type parentClaims struct {
	jwt.RegisteredClaims
	HouseholdID string `json:"household_id"`
	Scope       string `json:"scope"` // "parent"
}

const parentScope = "parent"

// ParentTokenTTL bounds how long a PIN login stays valid; parents re-enter
// the PIN after that.
const ParentTokenTTL = 30 * time.Minute

// IssueParentToken mints the short-lived token returned by a successful PIN
// login.
func IssueParentToken(householdID string) (string, error) {
	secret := os.Getenv("PARENT_JWT_SECRET")
	if secret == "" {
		return "", utils.E(utils.CodeInternal, "Auth.IssueParentToken", "PARENT_JWT_SECRET is not set", nil)
	}

	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, parentClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   householdID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ParentTokenTTL)),
		},
		HouseholdID: householdID,
		Scope:       parentScope,
	})
	return tok.SignedString([]byte(secret))
}

// ParentAuth guards the parental-controls surface. Child Q&A endpoints never
// pass through here; only policy, history and block-log management do.
func ParentAuth() gin.HandlerFunc {
	secret := os.Getenv("PARENT_JWT_SECRET")

	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, apiError{
				Code:    utils.CodeInternal,
				Message: "PARENT_JWT_SECRET is not set",
			})
			return
		}

		auth := c.GetHeader("Authorization")
		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if !strings.HasPrefix(auth, "Bearer ") || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: "missing bearer token",
			})
			return
		}

		claims := &parentClaims{}
		tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || tok == nil || !tok.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: "invalid token",
			})
			return
		}

		if claims.Scope != parentScope || claims.HouseholdID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, apiError{
				Code:    utils.CodeForbidden,
				Message: "parent access required",
			})
			return
		}

		c.Set("household_id", claims.HouseholdID)
		c.Next()
	}
}
