package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/classweek-backend/internal/domain/user"
	"github.com/yungbote/classweek-backend/internal/http/response"
	"github.com/yungbote/classweek-backend/internal/platform/apierr"
	"github.com/yungbote/classweek-backend/internal/platform/ctxutil"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

// Claims are the bearer token claims issued by the identity service.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type TokenVerifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: strings.TrimSpace(issuer), leeway: 30 * time.Second}
}

// Verify parses an HS256 token and returns the caller it names.
func (v *TokenVerifier) Verify(tokenString string) (*ctxutil.RequestData, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}
	role := strings.ToLower(strings.TrimSpace(claims.Role))
	if role == "" {
		role = string(user.RoleStudent)
	}
	return &ctxutil.RequestData{TokenString: tokenString, UserID: userID, Role: role}, nil
}

// Sign issues a token for userID. Used by the token command and tests.
func (v *TokenVerifier) Sign(userID uuid.UUID, role user.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

type AuthMiddleware struct {
	log      *logger.Logger
	verifier *TokenVerifier
}

func NewAuthMiddleware(log *logger.Logger, verifier *TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), verifier: verifier}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			response.RespondError(c, apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token")))
			c.Abort()
			return
		}
		rd, err := am.verifier.Verify(tokenString)
		if err != nil {
			am.log.Debug("Rejected bearer token", "error", err)
			response.RespondError(c, apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token")))
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func (am *AuthMiddleware) RequireRole(roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil || !slices.Contains(roles, user.Role(rd.Role)) {
			response.RespondError(c, apierr.New(http.StatusForbidden, "forbidden", errors.New("forbidden")))
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Caller returns the authenticated caller attached to ctx.
func Caller(ctx context.Context) (*ctxutil.RequestData, bool) {
	rd := ctxutil.GetRequestData(ctx)
	return rd, rd != nil && rd.UserID != uuid.Nil
}
