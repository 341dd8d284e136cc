package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/errors"
	"github.com/yorunoba/nightdesk-backend/pkg/redis"
	"github.com/yorunoba/nightdesk-backend/pkg/util"
)

// Context keys for the authenticated profile
const (
	AccountIDKey      = "account_id"
	ProfileIDKey      = "profile_id"
	StoreIDKey        = "store_id"
	RoleKey           = "role"
	EmailKey          = "email"
	AccessTokenKey    = "access_token"
	TokenExpiresAtKey = "token_expires_at"
)

type AuthMiddleware struct {
	jwtSecret string
	revoker   redis.TokenRevoker
}

// NewAuthMiddleware builds the middleware. revoker may be nil.
func NewAuthMiddleware(jwtSecret string, revoker redis.TokenRevoker) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
		revoker:   revoker,
	}
}

// Authenticate validates the access token (required)
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		var token string
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn("Invalid authorization header format", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "認証形式が正しくありません")
				c.Abort()
				return
			}
			token = parts[1]
		} else {
			// websocket clients cannot set headers
			token = c.Query("token")
			if token == "" {
				log.Warn("Missing authorization header", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
				errors.Unauthorized(c, "")
				c.Abort()
				return
			}
		}

		claims, err := util.ValidateToken(token, m.jwtSecret)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})
			if err == util.ErrExpiredToken {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenExpired, "ログインの有効期限が切れました")
			} else {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "認証トークンが無効です")
			}
			c.Abort()
			return
		}

		if claims.TokenType != util.AccessToken {
			log.Warn("Refresh token used as access token", map[string]interface{}{
				"profile_id": claims.ProfileID,
			})
			errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "認証トークンが無効です")
			c.Abort()
			return
		}

		if m.revoker != nil {
			revoked, err := m.revoker.IsRevoked(c.Request.Context(), token)
			if err != nil {
				log.Error("Failed to check token revocation", err)
				errors.InternalError(c, "")
				c.Abort()
				return
			}
			if revoked {
				errors.RespondWithError(c, http.StatusUnauthorized, errors.AuthTokenRevoked, "ログアウト済みのトークンです")
				c.Abort()
				return
			}
		}

		c.Set(AccountIDKey, claims.AccountID)
		c.Set(ProfileIDKey, claims.ProfileID)
		c.Set(StoreIDKey, claims.StoreID)
		c.Set(RoleKey, model.ProfileRole(claims.Role))
		c.Set(EmailKey, claims.Email)
		c.Set(AccessTokenKey, token)
		if claims.ExpiresAt != nil {
			c.Set(TokenExpiresAtKey, claims.ExpiresAt.Time)
		}

		log.Debug("Profile authenticated", map[string]interface{}{
			"profile_id": claims.ProfileID,
			"store_id":   claims.StoreID,
			"role":       claims.Role,
		})

		c.Next()
	}
}

// RequireRole checks the profile has one of roles
func (m *AuthMiddleware) RequireRole(roles ...model.ProfileRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		role, exists := GetRole(c)
		if !exists {
			log.Warn("Role information not found in context", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.RespondWithError(c, http.StatusForbidden, errors.AuthzRoleNotFound, "権限情報が見つかりません")
			c.Abort()
			return
		}

		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}

		profileID, _ := GetProfileID(c)
		log.Warn("Insufficient permissions", map[string]interface{}{
			"profile_id":     profileID,
			"role":           role,
			"required_roles": roles,
			"path":           c.Request.URL.Path,
		})
		errors.Forbidden(c, "")
		c.Abort()
	}
}

// RequireManager allows admin and staff.
func (m *AuthMiddleware) RequireManager() gin.HandlerFunc {
	return m.RequireRole(model.RoleAdmin, model.RoleStaff)
}

// RequireAdmin allows admin only.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return m.RequireRole(model.RoleAdmin)
}

func getUint(c *gin.Context, key string) (uint, bool) {
	v, exists := c.Get(key)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func GetAccountID(c *gin.Context) (uint, bool) {
	return getUint(c, AccountIDKey)
}

func GetProfileID(c *gin.Context) (uint, bool) {
	return getUint(c, ProfileIDKey)
}

func GetStoreID(c *gin.Context) (uint, bool) {
	return getUint(c, StoreIDKey)
}

func GetRole(c *gin.Context) (model.ProfileRole, bool) {
	v, exists := c.Get(RoleKey)
	if !exists {
		return "", false
	}
	role, ok := v.(model.ProfileRole)
	return role, ok
}

// GetAccessToken returns the raw token and its expiry.
func GetAccessToken(c *gin.Context) (string, time.Time, bool) {
	token := c.GetString(AccessTokenKey)
	if token == "" {
		return "", time.Time{}, false
	}
	expiresAt, _ := c.Get(TokenExpiresAtKey)
	t, _ := expiresAt.(time.Time)
	return token, t, true
}

// GetActor collects the caller identity set by Authenticate.
func GetActor(c *gin.Context) (model.Actor, bool) {
	storeID, ok := GetStoreID(c)
	if !ok {
		return model.Actor{}, false
	}
	profileID, ok := GetProfileID(c)
	if !ok {
		return model.Actor{}, false
	}
	role, ok := GetRole(c)
	if !ok {
		return model.Actor{}, false
	}
	return model.Actor{StoreID: storeID, ProfileID: profileID, Role: role}, true
}
