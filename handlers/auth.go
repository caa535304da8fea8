package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Cherishclears/library-backend/config"
	"github.com/Cherishclears/library-backend/models"
	"github.com/Cherishclears/library-backend/services"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const currentUserKey = "user"

var (
	jwtSecret = []byte(config.DefaultJWTSecret)
	jwtTTL    = 24 * time.Hour
)

func setJWT(secret string, ttl time.Duration) {
	if secret != "" {
		jwtSecret = []byte(secret)
	}
	if ttl > 0 {
		jwtTTL = ttl
	}
}

// Claims carried in the bearer token
type Claims struct {
	UserID   uint        `json:"uid"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// IssueToken signs a token for the user
func IssueToken(user models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
}

func parseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Login handles user authentication
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := userService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		log.Warn().Str("username", req.Username).Str("ip", c.ClientIP()).Err(err).Msg("login failed")
		respondError(c, err)
		return
	}

	token, err := IssueToken(*user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token, User: *user})
}

// Register creates a reader account and logs it in
func Register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := userService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Info().Str("username", user.Username).Msg("👤 User registered")
	statsService.Invalidate(c.Request.Context())

	token, err := IssueToken(*user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, AuthResponse{Token: token, User: *user})
}

// CheckAuth reports whether the caller sent a valid token
func CheckAuth(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": user})
}

// AuthMiddleware protects routes. The account is reloaded on every request so
// disabled or deleted users lose access before their token expires.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		user, err := authenticateToken(c, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// OptionalAuth loads the user when a valid token is present and never rejects
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "); token != "" {
			if user, err := authenticateToken(c, token); err == nil {
				c.Set(currentUserKey, user)
			}
		}
		c.Next()
	}
}

// RequireRole rejects users without one of the roles. Use after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

func authenticateToken(c *gin.Context, tokenString string) (*models.User, error) {
	claims, err := parseToken(tokenString)
	if err != nil {
		return nil, errors.New("Invalid token")
	}

	user, err := userService.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		return nil, errors.New("Invalid token")
	}
	if user.Status != models.UserStatusActive {
		return nil, errors.New("Account disabled")
	}
	return user, nil
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// canAccessUser allows admins and the user themselves
func canAccessUser(c *gin.Context, userID uint) bool {
	user := currentUser(c)
	return user != nil && (user.IsAdmin() || user.ID == userID)
}
