package auth

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/templeobijnr/payjaro-backend/pkg/response"
)

var (
	ErrInvalidCredentials = errors.New("invalid API credentials")
	ErrTokenGeneration    = errors.New("failed to generate token")
)

// User roles carried in token claims
const (
	RoleCustomer     = "customer"
	RoleEntrepreneur = "entrepreneur"
	RoleSupplier     = "supplier"
)

// Credentials represents the API authentication credentials
type Credentials struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// TokenResponse represents the JWT token response
type TokenResponse struct {
	Token      string    `json:"jwt_token"`
	Expiration time.Time `json:"expiration"`
}

// Claims represents the JWT claims structure
type Claims struct {
	jwt.RegisteredClaims
	UserID         uint   `json:"user_id"`
	UserType       string `json:"user_type"`
	EntrepreneurID uint   `json:"entrepreneur_id,omitempty"`
	SupplierID     uint   `json:"supplier_id,omitempty"`
}

// Account binds one API credential to the identity its tokens carry.
type Account struct {
	APISecret      string
	UserID         uint
	UserType       string
	EntrepreneurID uint
	SupplierID     uint
}

// Service handles authentication and authorization operations
type Service struct {
	jwtSecret []byte
	// In a real implementation, this would be replaced with a database
	accounts map[string]Account // map[APIKey]Account
}

// NewService creates a new authentication service with the given JWT secret
func NewService(jwtSecret string) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		accounts:  make(map[string]Account),
	}
}

// GenerateToken generates a JWT token for valid API credentials.
// The token carries the account's identity with 24-hour expiration.
func (s *Service) GenerateToken(creds Credentials) (*TokenResponse, error) {
	account, ok := s.accounts[creds.APIKey]
	if !ok || account.APISecret != creds.APISecret {
		return nil, ErrInvalidCredentials
	}

	expiration := time.Now().Add(24 * time.Hour)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
		UserID:         account.UserID,
		UserType:       account.UserType,
		EntrepreneurID: account.EntrepreneurID,
		SupplierID:     account.SupplierID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, ErrTokenGeneration
	}

	return &TokenResponse{
		Token:      tokenString,
		Expiration: expiration,
	}, nil
}

// ValidateToken validates a JWT token and returns the claims.
// Verifies token signature and expiration.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// RegisterAccount registers API credentials for an identity (testing/demo purposes)
func (s *Service) RegisterAccount(apiKey string, account Account) {
	s.accounts[apiKey] = account
}

// GinHandlers contains HTTP handlers for authentication endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for authentication endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// GenerateTokenHandler handles POST requests to generate JWT tokens
// Request body should contain API credentials
func (h *GinHandlers) GenerateTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		token, err := h.service.GenerateToken(creds)
		if errors.Is(err, ErrInvalidCredentials) {
			response.Unauthorized(c, err.Error())
			return
		}
		response.Handle(c, token, err)
	}
}

// GetUserID extracts the user ID from JWT claims.
// Returns zero if not found or invalid.
func GetUserID(claims interface{}) uint {
	return uintClaim(claims, "user_id")
}

// GetEntrepreneurID extracts the entrepreneur profile ID from JWT
// claims. Zero means the caller is not an entrepreneur.
func GetEntrepreneurID(claims interface{}) uint {
	return uintClaim(claims, "entrepreneur_id")
}

// GetSupplierID extracts the supplier profile ID from JWT claims.
func GetSupplierID(claims interface{}) uint {
	return uintClaim(claims, "supplier_id")
}

// GetUserType extracts the user role from JWT claims.
func GetUserType(claims interface{}) string {
	if jwtClaims, ok := claims.(jwt.MapClaims); ok {
		if userType, ok := jwtClaims["user_type"].(string); ok {
			return userType
		}
	}
	return ""
}

func uintClaim(claims interface{}, key string) uint {
	if jwtClaims, ok := claims.(jwt.MapClaims); ok {
		if value, ok := jwtClaims[key].(float64); ok {
			return uint(value)
		}
	}
	return 0
}
