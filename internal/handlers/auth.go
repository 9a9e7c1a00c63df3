package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
	"github.com/kashsbd/awlam-backend/internal/apperrors"
	"github.com/kashsbd/awlam-backend/internal/logger"
	"github.com/kashsbd/awlam-backend/internal/models"
	"github.com/kashsbd/awlam-backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// TokenVerifier verifies Firebase ID tokens. *auth.Client implements it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	firebaseAuth   TokenVerifier
	jwtSecret      string
	jwtExpiry      time.Duration
	index          UserIndexer
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil, in
// which case Firebase sign-in is unavailable.
func NewAuthHandler(userRepo repositories.UserRepository, firebaseAuth TokenVerifier, jwtSecret string, jwtExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		firebaseAuth:   firebaseAuth,
		jwtSecret:      jwtSecret,
		jwtExpiry:      jwtExpiry,
	}
}

// WithUserIndex makes new accounts searchable by name through idx.
func (h *AuthHandler) WithUserIndex(idx UserIndexer) *AuthHandler {
	h.index = idx
	return h
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.POST("/firebase-login", h.FirebaseLogin)
}

// Signup handles local user registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.BadRequest("Invalid request payload")
	}
	req.Email = normalizeEmail(req.Email)
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	_, err := h.userRepository.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return apperrors.Conflict("User with this email already registered")
	case !errors.Is(err, repositories.ErrNotFound):
		return apperrors.Internal(err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal(err)
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashedPassword),
		Country:  req.Country,
		City:     req.City,
		Gender:   req.Gender,
	}
	if err := h.userRepository.Create(ctx, user); err != nil {
		return apperrors.Internal(err)
	}
	h.indexUser(ctx, user)

	token, err := h.generateJWT(user)
	if err != nil {
		return apperrors.Internal(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"token": token, "user": user})
}

// Login handles local user authentication with email and password and
// registers the device for push notifications
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.BadRequest("Invalid request payload")
	}
	req.Email = normalizeEmail(req.Email)
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.Unauthorized("Invalid email or password")
		}
		return apperrors.Internal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return apperrors.Unauthorized("Invalid email or password")
	}

	return h.signIn(c, user, req.PlayerID)
}

// FirebaseLogin handles Firebase ID token verification and issues a local JWT
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase sign-in is not configured")
	}

	var req models.FirebaseLoginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.BadRequest("Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	token, err := h.firebaseAuth.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return apperrors.Unauthorized("Invalid Firebase ID token")
	}

	user, err := h.firebaseUser(ctx, token)
	if err != nil {
		return apperrors.Internal(err)
	}
	return h.signIn(c, user, req.PlayerID)
}

// firebaseUser resolves the user of a verified token: by Firebase UID, then
// by email (linking the account), else a new user.
func (h *AuthHandler) firebaseUser(ctx context.Context, token *auth.Token) (*models.User, error) {
	user, err := h.userRepository.FindByFirebaseUID(ctx, token.UID)
	if err == nil || !errors.Is(err, repositories.ErrNotFound) {
		return user, err
	}

	email, _ := token.Claims["email"].(string)
	name, _ := token.Claims["name"].(string)
	email = normalizeEmail(email)

	if email != "" {
		user, err = h.userRepository.FindByEmail(ctx, email)
		if err == nil {
			if err := h.userRepository.LinkFirebaseUID(ctx, user.ID, token.UID); err != nil {
				return nil, err
			}
			user.FirebaseUID = token.UID
			return user, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}

	user = &models.User{Name: name, Email: email, FirebaseUID: token.UID}
	if err := h.userRepository.Create(ctx, user); err != nil {
		return nil, err
	}
	h.indexUser(ctx, user)
	return user, nil
}

// indexUser logs failures instead of failing the request.
func (h *AuthHandler) indexUser(ctx context.Context, user *models.User) {
	if h.index == nil {
		return
	}
	if err := h.index.IndexUser(ctx, user); err != nil {
		logger.WarnWithFields("failed to index user", err, logger.WithUserID(user.ID.Hex()))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// signIn registers playerID as active and answers with a fresh token.
func (h *AuthHandler) signIn(c echo.Context, user *models.User, playerID string) error {
	if playerID != "" {
		if err := h.userRepository.UpsertPlayerID(c.Request().Context(), user.ID, playerID, models.StatusActive); err != nil {
			logger.WarnWithFields("failed to register player id", err, logger.WithUserID(user.ID.Hex()))
		}
	}

	token, err := h.generateJWT(user)
	if err != nil {
		return apperrors.Internal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token, "user": user})
}

// generateJWT generates a JWT token for a given user
func (h *AuthHandler) generateJWT(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(h.jwtExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
