package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"civicreport-be/middlewares"
	"civicreport-be/models"
	"civicreport-be/repository"
	authUtils "civicreport-be/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CookieOptions controls the auth_token cookie set on login.
type CookieOptions struct {
	Domain     string
	Production bool
}

// AuthController registers users and issues session tokens.
type AuthController struct {
	users   repository.UserRepository
	tokens  *authUtils.TokenIssuer
	cookie  CookieOptions
	logger  *slog.Logger
	timeout time.Duration
}

// NewAuthController wires the auth handlers to the user store and token issuer.
func NewAuthController(users repository.UserRepository, tokens *authUtils.TokenIssuer, cookie CookieOptions, logger *slog.Logger, timeout time.Duration) *AuthController {
	registerValidators()
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AuthController{users: users, tokens: tokens, cookie: cookie, logger: logger, timeout: timeout}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone" binding:"omitempty,max=20"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterUser creates a citizen account and signs the user in.
func (ac *AuthController) RegisterUser(c *gin.Context) {
	var input registerRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, ac.logger, bindingError(err))
		return
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	user := models.User{
		Name:      strings.TrimSpace(input.Name),
		Email:     input.Email,
		Password:  input.Password,
		Phone:     strings.TrimSpace(input.Phone),
		Role:      models.RoleCitizen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.HashPassword(); err != nil {
		respondError(c, ac.logger, err)
		return
	}

	ctx, cancel := ac.context(c)
	defer cancel()

	if err := ac.users.Create(ctx, &user); err != nil {
		respondError(c, ac.logger, err)
		return
	}

	token, err := ac.signIn(c, &user)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

// LoginUser checks credentials and returns a token, also set as an
// httpOnly cookie for browser clients.
func (ac *AuthController) LoginUser(c *gin.Context) {
	var input loginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, ac.logger, bindingError(err))
		return
	}

	ctx, cancel := ac.context(c)
	defer cancel()

	user, err := ac.users.GetByEmail(ctx, input.Email)
	if errors.Is(err, models.ErrNotFound) || (err == nil && !user.ComparePassword(input.Password)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	token, err := ac.signIn(c, user)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// GetMe returns the authenticated user's profile.
func (ac *AuthController) GetMe(c *gin.Context) {
	userID, _, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx, cancel := ac.context(c)
	defer cancel()

	user, err := ac.users.GetByID(ctx, userID.Hex())
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// LogoutUser clears the auth_token cookie. Bearer tokens stay valid until
// they expire.
func (ac *AuthController) LogoutUser(c *gin.Context) {
	ac.setCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (ac *AuthController) signIn(c *gin.Context, user *models.User) (string, error) {
	if user.ID == primitive.NilObjectID {
		return "", errors.New("auth: user has no id")
	}
	token, err := ac.tokens.Generate(user.ID.Hex(), user.Name)
	if err != nil {
		return "", err
	}
	ac.setCookie(c, token, int(ac.tokens.TTL().Seconds()))
	return token, nil
}

func (ac *AuthController) setCookie(c *gin.Context, value string, maxAge int) {
	domain := ac.cookie.Domain
	sameSite := http.SameSiteLaxMode
	// Cross-origin frontends in production need SameSite=None, which
	// browsers only accept on secure cookies without a pinned domain.
	if ac.cookie.Production {
		domain = ""
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middlewares.AuthCookie,
		Value:    value,
		MaxAge:   maxAge,
		Path:     "/",
		Domain:   domain,
		Secure:   ac.cookie.Production,
		HttpOnly: true,
		SameSite: sameSite,
	})
}

func (ac *AuthController) context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), ac.timeout)
}
