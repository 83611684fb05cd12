package controllers

import (
	"net/http"
	"strings"

	"github.com/franciscosanchezn/gin-mcp-oauth/internal/auth"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DefaultLandingPath is where a login without return_to ends up.
const DefaultLandingPath = "/.admin/mcp-tokens"

// AuthController handles login and logout for the consent and admin pages.
type AuthController struct {
	userService  services.UserService
	sessions     *auth.SessionSigner
	secureCookie bool
}

func NewAuthController(userService services.UserService, sessions *auth.SessionSigner, secureCookie bool) *AuthController {
	return &AuthController{
		userService:  userService,
		sessions:     sessions,
		secureCookie: secureCookie,
	}
}

type loginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
	ReturnTo string `json:"return_to" form:"return_to"`
}

// safeReturnTo only allows local paths, so the login form cannot be used as
// an open redirect.
func safeReturnTo(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return DefaultLandingPath
	}
	return target
}

// LoginPage godoc
// @Summary Login form
// @Tags Auth
// @Produce html
// @Param return_to query string false "Local path to continue to after login"
// @Success 200 {string} string "login page"
// @Router /.login [get]
func (ac *AuthController) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"ReturnTo": safeReturnTo(c.Query("return_to")),
	})
}

// Login godoc
// @Summary Log in
// @Description Checks the credentials and sets the session cookie. Form posts are redirected to return_to; JSON requests get the user back.
// @Tags Auth
// @Accept x-www-form-urlencoded,json
// @Produce html,json
// @Param email formData string true "Email"
// @Param password formData string true "Password"
// @Param return_to formData string false "Local path to continue to"
// @Success 200 {object} map[string]interface{} "JSON login"
// @Success 303 "Form login, redirect to return_to"
// @Failure 401 {object} models.APIError "Invalid credentials"
// @Router /.login [post]
func (ac *AuthController) Login(c *gin.Context) {
	isJSON := c.ContentType() == gin.MIMEJSON

	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		ac.loginFailed(c, isJSON, http.StatusBadRequest, req, "Email and password are required")
		return
	}

	user, err := ac.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		log.WithError(err).Error("Login lookup failed")
		ac.loginFailed(c, isJSON, http.StatusInternalServerError, req, "Login is temporarily unavailable")
		return
	}
	if user == nil {
		log.WithField("email", req.Email).Info("Rejected login")
		ac.loginFailed(c, isJSON, http.StatusUnauthorized, req, "Invalid email or password")
		return
	}

	token, err := ac.sessions.Issue(user)
	if err != nil {
		log.WithError(err).Error("Failed to sign session")
		ac.loginFailed(c, isJSON, http.StatusInternalServerError, req, "Login is temporarily unavailable")
		return
	}
	ac.setSessionCookie(c, token, int(ac.sessions.TTL.Seconds()))

	log.WithFields(logrus.Fields{"user_id": user.ID}).Info("User logged in")

	if isJSON {
		c.JSON(http.StatusOK, gin.H{
			"user": gin.H{
				"id":    user.ID,
				"email": user.Email,
				"name":  user.Name,
				"role":  user.Role,
			},
			"expires_in": int(ac.sessions.TTL.Seconds()),
		})
		return
	}
	c.Redirect(http.StatusSeeOther, safeReturnTo(req.ReturnTo))
}

func (ac *AuthController) loginFailed(c *gin.Context, isJSON bool, status int, req loginRequest, message string) {
	if isJSON {
		code := models.ErrUnauthorized
		switch status {
		case http.StatusBadRequest:
			code = models.ErrBadRequest
		case http.StatusInternalServerError:
			code = models.ErrInternalServer
		}
		c.JSON(status, models.NewAPIError(code, message))
		return
	}
	c.HTML(status, "login.html", gin.H{
		"Error":    message,
		"Email":    req.Email,
		"ReturnTo": safeReturnTo(req.ReturnTo),
	})
}

// Logout godoc
// @Summary Log out
// @Description Clears the session cookie
// @Tags Auth
// @Success 303 "Redirect to the login page"
// @Router /.logout [post]
func (ac *AuthController) Logout(c *gin.Context) {
	ac.setSessionCookie(c, "", -1)
	c.Redirect(http.StatusSeeOther, auth.LoginPath)
}

func (ac *AuthController) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookieName, value, maxAge, "/", "", ac.secureCookie, true)
}
