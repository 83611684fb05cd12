package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/franciscosanchezn/gin-mcp-oauth/docs" // Import generated docs
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/auth"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/config"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/controllers"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/database"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/dispatcher"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/middleware"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/models"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/services"
	"github.com/franciscosanchezn/gin-mcp-oauth/internal/sse"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/swaggo/files"
	"github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 15 * time.Second

var (
	db            *gorm.DB
	configuration *config.Config
)

// application holds everything the router and the background jobs share.
type application struct {
	oauth         *auth.OAuthService
	authenticator *auth.Authenticator
	sseSessions   *sse.Manager
	sweeper       *services.Sweeper

	discovery *controllers.DiscoveryController
	mcp       *controllers.MCPController
	sse       *controllers.SSEController
	login     *controllers.AuthController
	clients   *controllers.ClientController
	mcpTokens *controllers.McpTokenController
}

// @title Doxyde MCP Gateway
// @version 1.0
// @description OAuth2 authorization server and MCP JSON-RPC bridge for doxyde sites
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and an OAuth2 access token or McpToken.
func main() {
	// Load environment variables
	loadDotenvFile()

	// Initialize logger
	setUpLogger()

	// Load configuration
	configuration = loadConfig()
	applyLogLevel(configuration.LogLevel)

	// Initialize database connection
	db = setupDatabase(configuration)

	app := newApplication(db, configuration)
	router := setupRouter(app)

	if err := run(app, router); err != nil {
		log.WithError(err).Fatal("Server stopped with an error")
	}
	log.Info("Server stopped")
}

// checkPanicErr checks if an error occurred and panics if it did
func checkPanicErr(err error) {
	if err != nil {
		panic(err)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger initializes the logger with a JSON formatter and sets the log level based on the environment
func setUpLogger() {
	log.SetFormatter(&log.JSONFormatter{})
	environment := config.GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(log.DebugLevel)
	case "production":
		log.SetLevel(log.ErrorLevel)
		gin.SetMode(gin.ReleaseMode)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// applyLogLevel lets LOG_LEVEL override the environment default in every
// package logger.
func applyLogLevel(level string) {
	if os.Getenv("LOG_LEVEL") == "" {
		return
	}
	parsed, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		log.Warnf("Invalid LOG_LEVEL %q, keeping %s", level, log.GetLevel())
		return
	}
	log.SetLevel(parsed)
	auth.SetLogLevel(parsed)
	controllers.SetLogLevel(parsed)
	database.SetLogLevel(parsed)
	dispatcher.SetLogLevel(parsed)
	middleware.SetLogLevel(parsed)
	sse.SetLogLevel(parsed)
}

// loadConfig loads the application configuration from environment variables
// It returns a Config struct or panics if there is an error
func loadConfig() *config.Config {
	log.Info("Loading configuration from environment variables")
	conf, err := config.LoadConfig()
	checkPanicErr(err)
	log.Infof("Configuration loaded: %s", conf)
	if conf.JWTSecret == "secret" {
		log.Warn("JWT_SECRET is not set; session cookies are signed with the development default")
	}
	return conf
}

// setupDatabase opens the configured database and migrates the schema
func setupDatabase(conf *config.Config) *gorm.DB {
	conn, err := database.InitDatabase(database.DatabaseConfig{
		Driver:   conf.DBDriver,
		URL:      conf.DatabaseURL,
		Host:     conf.DBHost,
		Port:     conf.DBPort,
		User:     conf.DBUser,
		Password: conf.DBPassword,
		Name:     conf.DBName,
		SSLMode:  conf.DBSSLMode,
		Path:     conf.DBPath,
	})
	checkPanicErr(err)
	checkPanicErr(database.Migrate(conn))
	return conn
}

// newApplication wires services and controllers
func newApplication(db *gorm.DB, conf *config.Config) *application {
	store := services.NewCredentialStore(db)
	sites := services.NewSiteService(db)
	clients := services.NewClientService(db)

	sessions := auth.NewSessionSigner([]byte(conf.JWTSecret), conf.SessionTTL)
	issuer := auth.NewIssuer(store, auth.IssuerConfig{
		CodeTTL:                   conf.AuthCodeTTL,
		AccessTokenTTL:            conf.AccessTokenTTL,
		RefreshTokenTTL:           conf.RefreshTokenTTL,
		RefreshReuseRevokesFamily: conf.RefreshReuseRevokesFamily,
	})
	oauth := auth.NewOAuthService(issuer, clients, store.McpTokens, sessions)
	authenticator := auth.NewDefaultAuthenticator(store)

	sseSessions := sse.NewManager(conf.SSESessionIdleTimeout, conf.SSEMaxSessions)
	d := dispatcher.New(services.NewPageService(db), version)
	discovery := controllers.NewDiscoveryController(services.NewDiscoveryService())

	return &application{
		oauth:         oauth,
		authenticator: authenticator,
		sseSessions:   sseSessions,
		sweeper:       services.NewSweeper(store, conf.SweepInterval, conf.RevokedTokenRetention, log.StandardLogger()),

		discovery: discovery,
		mcp:       controllers.NewMCPController(d, auth.NewLegacyMcpTokenResolver(store.McpTokens), authenticator, discovery.ResourceMetadataURL),
		sse:       controllers.NewSSEController(d, sseSessions, authenticator, store.McpTokens, conf.SSEKeepAlive, conf.SSEResponseMode),
		login:     controllers.NewAuthController(services.NewUserService(db), sessions, conf.SessionCookieSecure),
		clients:   controllers.NewClientController(clients, oauth),
		mcpTokens: controllers.NewMcpTokenController(store.McpTokens, sites, sseSessions, discovery.BaseURL),
	}
}

// setupRouter initializes the Gin router and sets up the routes
// It returns the configured router
func setupRouter(app *application) *gin.Engine {
	// Initialize Gin router
	router := gin.Default()
	router.SetHTMLTemplate(auth.Templates())

	// Define routes
	setupRoutes(router, app)

	return router
}

// setupRoutes defines the routes for the Gin router
func setupRoutes(router *gin.Engine, app *application) {
	// Health check endpoint
	router.GET("/health", healthCheckHandler)

	// Discovery is read by browser based agents
	wellKnown := router.Group("/.well-known", middleware.DiscoveryCORS())
	{
		wellKnown.GET("", app.discovery.Index)
		wellKnown.GET("/oauth-authorization-server", app.discovery.AuthorizationServer)
		wellKnown.GET("/openid-configuration", app.discovery.AuthorizationServer)
		wellKnown.GET("/oauth-protected-resource", app.discovery.ProtectedResource)
		wellKnown.OPTIONS("/*path", func(c *gin.Context) {})
	}

	// OAuth2 authorization server
	sessionKey := []byte(configuration.JWTSecret)
	oauthApi := router.Group("/.oauth")
	{
		oauthApi.GET("/authorize", middleware.OptionalSession(sessionKey), app.oauth.HandleAuthorize)
		oauthApi.POST("/authorize", middleware.OptionalSession(sessionKey), app.oauth.HandleAuthorizeDecision)
		oauthApi.POST("/token", app.oauth.HandleToken)
		oauthApi.POST("/revoke", app.oauth.HandleRevoke)
		oauthApi.POST("/register", app.oauth.HandleRegister)
	}

	// Login for the consent and admin pages
	router.GET(auth.LoginPath, app.login.LoginPage)
	router.POST(auth.LoginPath, app.login.Login)
	router.POST("/.logout", app.login.Logout)

	// Session protected administration
	adminApi := router.Group("/.admin")
	adminApi.Use(middleware.SessionAuth(sessionKey))
	{
		adminApi.GET("/mcp-tokens", app.mcpTokens.ListTokens)
		adminApi.POST("/mcp-tokens", app.mcpTokens.CreateToken)
		adminApi.DELETE("/mcp-tokens/:id", app.mcpTokens.RevokeToken)

		clientsApi := adminApi.Group("/clients")
		clientsApi.Use(middleware.RequireRole(models.RoleAdmin))
		{
			clientsApi.GET("", app.clients.ListClients)
			clientsApi.POST("", app.clients.CreateClient)
			clientsApi.DELETE("/:id", app.clients.DeleteClient)
		}
	}

	// MCP transports
	bearer := middleware.BearerAuth(app.authenticator, app.discovery.ResourceMetadataURL)
	router.HEAD(services.MCPPath, app.mcp.Probe)
	router.POST(services.MCPPath, bearer, app.mcp.Handle)
	router.POST(services.MCPPath+"/:token_id", app.mcp.HandleLegacy)
	router.GET("/.sse", bearer, app.sse.Stream)
	router.GET(services.MCPPath+"/sse", bearer, app.sse.Stream)
	router.POST(controllers.SSEMessagesPath, app.sse.Messages)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// run serves HTTP and sweeps expired credentials until SIGINT or SIGTERM.
func run(app *application, router *gin.Engine) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%v:%d", configuration.Host, configuration.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return app.sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		// Open SSE streams would otherwise hold Shutdown until the timeout.
		app.sseSessions.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	app.authenticator.Wait()
	return err
}

// healthCheckHandler handles the health check endpoint
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "doxyde-mcp-gateway",
		"version":   version,
	})
}
