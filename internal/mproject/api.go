package mproject

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"kyri56xcaesar/capstone-pms/internal/authmw"
	pmslog "kyri56xcaesar/capstone-pms/internal/logger"
	"kyri56xcaesar/capstone-pms/internal/schedule"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	config Config
	engine *gin.Engine
	store  Store
	logger = zap.NewNop()
	users  UserDirectory

	norm       = schedule.NewNormalizer(nil)
	merger     = schedule.NewMerger(norm)
	aggregator = schedule.NewAggregator(norm)

	nowFunc = time.Now
)

// allRoles is what a disabled-auth run acts as.
var allRoles = []string{"student", "leader", "professor", "admin"}

func setZone(name string) error {
	n, err := schedule.LoadNormalizer(name)
	if err != nil {
		return err
	}
	useNormalizer(n)
	return nil
}

func useNormalizer(n schedule.Normalizer) {
	norm = n
	merger = schedule.NewMerger(n)
	aggregator = schedule.NewAggregator(n)
}

func openStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		s, err := openPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := openSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
}

func mustInitKcAuth() authmw.Authenticator {
	if config.AuthDisabled {
		logger.Warn("authentication disabled, every request acts as the dev user")
		return authmw.StaticAuth{Username: "dev", Roles: allRoles}
	}

	jwksURL := fmt.Sprintf("http://%s/realms/%s/protocol/openid-connect/certs", config.AuthAddress, config.Realm)
	a, err := authmw.NewKeycloakAuth(jwksURL, config.Issuer, config.Audience, config.ClientID)
	if err != nil {
		logger.Fatal("failed to init keycloak auth", zap.String("jwks", jwksURL), zap.Error(err))
	}
	return a
}

func setCors() {
	corsconfig := cors.DefaultConfig()
	corsconfig.AllowOrigins = config.AllowedOrigins
	corsconfig.AllowMethods = config.AllowedMethods
	corsconfig.AllowHeaders = config.AllowedHeaders
	engine.Use(cors.New(corsconfig))
}

func setRoutes(kcAuth authmw.Authenticator) {
	root := engine.Group("/")
	{
		root.GET("/healthz", healthHandler)
		root.GET("/readyz", readyHandler)
		root.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	auth := root.Group("/auth")
	auth.Use(kcAuth.RequireRoles("student", "leader", "professor", "admin"))
	{
		auth.GET("/projects", listProjectsHandler)
		auth.GET("/projects/:projectid", getProjectHandler)

		auth.GET("/projects/:projectid/assignments", listAssignmentsHandler)
		auth.POST("/projects/:projectid/assignments", createAssignmentHandler)
		auth.PATCH("/projects/:projectid/assignments/:id", updateAssignmentHandler)
		auth.PATCH("/projects/:projectid/assignments/:id/status", assignmentStatusHandler)
		auth.DELETE("/projects/:projectid/assignments/:id", deleteAssignmentHandler)

		auth.GET("/projects/:projectid/events", listEventsHandler)
		auth.GET("/projects/:projectid/events/range", eventsInRangeHandler)
		auth.POST("/projects/:projectid/events", createEventHandler)
		auth.PATCH("/projects/:projectid/events/:id", updateEventHandler)
		auth.DELETE("/projects/:projectid/events/:id", deleteEventHandler)

		auth.GET("/projects/:projectid/dashboard/summary", dashboardSummaryHandler)
		auth.GET("/projects/:projectid/status", projectStatusHandler)
		auth.GET("/projects/:projectid/deadlines", deadlinesHandler)

		auth.GET("/projects/:projectid/feedback", listFeedbackHandler)
		auth.POST("/projects/:projectid/feedback", createFeedbackHandler)

		auth.GET("/schedules", scheduleHandler)
		auth.GET("/schedules/range", scheduleRangeHandler)

		auth.GET("/teams", listTeamsHandler)
		auth.GET("/teams/:teamid", getTeamHandler)
		auth.GET("/my-teams", myTeamsHandler)
	}

	leader := root.Group("/leader")
	leader.Use(kcAuth.RequireRoles("leader", "professor", "admin"))
	{
		leader.POST("/projects", createProjectHandler)
		leader.PUT("/projects/:projectid", updateProjectHandler)
		leader.POST("/teams/:teamid/members", addTeamMemberHandler)
		leader.DELETE("/teams/:teamid/members/:username", removeTeamMemberHandler)
	}

	admin := root.Group("/admin")
	admin.Use(kcAuth.RequireRoles("admin"))
	{
		admin.POST("/teams", createTeamHandler)
		admin.PUT("/teams/:teamid", updateTeamHandler)
		admin.DELETE("/teams/:teamid", deleteTeamHandler)
		admin.DELETE("/projects/:projectid", deleteProjectHandler)
	}
}

// newEngine builds the router over the current globals.
func newEngine(kcAuth authmw.Authenticator) *gin.Engine {
	engine = gin.New()
	engine.Use(gin.Recovery(), requestID(), requestLogger(logger), metricsMiddleware())
	setCors()
	setRoutes(kcAuth)
	return engine
}

// InitAndServe loads the configuration at confPath, opens the store and
// serves until SIGINT or SIGTERM.
func InitAndServe(confPath string) error {
	var err error
	config, err = loadConfig(confPath)
	if err != nil {
		return err
	}

	setGinMode(config.ApiGinMode)
	logger = pmslog.Must(config.ApiGinMode, config.Verbose)
	defer logger.Sync()
	logger.Debug("configuration loaded\n" + config.String())

	if err := setZone(config.TimeZone); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err = openStore(ctx, config)
	if err != nil {
		return fmt.Errorf("open %s store: %w", config.DBDriver, err)
	}
	defer store.Close()

	users = newUserDirectory(config, logger)

	kcAuth := mustInitKcAuth()
	if kc, ok := kcAuth.(*authmw.KeycloakAuth); ok {
		defer kc.Close()
	}
	newEngine(kcAuth)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", config.Ip, config.Port),
		Handler:           engine,
		ReadHeaderTimeout: time.Second * 5,
	}

	go func() {
		logger.Info("listening", zap.String("addr", server.Addr), zap.String("driver", config.DBDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()

	stop()
	logger.Info("shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exiting")
	return nil
}

func setGinMode(mode string) {
	switch strings.ToLower(mode) {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
}
