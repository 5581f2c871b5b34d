package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"turnstile/internal/cache"
	"turnstile/internal/config"
	"turnstile/internal/database"
	"turnstile/internal/external"
	"turnstile/internal/handlers"
	"turnstile/internal/ingress"
	"turnstile/internal/logger"
	"turnstile/internal/messaging"
	"turnstile/internal/middleware"
	"turnstile/internal/repository"
	"turnstile/internal/service"
	"turnstile/internal/waitroom"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Server wires the HTTP API together
type Server struct {
	router    *gin.Engine
	config    *config.Config
	db        *database.DB
	rdb       *redis.Client
	nats      *messaging.NATSClient
	buffer    ingress.Buffer
	services  *service.Services
	drainStop chan struct{}
}

// NewServer connects the storage substrates and builds the full service graph
func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	rdb, err := cache.Connect(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to shared store", "error", err)
	}

	// Domain events are best-effort; a missing broker must not block the sale
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Get().Warn("NATS unavailable, domain events disabled", "error", err)
		natsClient = nil
	}

	paymentClient := external.NewPaymentClient(cfg.Payment)

	repos := repository.NewRepositories(db)

	queue := waitroom.NewWaitingQueue(rdb, cfg.Sale.HeartbeatTTL)
	gate := waitroom.NewAdmissionGate(rdb)
	guard := waitroom.NewDuplicateGuard(rdb)
	sessions := waitroom.NewSessionStore(rdb, cfg.Sale.SessionTTL)

	var buffer ingress.Buffer
	if cfg.Ingress.Distributed {
		buffer = ingress.NewRedisBuffer(rdb, cfg.Ingress.Capacity, cfg.Ingress.OfferTimeout)
	} else {
		buffer = ingress.NewMemoryBuffer(cfg.Ingress.Capacity, cfg.Ingress.OfferTimeout)
	}

	services := service.NewServices(repos, queue, gate, guard, sessions, buffer, natsClient, paymentClient, cfg.Sale)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		rdb:      rdb,
		nats:     natsClient,
		buffer:   buffer,
		services: services,
	}

	server.setupRoutes()

	// A process-local buffer has no external drainer, so the API drains it
	if !cfg.Ingress.Distributed {
		server.startDrainer()
	}

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	api.Use(middleware.BuyerIdentity())
	{
		tickets := api.Group("/tickets")
		{
			tickets.POST("", h.CreateTicket)
			tickets.GET("", h.ListTickets)
			tickets.GET("/:id", h.GetTicket)
		}

		waitlist := api.Group("/waitlist")
		{
			waitlist.POST("", h.Enqueue)
			waitlist.GET("/position", h.Position)
			waitlist.GET("/admitted", h.CheckAdmitted)
			waitlist.POST("/heartbeat", h.Heartbeat)
			waitlist.DELETE("", h.Withdraw)
		}

		purchase := api.Group("/purchase")
		{
			purchase.GET("/preview", h.Preview)
			purchase.POST("/claim", h.Claim)
			purchase.POST("/confirm", h.Confirm)
			purchase.POST("/abandon", h.Abandon)
			purchase.POST("/refund", h.Refund)
		}

		api.GET("/purchases", h.ListPurchases)
		api.POST("/checkins", h.CheckIn)
		api.GET("/checkins", h.CheckinStatus)
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// healthCheck combines DB, shared store and ingress saturation. A buffer past
// the saturation threshold turns the whole service unhealthy so upstream load
// balancers shed traffic.
func (s *Server) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	dbHealth := s.db.HealthCheck(ctx)
	// Pool pressure is log-only; it warns operators before it hurts
	if err := s.db.ValidateConnectionPool(); err != nil {
		logger.WithContext(ctx).Error("Connection pool validation failed", "error", err)
	}

	redisStatus := "healthy"
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	saturation, err := s.services.Waitlist.BufferSaturation(ctx)
	if err != nil {
		saturation = 1.0
	}

	status := http.StatusOK
	overall := "ok"
	if dbHealth.Status != "healthy" || redisStatus != "healthy" || saturation > ingress.SaturationThreshold {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":             overall,
		"service":            "turnstile-api",
		"database":           dbHealth.Status,
		"shared_store":       redisStatus,
		"ingress_saturation": saturation,
	})
}

// startDrainer moves buffered intents into the waiting queue
func (s *Server) startDrainer() {
	s.drainStop = make(chan struct{})

	go func() {
		ctx := context.Background()
		for {
			select {
			case <-s.drainStop:
				return
			default:
			}

			n, err := s.services.Waitlist.DrainIntents(ctx, s.config.Ingress.DrainBatchSize)
			if err != nil {
				logger.Get().Error("Ingress drain failed", "error", err)
			}
			if n == 0 {
				select {
				case <-s.drainStop:
					return
				case <-time.After(s.config.Ingress.DrainInterval):
				}
			}
		}
	}()
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter exposes the router for tests
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

func (s *Server) Cleanup() error {
	if s.drainStop != nil {
		close(s.drainStop)
	}

	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}

	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			logger.Get().Error("Error closing shared store connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
