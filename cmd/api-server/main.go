package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"pricewatch/internal/auth"
	"pricewatch/internal/live"
	"pricewatch/internal/monitor"
	"pricewatch/internal/notify"
	"pricewatch/internal/price"
	"pricewatch/internal/scraper"
	"pricewatch/internal/search"
	"pricewatch/internal/subscription"
	"pricewatch/pkg/database"
	"pricewatch/pkg/utils"
)

const (
	searchTTL        = 30 * time.Minute
	searchCacheLimit = 512
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (default $PRICEWATCH_CONFIG or config/pricewatch.yaml)")
	flag.Parse()

	cfg, err := utils.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := log.Default()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Users always live in SQLite; subscriptions follow cfg.DB.Driver.
	db := database.MustOpen(cfg.DB)
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}
	store, closeStore := openStore(ctx, cfg.DB, db)
	defer closeStore()

	codec := price.NewCodec(cfg.Rates)
	sources, err := scraper.NewSources(cfg.Scraper, codec, logger)
	if err != nil {
		log.Fatalf("sources: %v", err)
	}
	agg := scraper.NewAggregator(codec, cfg.Scraper.SourceTimeout, logger, sources...)
	searchSvc := search.NewService(agg, search.NewCache(searchTTL, searchCacheLimit), logger)
	subSvc := subscription.NewService(store, searchSvc, codec, logger)

	tokenSvc := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration,
	}
	authRepo := auth.NewRepo(db)
	// Push channels only deliver a subscriber's alerts to that subscriber.
	verify := auth.EmailVerifier(tokenSvc, authRepo)

	hub := live.NewHub(codec, logger)
	liveSrv := live.NewServer(cfg.LiveAddr, hub, verify)
	udpSrv := notify.NewServer(cfg.Notify.UDPAddr, notify.NewRegistry(), codec, verify, logger)

	notifiers := notify.Multi{udpSrv, hub}
	if cfg.Notify.SMTPHost != "" {
		notifiers = append(notifiers, notify.NewMailer(cfg.Notify, codec))
	} else {
		notifiers = append(notifiers, notify.LogNotifier{Codec: codec, Logger: logger})
	}
	mon := monitor.New(store, scraper.NewLookup(sources...), notifiers, cfg.Monitor.Interval, logger)
	mon.OnRun = func(s monitor.Summary) {
		hub.BroadcastJSON(live.Event{Type: live.MonitorEvent, RunID: s.RunID, Checked: s.Checked, Alerts: s.Alerts, At: s.Started})
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/ws", live.WSHandler(hub, verify))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.DB.Driver, "sources": cfg.Scraper.Sources})
	})
	router.GET("/ready", readyHandler(db, hub))

	auth.NewHandler(authRepo, tokenSvc).RegisterRoutes(router.Group("/auth"))

	// Search is public; subscribing and monitoring need an identity.
	search.NewHandler(searchSvc).RegisterRoutes(router.Group(""))

	protected := router.Group("")
	protected.Use(auth.AuthMiddleware(tokenSvc, authRepo))
	subscription.NewHandler(subSvc).RegisterRoutes(protected)
	monitor.NewHandler(mon).RegisterRoutes(protected)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := liveSrv.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := udpSrv.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	if cfg.Monitor.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mon.Start(ctx)
		}()
	}

	go func() {
		log.Printf("HTTP API server listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutdown signal received")
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}
	stop()

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}

func openStore(ctx context.Context, cfg utils.DBConfig, db *sql.DB) (subscription.Store, func()) {
	if cfg.Driver != "postgres" {
		return subscription.NewSQLStore(db), func() {}
	}
	pg, err := subscription.OpenPG(ctx, cfg.DSN, cfg.MaxConns)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	log.Printf("[db] subscriptions stored in postgres")
	return pg, pg.Close
}

func readyHandler(db *sql.DB, hub *live.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	}
}
