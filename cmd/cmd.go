package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"picturegram-sync/internal/blob"
	"picturegram-sync/internal/cache"
	"picturegram-sync/internal/config"
	"picturegram-sync/internal/events"
	"picturegram-sync/internal/handlers"
	"picturegram-sync/internal/identity"
	"picturegram-sync/internal/metrics"
	"picturegram-sync/internal/middleware"
	"picturegram-sync/internal/migrate"
	"picturegram-sync/internal/push"
	"picturegram-sync/internal/repository"
	"picturegram-sync/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "picturegram-sync",
	Short: "Likes, follows and notifications for the picturegram app",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		setupLogger(cfg.Log.Level, cfg.Log.JSON)
		cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
		return nil
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), configFrom(cmd))
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)
		if err := migrate.Up(cmd.Context(), cfg.Database.DSN()); err != nil {
			return err
		}
		log.Info().Msg("Migrations applied")
		return nil
	},
}

type configKey struct{}

func configFrom(cmd *cobra.Command) *config.Config {
	return cmd.Context().Value(configKey{}).(*config.Config)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	// Connect to database
	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("Database connection established")

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")
	}

	var feed services.ChangeFeed
	if cfg.NATS.URL != "" {
		natsFeed, err := events.ConnectNATS(cfg.NATS.URL, "picturegram-sync")
		if err != nil {
			return err
		}
		defer natsFeed.Close()
		feed = natsFeed
	} else {
		broker := events.NewBroker()
		defer broker.Close()
		feed = broker
	}

	galleryCache, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return err
	}
	defer galleryCache.Close()

	blobs, err := blob.NewS3Store(ctx, blob.Config{
		Region:    cfg.AWS.Region,
		Bucket:    cfg.AWS.S3Bucket,
		AccessKey: cfg.AWS.AccessKey,
		SecretKey: cfg.AWS.SecretKey,
		Endpoint:  cfg.AWS.Endpoint,
	})
	if err != nil {
		return err
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	notificationRepo := repository.NewNotificationRepository(db, redisClient)

	var gateway services.PushGateway = push.LogGateway{}
	if cfg.APNs.KeyFile != "" {
		apns, err := push.NewAPNsGateway(push.APNsConfig{
			KeyFile:    cfg.APNs.KeyFile,
			KeyID:      cfg.APNs.KeyID,
			TeamID:     cfg.APNs.TeamID,
			Topic:      cfg.APNs.Topic,
			Production: cfg.APNs.Production,
		}, userRepo)
		if err != nil {
			return err
		}
		gateway = apns
	}

	// Initialize services
	ident := identity.ContextProvider{}
	eng := cfg.Engagement
	userService := services.NewUserService(userRepo, ident, cfg.JWT.Secret)
	notificationService := services.NewNotificationService(notificationRepo, feed, gateway, ident, eng.PushToRecipient, eng.PushTimeout)
	unreadCounter := services.NewUnreadCounter(notificationRepo, feed, ident)
	likeService := services.NewLikeService(photoRepo, galleryCache, ident, notificationService, eng.AllowSelfLike)
	followService := services.NewFollowService(userRepo, ident, notificationService, eng.AllowSelfFollow)
	galleryService := services.NewGalleryService(galleryCache, ident, eng.SeedSamples)
	photoService := services.NewPhotoService(photoRepo, userRepo, blobs, galleryCache, gateway, ident, eng.PushTimeout)
	wsHub := services.NewWSHub(unreadCounter)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	followHandler := handlers.NewFollowHandler(followService)
	photoHandler := handlers.NewPhotoHandler(photoService, galleryService, likeService)
	galleryHandler := handlers.NewGalleryHandler(galleryService, photoService, likeService)
	notificationHandler := handlers.NewNotificationHandler(unreadCounter)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService, unreadCounter, likeService)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))

			r.Get("/users", userHandler.ListUsers)
			r.Get("/users/me", userHandler.GetMe)
			r.Patch("/users/me", userHandler.UpdateProfile)
			r.Put("/users/me/push-token", userHandler.UpdatePushToken)
			r.Get("/users/{id}", userHandler.GetUser)
			r.Get("/users/{id}/photos", photoHandler.ListByAuthor)
			r.Post("/users/{id}/follow", followHandler.Follow)
			r.Delete("/users/{id}/follow", followHandler.Unfollow)
			r.Get("/users/{id}/follow", followHandler.Status)

			r.Post("/photos", photoHandler.UploadPhoto)
			r.Get("/photos/{id}", photoHandler.GetPhoto)
			r.Post("/photos/{id}/like", photoHandler.ToggleLike)

			r.Get("/gallery", galleryHandler.GetGallery)
			r.Post("/gallery/move", galleryHandler.Move)
			r.Post("/gallery/samples", galleryHandler.AddSamples)
			r.Post("/gallery/{index}/like", galleryHandler.ToggleLike)
			r.Patch("/gallery/{index}", galleryHandler.EditDescription)
			r.Delete("/gallery/{index}", galleryHandler.Delete)

			r.Get("/notifications", notificationHandler.List)
			r.Get("/notifications/unread-count", notificationHandler.UnreadCount)
			r.Post("/notifications/read", notificationHandler.MarkAllRead)
		})
	})

	r.Get("/ws", wsHandler.HandleWebSocket)
	r.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	wsHub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// let in-flight pushes finish before the stores close
	notificationService.Wait()
	photoService.Wait()

	log.Info().Msg("Server exited")
	return nil
}

// setupLogger configures zerolog logger
func setupLogger(level string, json bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if !json {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
