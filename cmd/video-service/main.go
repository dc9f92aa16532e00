package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/db/memory"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/db/mongodb"
	myPostgresRepo "github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/db/postgres"
	myRedisRepo "github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/db/redis"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/storage"
	myHttp "github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http"
	httpmw "github.com/Miraines/MoonyAndStarry/video-service/internal/adapters/transport/http/middleware"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/app/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/app/auth/password"
	appsvc "github.com/Miraines/MoonyAndStarry/video-service/internal/app/auth/service"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/repo"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/config"
	lg "github.com/Miraines/MoonyAndStarry/video-service/internal/infra/log"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/migrate"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/server"
	"golang.org/x/sync/errgroup"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type stores struct {
	users  repo.UserRepo
	videos repo.VideoRepo
	close  func()
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) stores {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		db, err := myPostgresRepo.Open(cfg.DatabaseURL, log)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatal("db handle", zap.Error(err))
		}
		if err := migrate.Up(sqlDB); err != nil {
			log.Fatal("run migrations", zap.Error(err))
		}
		return stores{
			users:  myPostgresRepo.NewPostgresUserRepo(db),
			videos: myPostgresRepo.NewPostgresVideoRepo(db),
			close:  func() { _ = sqlDB.Close() },
		}

	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatal("failed to connect to mongo", zap.Error(err))
		}
		mdb := client.Database(cfg.MongoDatabase)
		users := mongodb.NewMongoUserRepo(mdb)
		videos := mongodb.NewMongoVideoRepo(mdb)
		if err := users.EnsureIndexes(ctx); err != nil {
			log.Fatal("create user indexes", zap.Error(err))
		}
		if err := videos.EnsureIndexes(ctx); err != nil {
			log.Fatal("create video indexes", zap.Error(err))
		}
		log.Info("connected to mongo", zap.String("database", cfg.MongoDatabase))
		return stores{
			users:  users,
			videos: videos,
			close:  func() { _ = client.Disconnect(context.Background()) },
		}

	default:
		log.Warn("using in-memory store, data is lost on restart")
		return stores{users: memory.NewUserRepo(), videos: memory.NewVideoRepo(), close: func() {}}
	}
}

func openDenylist(ctx context.Context, cfg *config.Config, log *zap.Logger) (repo.TokenRepo, func()) {
	if cfg.RedisAddress == "" {
		log.Warn("REDIS_ADDRESS not set, revoked access tokens are kept in memory")
		return memory.NewTokenRepo(), func() {}
	}
	redisCli := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	tokens := myRedisRepo.NewRedisTokenRepo(redisCli)
	if err := tokens.Ping(ctx); err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	return tokens, func() { _ = redisCli.Close() }
}

func main() {
	zapLog := lg.Must(os.Getenv("LOG_LEVEL"))
	defer zapLog.Sync()

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("failed to load config", zap.Error(err))
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := openStores(rootCtx, cfg, zapLog)
	defer st.close()
	tokenRepo, closeTokens := openDenylist(rootCtx, cfg, zapLog)
	defer closeTokens()

	hasher, err := password.New(cfg.PasswordAlgorithm, cfg.PasswordPepper)
	if err != nil {
		zapLog.Fatal("failed to init password hasher", zap.Error(err))
	}
	jwtUtil, err := jwt.NewJWTUtil(cfg)
	if err != nil {
		zapLog.Fatal("failed to init JWT util", zap.Error(err))
	}
	resolver, err := storage.New(rootCtx, cfg.Media)
	if err != nil {
		zapLog.Fatal("failed to init media storage", zap.Error(err))
	}

	svc := appsvc.New(st.users, tokenRepo, hasher, jwtUtil, resolver, validator.New(), zapLog)
	videos := appsvc.NewVideoService(st.users, st.videos)
	handler := myHttp.NewHandler(svc, videos, myHttp.CookieOptions{
		Domain: cfg.CookieDomain,
		Secure: cfg.CookieSecure,
	}, cfg.UploadDir, zapLog)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.MaxMultipartMemory = 8 << 20
	router.Use(gin.Recovery())
	router.Use(httpmw.RequestLogger(zapLog))
	router.Use(httpmw.Metrics())
	router.Use(httpmw.NewRateLimitPerIP(rootCtx, cfg.RateLimit, cfg.RateBurst, 10_000, time.Hour))
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept",
			"Authorization",
			"X-Requested-With",
		},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
	})
	if cfg.MetricsAddress == "" {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	// local media is served by this process unless an external base URL is configured
	if local, ok := resolver.(*storage.LocalResolver); ok && (cfg.Media.PublicBaseURL == "" || strings.HasPrefix(cfg.Media.PublicBaseURL, "/")) {
		base := cfg.Media.PublicBaseURL
		if base == "" {
			base = "/media"
		}
		router.Static(base, local.Dir())
	}
	handler.Routes(router)

	g, ctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		return server.StartHTTPServer(ctx, cfg, router, zapLog)
	})
	if cfg.MetricsAddress != "" {
		// plain HTTP on its own port so scrapers stay off the public listener
		metricsCfg := &config.Config{HTTPAddress: cfg.MetricsAddress, ShutdownTimeout: cfg.ShutdownTimeout}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		g.Go(func() error {
			return server.StartHTTPServer(ctx, metricsCfg, mux, zapLog.Named("metrics"))
		})
	}

	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
	}
}
