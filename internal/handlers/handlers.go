package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/zlc1004/Carpool-sub000/internal/cache"
	"github.com/zlc1004/Carpool-sub000/internal/challenge"
	"github.com/zlc1004/Carpool-sub000/internal/config"
	"github.com/zlc1004/Carpool-sub000/internal/repository"
	"github.com/zlc1004/Carpool-sub000/internal/service"
	"github.com/zlc1004/Carpool-sub000/internal/storage"
)

type HandlerSet struct {
	log              zerolog.Logger
	cfg              *config.AppConfig
	challengeService *service.ChallengeService
	uploadService    *service.UploadService
	imageService     *service.ImageService
	db               *pgxpool.Pool
	cache            *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, redisClient *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	imageRepo := repository.NewImageRepository(db)
	challengeStore := challenge.NewStore(cfg.Challenge.TTL)
	provider := challenge.CodeProvider{Length: cfg.Challenge.AnswerLength}
	metaCache := cache.NewMetadataCache(redisClient)

	challenges := service.NewChallengeService(challengeStore, provider)
	upload := service.NewUploadService(imageRepo, store, challengeStore, redisClient, cfg, log)
	images := service.NewImageService(imageRepo, store, metaCache, log)

	return HandlerSet{
		log:              log,
		cfg:              cfg,
		challengeService: challenges,
		uploadService:    upload,
		imageService:     images,
		db:               db,
		cache:            redisClient,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	{
		v1.POST("/challenge", h.GenerateChallenge)
		v1.POST("/images", h.UploadImage)
		v1.GET("/images/:id", h.GetImage)
		v1.GET("/images/:id/metadata", h.GetImageMetadata)
		v1.POST("/images/metadata", h.GetImageMetadataBatch)
	}
}

// RegisterBinary mounts the raw payload surface outside the API group.
func (h HandlerSet) RegisterBinary(router gin.IRoutes) {
	router.GET("/i/:id", h.ServeImage)
}
