package container

import (
	"log/slog"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joshua-takyi/cleanbook/internal/config"
	"github.com/joshua-takyi/cleanbook/internal/helpers"
	"github.com/joshua-takyi/cleanbook/internal/middleware"
	"github.com/joshua-takyi/cleanbook/internal/models"
	"github.com/joshua-takyi/cleanbook/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/supabase-community/supabase-go"
	"go.mongodb.org/mongo-driver/mongo"
)

const mailTimeout = 10 * time.Second

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database clients
	SupabaseClient *supabase.Client
	MongoDBClient  *mongo.Client
	Pool           *pgxpool.Pool
	Redis          *redis.Client

	Supabase *models.SupabaseRepo
	Mongo    *models.MongodbRepo

	Tokens      *helpers.TokenValidator
	RateCounter middleware.Counter

	BookingService      *services.BookingService
	RoleService         *services.RoleService
	SessionService      *services.SessionService
	NotificationService *services.NotificationService
	EnquiryService      *services.EnquiryService
	ContentService      *services.ContentService
	UserService         *services.UserService
}

// Deps are the connected clients main hands to NewContainer. Redis and
// Cloudinary are optional.
type Deps struct {
	Supabase   *supabase.Client
	Mongo      *mongo.Client
	Pool       *pgxpool.Pool
	Redis      *redis.Client
	Cloudinary *cloudinary.Cloudinary
	Tokens     *helpers.TokenValidator
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, logger *slog.Logger, deps Deps) *Container {
	// Initialize repositories
	supa := models.SupabaseNewRepo(deps.Supabase, cfg.SupabaseURL, cfg.SupabaseAnonKey)
	mongoRepo := models.MongodbNewRepo(deps.Mongo, cfg.MongoDBName)
	roleWriter := models.NewPgRoleRepo(deps.Pool)

	mailer := models.NewEdgeFunctionMailer(cfg.SupabaseURL, cfg.SupabaseAnonKey, mailTimeout)
	notifications := services.NewNotificationService(mailer, mongoRepo, logger)
	roles := services.NewRoleService(supa, roleWriter, logger)
	sessions := services.NewSessionService(mongoRepo, cfg.SessionIdleTimeout, cfg.SessionMaxAge, logger)

	var uploader services.ImageUploader
	if deps.Cloudinary != nil {
		uploader = helpers.NewCloudinaryUploader(deps.Cloudinary)
	}

	var counter middleware.Counter
	if deps.Redis != nil {
		counter = middleware.NewRedisCounter(deps.Redis, cfg.RateLimitWindow)
	} else {
		logger.Warn("REDIS_URL not set, rate limiting is per instance")
		counter = middleware.NewMemoryCounter(cfg.RateLimitWindow)
	}

	return &Container{
		Config:              cfg,
		Logger:              logger,
		SupabaseClient:      deps.Supabase,
		MongoDBClient:       deps.Mongo,
		Pool:                deps.Pool,
		Redis:               deps.Redis,
		Supabase:            supa,
		Mongo:               mongoRepo,
		Tokens:              deps.Tokens,
		RateCounter:         counter,
		BookingService:      services.NewBookingService(supa, supa, supa, supa, notifications, cfg.BusinessEmail, logger),
		RoleService:         roles,
		SessionService:      sessions,
		NotificationService: notifications,
		EnquiryService:      services.NewEnquiryService(supa, supa, notifications, cfg.BusinessEmail, logger),
		ContentService:      services.NewContentService(supa, uploader, helpers.ContentFolder),
		UserService:         services.NewUserService(supa, roles, notifications, logger),
	}
}
