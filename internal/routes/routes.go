package routes

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"sundey-crm/internal/controllers"
	"sundey-crm/internal/listeners"
	"sundey-crm/internal/repositories"
	"sundey-crm/internal/services"
	"sundey-crm/pkg/config"
	"sundey-crm/pkg/eventbus"
	"sundey-crm/pkg/filestorage"
	"sundey-crm/pkg/metrics"
	"sundey-crm/pkg/middleware"
	"sundey-crm/pkg/service"
	"sundey-crm/pkg/websocket"
)

type Loggers struct {
	Main        *zap.Logger
	Auth        *zap.Logger
	Reservation *zap.Logger
	Realtime    *zap.Logger
}

// Dependencies are the process wide components the router wires together.
type Dependencies struct {
	DB        *pgxpool.Pool
	JWT       service.JWTService
	Hub       *websocket.Hub
	Bus       *eventbus.Bus
	Metrics   *metrics.Metrics
	Storage   filestorage.FileStorageInterface
	Presigner filestorage.PresignerInterface
	Config    *config.Config
	Loggers   *Loggers
}

func InitRouter(e *echo.Echo, deps Dependencies) {
	loggers := deps.Loggers
	loggers.Main.Info("InitRouter: building routes")

	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(deps.JWT, loggers.Auth)
	txManager := repositories.NewTxManager(deps.DB)

	reservationRepo := repositories.NewReservationRepository(deps.DB, loggers.Reservation)
	statusLogRepo := repositories.NewReservationStatusLogRepository(deps.DB)
	jobRepo := repositories.NewJobRepository(deps.DB, loggers.Reservation)
	customerRepo := repositories.NewCustomerRepository(deps.DB)
	serviceRepo := repositories.NewServiceRepository(deps.DB)

	reservationService := services.NewReservationService(
		txManager, reservationRepo, statusLogRepo, jobRepo, customerRepo, serviceRepo,
		deps.Bus, deps.Metrics, loggers.Reservation,
	)
	statusLogService := services.NewReservationStatusLogService(reservationRepo, statusLogRepo, loggers.Reservation)
	jobPhotoService := services.NewJobPhotoService(
		txManager, reservationRepo, jobRepo, deps.Presigner, deps.Storage,
		deps.Bus, deps.Metrics, loggers.Reservation,
	)
	broadcastService := services.NewRealtimeBroadcastService(deps.Hub, deps.Metrics, loggers.Realtime)
	listeners.NewRealtimeListener(broadcastService, loggers.Realtime).Register(deps.Bus)

	healthController := controllers.NewHealthController(deps.DB)
	e.GET("/health", healthController.Health)

	secureGroup := api.Group("", authMW.Auth)

	runReservationRouter(secureGroup, reservationService, statusLogService, loggers.Reservation)
	runJobPhotoRouter(secureGroup, jobPhotoService, loggers.Reservation)
	runRealtimeRouter(e, deps.Hub, deps.JWT, deps.Config.Server.AllowedOrigins, loggers.Realtime)

	loggers.Main.Info("InitRouter: routes ready")
}
