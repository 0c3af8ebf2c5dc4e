package devserver

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/rajivgeraev/flippy-client/internal/config"
	"github.com/rajivgeraev/flippy-client/internal/middleware"
	"github.com/rajivgeraev/flippy-client/internal/utils"
)

// Server — локальный dev-сервер Flippy API поверх хранилища в памяти.
// Воспроизводит контракты боевого API, чтобы клиент и тесты работали
// без базы данных и внешних сервисов.
type Server struct {
	cfg        *config.Config
	store      *Store
	jwtService *utils.JWTService
	app        *fiber.App
}

// New создает dev-сервер и регистрирует все маршруты
func New(cfg *config.Config, store *Store) *Server {
	s := &Server{
		cfg:        cfg,
		store:      store,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}

	app := fiber.New(fiber.Config{
		AppName:      "Flippy Dev API",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))

	authMW := middleware.AuthMiddleware(s.jwtService)
	s.setupAuthRoutes(app)
	s.setupListingRoutes(app, authMW)
	s.setupFavoriteRoutes(app, authMW)
	s.setupTradeRoutes(app, authMW)
	s.setupChatRoutes(app, authMW)
	s.setupUploadRoutes(app, authMW)

	s.app = app
	return s
}

// App возвращает приложение Fiber
func (s *Server) App() *fiber.App {
	return s.app
}

// Store возвращает хранилище сервера
func (s *Server) Store() *Store {
	return s.store
}

// Listen запускает сервер на указанном адресе
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// HTTPClient возвращает клиент, выполняющий запросы внутри процесса.
// Запросы проходят полный путь через маршрутизацию и middleware Fiber
// без открытия сетевого порта.
func (s *Server) HTTPClient() *http.Client {
	return &http.Client{Transport: &inprocTransport{app: s.app}}
}

type inprocTransport struct {
	app *fiber.App
}

func (t *inprocTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.app.Test(req, fiber.TestConfig{
		Timeout:       10 * time.Second,
		FailOnTimeout: true,
	})
}

// errorHandler обрабатывает ошибки Fiber
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
