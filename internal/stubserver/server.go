// Package stubserver is a self-contained implementation of the Vibio API
// contract for local development and integration tests. It serves the same
// routes and response shapes as the production backend over an embedded
// SQLite database.
package stubserver

import (
	"context"
	"fmt"
	"net"
	"sync"

	"vibio/internal/config"
	"vibio/internal/middleware"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// Server holds the stub's dependencies and registers its routes.
type Server struct {
	config *config.Config
	db     *gorm.DB
	app    *fiber.App
}

// NewServer creates a stub server backed by the configured SQLite database.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return NewServerWithDB(cfg, db)
}

// NewServerWithDB creates a stub server over an already-open database.
// Tests use this with an in-memory SQLite handle.
func NewServerWithDB(cfg *config.Config, db *gorm.DB) (*Server, error) {
	middleware.InitMiddleware(cfg)

	app := fiber.New(fiber.Config{
		AppName: "vibio-stub",
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.StructuredLogger())

	// Collectors register globally, so the middleware is built once even
	// when tests construct several servers.
	promOnce.Do(func() {
		prom = fiberprometheus.New("vibio-stub")
	})
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	s := &Server{config: cfg, db: db, app: app}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api")

	// Auth flows
	api.Post("/login", s.Login)
	api.Post("/register-user", s.Register)
	api.Post("/confirm-email", s.ConfirmEmail)
	api.Post("/request-confirm-email", s.RequestConfirmEmail)

	// Public reads
	api.Get("/show-posts", s.ShowPosts)
	api.Get("/show-comments", s.ShowComments)
	api.Get("/get-likes", s.GetLikes)
	api.Get("/show-profile/:id", s.ShowProfile)

	// Authenticated mutations
	api.Post("/store-like", middleware.AuthRequired, s.StoreLike)
	api.Delete("/delete-like", middleware.AuthRequired, s.DeleteLike)
	api.Post("/store-comment", middleware.AuthRequired, s.StoreComment)
	api.Post("/create-post", middleware.AuthRequired, s.CreatePost)
	api.Put("/update-post/:id", middleware.AuthRequired, s.UpdatePost)
	api.Delete("/delete-post/:id", middleware.AuthRequired, s.DeletePost)
	api.Post("/followers", middleware.AuthRequired, s.Follow)
	api.Delete("/followers", middleware.AuthRequired, s.Unfollow)
	api.Post("/profile-setup", middleware.AuthRequired, s.ProfileSetup)
	api.Post("/skip-profile-setup", middleware.AuthRequired, s.SkipProfileSetup)
	api.Post("/update-profile/:id", middleware.AuthRequired, s.UpdateProfile)
	api.Delete("/delete-profile/:id", middleware.AuthRequired, s.DeleteProfilePicture)
}

// App exposes the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// DB exposes the database handle for seeding and tests.
func (s *Server) DB() *gorm.DB {
	return s.db
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Serve accepts connections from an existing listener. Tests pair this with
// a loopback listener on an ephemeral port.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
