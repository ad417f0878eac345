package handler

import (
	"github.com/ytvaala/ytvaala/internal/router"
)

// Routes holds the handlers mounted on the API router.
type Routes struct {
	Root    *Handler
	Health  *HealthHandler
	Auth    *AuthHandler
	Credits *CreditsHandler
	Images  *ImageHandler
	// AuthGate is installed as global middleware; public routes skip it.
	AuthGate router.Middleware
}

// Register mounts every endpoint on rt. Order matters: the first
// matching route wins.
func (rs Routes) Register(rt *router.Router) {
	rt.Use(rs.AuthGate)

	rt.Get("/", rs.Root.Info, router.Public())
	rt.Get("/health", rs.Health.Health, router.Public())
	rt.Get("/ready", rs.Health.Ready, router.Public())

	rt.Group("/auth", func(g *router.Router) {
		g.Post("/register", rs.Auth.Register, router.Public())
		g.Post("/login", rs.Auth.Login, router.Public())
		g.Get("/me", rs.Auth.Me)
	})

	rt.Group("/credits", func(g *router.Router) {
		g.Get("/balance", rs.Credits.Balance)
		g.Post("/add", rs.Credits.Add)
		g.Get("/history", rs.Credits.History)
	})

	rt.Merge(rs.imageRoutes(), "/images")
}

// imageRoutes builds the /images tree on its own router so it can be
// mounted with Merge.
func (rs Routes) imageRoutes() *router.Router {
	images := router.New(router.Config{})
	images.Post("/generate", rs.Images.Generate)
	images.Post("/thumbnail", rs.Images.Thumbnail)
	images.Post("/banner", rs.Images.Banner)
	images.Post("/logo", rs.Images.Logo)
	images.Post("/social", rs.Images.Social)
	images.Post("/shorts", rs.Images.Shorts)
	images.Post("/seo", rs.Images.SEO)
	images.Get("/", rs.Images.List)
	images.Get("/:id", rs.Images.Get)
	return images
}
