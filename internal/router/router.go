package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/blog-api/internal/handler"
	"github.com/iliyamo/blog-api/internal/middleware"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/token"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Health     *handler.HealthHandler
	Auth       *handler.AuthHandler
	Users      *handler.UserHandler
	Taxonomy   *handler.TaxonomyHandler
	Posts      *handler.PostHandler
	Comments   *handler.CommentHandler
	Issuer     *token.Issuer
	Limiter    echo.MiddlewareFunc // general limiter for /api, may be nil
	AuthLimit  echo.MiddlewareFunc // stricter limiter for register/login/refresh, may be nil
	CacheReads echo.MiddlewareFunc // response cache for public reads, may be nil
}

// Register wires every route on e.  /health stays outside /api so it is
// never rate limited.
func Register(e *echo.Echo, h Handlers) {
	e.GET("/health", h.Health.Health)

	api := e.Group("/api", optional(h.Limiter)...)
	authn := middleware.JWTAuth(h.Issuer)
	admin := middleware.RequireRole(model.RoleAdmin)

	registerAuth(api, h, authn)
	registerUsers(api, h, authn, admin)
	registerTaxonomy(api, h, authn, admin)
	registerPosts(api, h, authn)
	registerComments(api, h, authn, admin)
}

func registerAuth(api *echo.Group, h Handlers, authn echo.MiddlewareFunc) {
	g := api.Group("/auth")
	limited := optional(h.AuthLimit)
	g.POST("/register", h.Auth.Register, limited...)
	g.POST("/login", h.Auth.Login, limited...)
	g.POST("/refresh-token", h.Auth.Refresh, limited...)
	// logout takes the refresh token in the body and needs no session.
	g.POST("/logout", h.Auth.Logout)

	g.POST("/logout-all", h.Auth.LogoutAll, authn)
	g.GET("/profile", h.Auth.Profile, authn)
	g.PUT("/profile", h.Auth.UpdateProfile, authn)
	g.PUT("/change-password", h.Auth.ChangePassword, authn)
}

func registerUsers(api *echo.Group, h Handlers, authn, admin echo.MiddlewareFunc) {
	g := api.Group("/users", authn, admin)
	g.GET("", h.Users.List)
	g.GET("/:id", h.Users.Get)
	g.PUT("/:id", h.Users.Update)
	g.DELETE("/:id", h.Users.Delete)
}

func registerTaxonomy(api *echo.Group, h Handlers, authn, admin echo.MiddlewareFunc) {
	cached := optional(h.CacheReads)

	c := api.Group("/categories")
	c.GET("", h.Taxonomy.ListCategories, cached...)
	c.GET("/:id", h.Taxonomy.GetCategory, cached...)
	c.POST("", h.Taxonomy.CreateCategory, authn, admin)
	c.PUT("/:id", h.Taxonomy.UpdateCategory, authn, admin)
	c.DELETE("/:id", h.Taxonomy.DeleteCategory, authn, admin)

	t := api.Group("/tags")
	t.GET("", h.Taxonomy.ListTags, cached...)
	t.GET("/:id", h.Taxonomy.GetTag, cached...)
	t.POST("", h.Taxonomy.CreateTag, authn, admin)
	t.PUT("/:id", h.Taxonomy.UpdateTag, authn, admin)
	t.DELETE("/:id", h.Taxonomy.DeleteTag, authn, admin)
}

func registerPosts(api *echo.Group, h Handlers, authn echo.MiddlewareFunc) {
	owner := middleware.RequireOwnerOrRole(h.Posts.Posts.OwnerOf, model.RoleAdmin)

	g := api.Group("/posts")
	// The slug lookup bumps the view counter, so only the list is cached.
	g.GET("", h.Posts.List, optional(h.CacheReads)...)
	g.GET("/:slug", h.Posts.GetBySlug)
	g.POST("", h.Posts.Create, authn)
	g.PUT("/:id", h.Posts.Update, authn, owner)
	g.DELETE("/:id", h.Posts.Delete, authn, owner)
}

func registerComments(api *echo.Group, h Handlers, authn, admin echo.MiddlewareFunc) {
	owner := middleware.RequireOwnerOrRole(h.Comments.Comments.OwnerOf, model.RoleAdmin)

	g := api.Group("/comments")
	g.GET("/post/:postId", h.Comments.ListByPost)
	g.POST("", h.Comments.Create, authn)
	g.DELETE("/:id", h.Comments.Delete, authn, owner)
	g.PUT("/:id/approve", h.Comments.Approve, authn, admin)
}

func optional(m echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if m == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m}
}
