package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/showfolio/showfolio-backend/internal/api/http"
	"github.com/showfolio/showfolio-backend/internal/auth"
	"github.com/showfolio/showfolio-backend/internal/projects"
	"github.com/showfolio/showfolio-backend/internal/session"
	"github.com/showfolio/showfolio-backend/internal/storage"
)

type RouterDeps struct {
	ServiceName string
	Version     string

	Deps *AppDeps

	SignInRatePerMin int
	SignInBurst      int
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Deps.DB, dep.Deps.Redis)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	api.Use(auth.WithSession(dep.Deps.Provider, dep.Deps.Manager))

	authHandler := auth.NewHandler(dep.Deps.Manager, dep.Deps.Provider, dep.SignInRatePerMin, dep.SignInBurst)
	authHandler.Register(api.Group("/auth"))
	authHandler.RegisterUsers(api.Group("/users"))

	projects.Register(api.Group("/projects"), dep.Deps.Store, dep.Deps.Favorites)
	projects.RegisterFavorites(api.Group("/favorites"), dep.Deps.Favorites)

	storage.Register(api.Group("/uploads"), dep.Deps.Storage)

	return r
}

// AppDeps bundles the explicitly constructed store instances handed to the
// presentation layer at startup.
type AppDeps struct {
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Provider  session.Provider
	Manager   *auth.Manager
	Store     *projects.Store
	Favorites *projects.Favorites
	Storage   *storage.Client
}
