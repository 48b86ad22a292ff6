// internal/router/router.go
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/shopgraph/catalog-backend/internal/cache"
	"github.com/shopgraph/catalog-backend/internal/config"
	"github.com/shopgraph/catalog-backend/internal/graph"
	"github.com/shopgraph/catalog-backend/internal/handlers"
	"github.com/shopgraph/catalog-backend/internal/middleware"
	"github.com/shopgraph/catalog-backend/internal/repository"
	"github.com/shopgraph/catalog-backend/internal/services"
)

// documentStore narrows *repository.ProductRepository to the services
// contract. Go methods cannot covary on return types, so Txn is forwarded by
// hand while everything else comes through the embedded repository.
type documentStore struct {
	*repository.ProductRepository
}

func (s documentStore) Txn(ctx context.Context) (services.DocumentTxn, error) {
	return s.ProductRepository.Txn(ctx)
}

// graphStore does the same for *graph.Store's Begin.
type graphStore struct {
	*graph.Store
}

func (s graphStore) Begin(ctx context.Context) (services.GraphTx, error) {
	return s.Store.Begin(ctx)
}

func Initialize(db *gorm.DB, mongoClient *mongo.Client, graphDB *graph.Store, productCache *cache.Cache, cfg *config.Config) *gin.Engine {
	// Store adapters
	collection := mongoClient.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
	docs := documentStore{repository.NewProductRepository(mongoClient, collection, cfg.Mongo.OperationTimeout())}
	categories := repository.NewCategoryRepository(db)
	graphWrites := graphStore{graphDB}

	// Services
	catalogService := services.NewCatalogService(docs, graphWrites, categories, productCache)
	readService := services.NewProductReadService(docs, productCache, graphDB)
	activityService := services.NewActivityService(docs, graphDB, productCache)
	recommendationService := services.NewRecommendationService(graphDB, docs, cfg.Recommend)

	// Handlers
	productHandler := handlers.NewProductHandler(catalogService, readService)
	categoryHandler := handlers.NewCategoryHandler(catalogService)
	activityHandler := handlers.NewActivityHandler(activityService, readService)
	recommendationHandler := handlers.NewRecommendationHandler(recommendationService)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.GeneralRateLimit())

	// Health check reports connectivity per backing store.
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		stores := gin.H{
			"postgres": storeStatus(pingPostgres(db)),
			"mongodb":  storeStatus(mongoClient.Ping(ctx, nil)),
			"neo4j":    storeStatus(graphDB.Ping(ctx)),
			"redis":    storeStatus(productCache.Ping(ctx)),
		}

		status := "healthy"
		code := http.StatusOK
		for _, s := range stores {
			if s != "up" {
				status = "degraded"
				code = http.StatusServiceUnavailable
				break
			}
		}

		c.JSON(code, gin.H{
			"status":  status,
			"version": "1.0.0",
			"stores":  stores,
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		products := v1.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/most-viewed", productHandler.GetMostViewed)
			products.GET("/:id", productHandler.GetProduct)

			// Mutations fan out to three stores
			writes := products.Group("")
			writes.Use(middleware.WriteRateLimit())
			{
				writes.POST("", productHandler.CreateProduct)
				writes.PATCH("/:id", productHandler.UpdateProduct)
				writes.DELETE("/:id", productHandler.DeleteProduct)
				writes.POST("/:id/view", activityHandler.RecordView)
				writes.POST("/:id/purchase", activityHandler.RecordPurchase)
				writes.POST("/:id/rating", activityHandler.RecordRating)
			}

			reco := products.Group("")
			reco.Use(middleware.RecommendationRateLimit())
			{
				reco.GET("/:id/frequently-bought-together", recommendationHandler.GetFrequentlyBoughtTogether)
				reco.GET("/:id/path/:target", recommendationHandler.GetProductPath)
			}
		}

		customers := v1.Group("/customers")
		customers.Use(middleware.RecommendationRateLimit())
		{
			customers.GET("/:id/similar-picks", recommendationHandler.GetSimilarCustomerPicks)
			customers.GET("/:id/category-picks", recommendationHandler.GetCategoryPicks)
		}

		categoriesGroup := v1.Group("/categories")
		{
			categoriesGroup.POST("/reassign", middleware.WriteRateLimit(), categoryHandler.ReassignCategory)
		}

		v1.GET("/influencers", middleware.RecommendationRateLimit(), recommendationHandler.GetInfluencers)
	}

	return r
}

func pingPostgres(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func storeStatus(err error) string {
	if err != nil {
		return "down"
	}
	return "up"
}
