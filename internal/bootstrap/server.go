package bootstrap

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/Domenick1991/yardhoppers/api"
	"github.com/Domenick1991/yardhoppers/config"
	"github.com/Domenick1991/yardhoppers/internal/middleware"
	"github.com/Domenick1991/yardhoppers/internal/service/booking"
	"github.com/Domenick1991/yardhoppers/internal/service/listings"
	"github.com/Domenick1991/yardhoppers/internal/service/messages"
	"github.com/Domenick1991/yardhoppers/internal/storage"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.json
var openAPIDoc []byte

// Services are the use cases served over HTTP. Photos may be nil.
type Services struct {
	Listings listings.ListingUseCase
	Bookings booking.BookingUseCase
	Messages messages.MessageUseCase
	Photos   storage.PhotoStore
}

// Run serves HTTP and blocks until ctx is canceled or the server fails.
func Run(ctx context.Context, cfg *config.Config, svc Services) error {
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           NewRouter(cfg, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("http server listening on %s", cfg.HTTP.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func NewRouter(cfg *config.Config, svc Services) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.Authenticate(cfg.Auth.JWTSecret))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	listingsGroup := router.Group("/listings")
	api.NewListingHandler(svc.Listings).Register(listingsGroup)
	api.NewMessageHandler(svc.Messages).Register(listingsGroup, router.Group("/messages"))
	bookings := api.NewBookingHandler(svc.Bookings)
	bookings.Register(router.Group("/bookings"))
	bookings.RegisterAdmin(router.Group("/admin"))

	if svc.Photos != nil {
		api.NewPhotoHandler(svc.Photos).Register(router.Group("/photos"))
	}

	if cfg.HTTP.Docs {
		router.GET("/openapi.json", func(c *gin.Context) {
			c.Data(http.StatusOK, "application/json", openAPIDoc)
		})
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))
	}

	return router
}
