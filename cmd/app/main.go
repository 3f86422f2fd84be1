package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/yardhoppers/config"
	"github.com/Domenick1991/yardhoppers/internal/bootstrap"
	"github.com/Domenick1991/yardhoppers/internal/cache"
	"github.com/Domenick1991/yardhoppers/internal/kafka"
	"github.com/Domenick1991/yardhoppers/internal/repository"
	"github.com/Domenick1991/yardhoppers/internal/service/booking"
	"github.com/Domenick1991/yardhoppers/internal/service/listings"
	"github.com/Domenick1991/yardhoppers/internal/service/messages"
	"github.com/Domenick1991/yardhoppers/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := repository.ApplySchema(ctx, pool); err != nil {
			log.Fatalf("apply schema: %v", err)
		}
	}

	listingRepo := repository.NewListingRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)

	bookingOpts := []booking.BookingServiceOption{
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	}

	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis)
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("WARNING: redis unavailable, booking writes rely on postgres only: %v", err)
		}
		bookingOpts = append(bookingOpts, booking.WithListingLock(
			redisCache, cfg.Booking.LockTTL(), cfg.Booking.LockRetries, cfg.Booking.LockBackoff()))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			log.Printf("WARNING: kafka unavailable, booking events may be dropped: %v", err)
		}
		bookingOpts = append(bookingOpts, booking.WithProducer(producer, cfg.Kafka.BookingTopic))
	}

	services := bootstrap.Services{
		Bookings: booking.NewBookingService(bookingRepo, listingRepo, bookingOpts...),
		Messages: messages.NewMessageService(messageRepo, listingRepo),
	}

	var photos storage.PhotoStore
	if cfg.Mongo.URI != "" {
		client, err := storage.NewMongoClient(ctx, cfg.Mongo.URI)
		if err != nil {
			log.Fatalf("connect mongo: %v", err)
		}
		defer client.Disconnect(context.Background())

		photos = storage.NewGridFSStore(client, cfg.Mongo.Database, cfg.Mongo.PublicBaseURL,
			storage.WithBucket(cfg.Mongo.Bucket))
		services.Photos = photos
	}
	services.Listings = listings.NewListingService(listingRepo, photos)

	if err := bootstrap.Run(ctx, cfg, services); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
