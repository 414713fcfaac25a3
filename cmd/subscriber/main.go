// ============================================================================
// cmd/subscriber/main.go - Example Subscriber (Consumer)
// ============================================================================
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/aman-zulfiqar/constant-product-amm/internal/cache"
	"github.com/aman-zulfiqar/constant-product-amm/internal/config"
	"github.com/aman-zulfiqar/constant-product-amm/internal/constants"
	"github.com/aman-zulfiqar/constant-product-amm/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	account := flag.String("account", "", "also follow events for this account")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	rclient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rclient.Close()
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	pubsub := cache.NewPubSubManager(rclient, logger)

	logger.Info("starting pool event subscriber")

	// Subscribe to all events
	go func() {
		_ = pubsub.Subscribe(ctx, constants.PubSubChannelEvents, func(ev *models.PoolEvent) {
			logger.WithFields(logrus.Fields{
				"pool":     ev.Pool,
				"version":  ev.Version,
				"account":  ev.Account,
				"amount1":  ev.Amount1,
				"amount2":  ev.Amount2,
				"reserve1": ev.Reserve1,
				"reserve2": ev.Reserve2,
			}).Infof("event %s", ev.Kind)
		})
	}()

	// Subscribe to swaps only
	go func() {
		_ = pubsub.Subscribe(ctx, constants.PubSubChannelKindPrefix+string(models.EventSwap), func(ev *models.PoolEvent) {
			logger.Infof("swap %s: %s/%s", ev.Direction, ev.Amount1, ev.Amount2)
		})
	}()

	// Subscribe to one account
	if *account != "" {
		go func() {
			_ = pubsub.Subscribe(ctx, constants.PubSubChannelAccountPrefix+*account, func(ev *models.PoolEvent) {
				logger.WithField("version", ev.Version).Infof("account %s: %s", ev.Account, ev.Kind)
			})
		}()
	}

	// Subscribe to pattern (every kind channel)
	go func() {
		_ = pubsub.PSubscribe(ctx, constants.PubSubChannelKindPrefix+"*", func(ev *models.PoolEvent) {
			logger.Debugf("pattern match: %s", ev.Kind)
		})
	}()

	logger.Info("subscriber running, press Ctrl+C to stop")

	<-sigChan
	logger.Info("shutting down subscriber")
}
