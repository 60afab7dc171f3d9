package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/DanielHaim/PanicDeck/internal/pkg/cache"
	"github.com/DanielHaim/PanicDeck/internal/pkg/database"
	"github.com/DanielHaim/PanicDeck/internal/pkg/env"
	"github.com/DanielHaim/PanicDeck/internal/pkg/ingest"
	"github.com/DanielHaim/PanicDeck/internal/pkg/metrics/counter"
	"github.com/DanielHaim/PanicDeck/internal/pkg/notify"
	"github.com/DanielHaim/PanicDeck/internal/pkg/quota"
	"github.com/DanielHaim/PanicDeck/internal/pkg/router"
	"github.com/DanielHaim/PanicDeck/internal/pkg/taskpool"
)

const counterFlushInterval = 30 * time.Second

func main() {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	baseURL := env.GetEnv("APP_BASE_URL", "http://localhost:4000")

	dispatcher := notify.NewDispatcher(database.GetDB(), notify.Config{
		BaseURL:          baseURL,
		PushoverAppToken: env.GetEnv("PUSHOVER_APP_TOKEN", ""),
	})
	dispatcher.Start()

	pool := taskpool.NewPool(ingestWorkerCount())
	pool.Start()

	guard := quota.NewGuard(database.GetDB(), baseURL)
	pipeline := ingest.NewApp(database.GetDB(), pool, dispatcher, guard)

	app := fiber.New(fiber.Config{
		BodyLimit: 1048576, // 1 MiB, occurrence payloads are bounded anyway
	})

	// recovery and logging
	app.Use(recover.New(), fiberlogger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	router.InstallRouter(app, pipeline)

	// periodic flush of the redis-buffered project counters
	flushStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(counterFlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := counter.FlushAll(); err != nil {
					log.Printf("Counter flush failed: %v", err)
				}
			case <-flushStop:
				return
			}
		}
	}()

	// shut down in pipeline order: stop accepting, drain detached work,
	// then deliver whatever the dispatcher still holds
	shutdownDone := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		log.Println("Shutting down...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}

		pool.Stop(taskpool.DefaultDrainGrace)
		dispatcher.Stop()
		close(flushStop)

		if err := counter.FlushAll(); err != nil {
			log.Printf("Final counter flush failed: %v", err)
		}

		close(shutdownDone)
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Fatal(err)
	}

	<-shutdownDone
}

func ingestWorkerCount() int {
	workers := env.GetEnvInt("INGEST_WORKERS", 8)
	if workers <= 0 {
		return 8
	}
	return workers
}
