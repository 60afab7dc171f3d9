package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/DanielHaim/PanicDeck/internal/pkg/ingest"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, pipeline *ingest.App) {
	setup(app, NewApiRouter(pipeline))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
