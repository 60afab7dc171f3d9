package controllers

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/DanielHaim/PanicDeck/app/models"
	"github.com/DanielHaim/PanicDeck/internal/pkg/database"
	"github.com/DanielHaim/PanicDeck/internal/pkg/ingest"
	"github.com/DanielHaim/PanicDeck/internal/pkg/quota"
)

var ingestApp *ingest.App

// InitializeIngressController wires the pipeline context into the handler
func InitializeIngressController(app *ingest.App) {
	ingestApp = app
}

// HandleIngress accepts one occurrence submission. The synchronous part is
// deliberately small: parse, validate, resolve the API key, apply the
// quota guard. Everything else runs detached so the submitting client
// never pays for report, event or notification work.
func HandleIngress(c *fiber.Ctx) error {
	var sub ingest.Submission
	if err := c.BodyParser(&sub); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := sub.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing or invalid fields"})
	}

	db := database.GetDB()

	project, err := models.FindProjectByAPIKey(db, sub.Key)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "API key not found"})
		}
		fiberlog.Errorf("[Ingress] Project lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	org, err := models.FindOrganizationByID(db, project.OrganizationID)
	if err != nil {
		fiberlog.Errorf("[Ingress] Organization lookup for project %d failed: %v", project.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
	if !org.Enabled {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "organization disabled"})
	}

	if err := ingestApp.Accept(project, org, &sub); err != nil {
		if err == quota.ErrQuotaExceeded {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "request quota exceeded"})
		}
		fiberlog.Errorf("[Ingress] Accept for project %d failed: %v", project.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.SendStatus(fiber.StatusOK)
}
