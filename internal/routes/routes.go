package routes

import (
	"github.com/gofiber/fiber/v2"

	"lead-automation-service/internal/controller"
)

// Register attaches all HTTP routes to the Fiber app.
func Register(app *fiber.App, eventController controller.EventController) {
	app.Post("/events", eventController.CreateEvent)
	app.Get("/metrics", eventController.GetMetrics)

	app.Get("/rules", eventController.ListRules)
	app.Get("/campaigns", eventController.ListCampaigns)
	app.Get("/subjects/:id/enrollments", eventController.ListEnrollments)
	app.Post("/enrollments/:id/resume", eventController.ResumeEnrollment)
	app.Get("/alerts", eventController.ListAlerts)
	app.Post("/alerts/:id/ack", eventController.AckAlert)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
