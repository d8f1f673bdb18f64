package chat

import (
	"github.com/gofiber/fiber/v3"
)

func RegisterRoutes(r fiber.Router, h *Handler) {
	grp := r.Group("/api")

	grp.Post("/chat", h.HandleChat)
	grp.Post("/chat/compare", h.HandleCompare)
}
