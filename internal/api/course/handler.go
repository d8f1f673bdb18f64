package course

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"ai-course-tutor/config"
	"ai-course-tutor/internal/contextstore"
	"ai-course-tutor/pkg/apperror"
	"ai-course-tutor/pkg/apperror/status"
)

type Handler struct {
	store *contextstore.Store
}

func NewHandler(store *contextstore.Store) *Handler {
	return &Handler{store: store}
}

type courseInfo struct {
	CourseKey string `json:"course_key"`
	Title     string `json:"title"`
}

// HandleList returns the courses the loaded dataset can answer about.
func (h *Handler) HandleList(c fiber.Ctx) error {
	courses := h.store.Courses()
	out := make([]courseInfo, 0, len(courses))
	for _, cs := range courses {
		out = append(out, courseInfo{CourseKey: cs.CourseKey, Title: cs.Title})
	}
	return apperror.Success(config.ModuleContext, c, apperror.FiberSuccessMessage{
		Code:    status.OK,
		Message: "courses ok",
		Data:    out,
	})
}

// HandleTOC returns the table of contents of one course.
func (h *Handler) HandleTOC(c fiber.Ctx) error {
	courseKey := c.Params("key")
	toc, err := h.store.GetTOC(context.Background(), courseKey)
	if err != nil {
		return apperror.InternalError(config.ModuleContext, c, err)
	}
	if toc == "" {
		return apperror.BadRequest(config.ModuleContext, c, status.ChatMissingParams, "unknown course key")
	}
	return apperror.Success(config.ModuleContext, c, apperror.FiberSuccessMessage{
		Code:    status.OK,
		Message: "toc ok",
		Data:    fiber.Map{"course_key": courseKey, "toc": toc},
	})
}

func RegisterRoutes(r fiber.Router, h *Handler) {
	grp := r.Group("/api/courses")

	grp.Get("/", h.HandleList)
	grp.Get("/:key/toc", h.HandleTOC)
}
