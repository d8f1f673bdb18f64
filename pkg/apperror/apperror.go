package apperror

import (
	"fmt"

	"ai-course-tutor/config"
	"ai-course-tutor/pkg/apperror/status"
	"ai-course-tutor/pkg/logger"

	"github.com/gofiber/fiber/v3"
)

// ErrorResponse is the standardized HTTP error payload
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

type FiberSuccessMessage struct {
	Code       status.SuccessCode `json:"code"`
	Message    string             `json:"message"`
	TrackingID string             `json:"tracking_id"`
	Data       any                `json:"data"`
}

// WriteError logs a structured warning and returns a standardized JSON error
func WriteError(module config.Module, c fiber.Ctx, httpStatus int, code string, message string) error {
	logger.WithFields(map[string]interface{}{
		"module":        module,
		"status_code":   httpStatus,
		"error_code":    code,
		"error_message": message,
		"http_method":   c.Method(),
		"path":          c.Path(),
		"ip":            c.IP(),
	}).Warnf("http error")

	return c.Status(httpStatus).JSON(ErrorResponse{
		Error:     message,
		ErrorCode: code,
	})
}

// Shorthands for common error responses
func BadRequest(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusBadRequest, fmt.Sprintf("AI-%d", code), message)
}

func Forbidden(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusForbidden, fmt.Sprintf("AI-%d", code), message)
}

func RequestTooLarge(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusRequestEntityTooLarge, fmt.Sprintf("AI-%d", code), message)
}

// InternalError writes a structured warning and returns a standardized JSON error
func InternalError(module config.Module, c fiber.Ctx, err error) error {
	return WriteError(module, c, fiber.StatusInternalServerError,
		fmt.Sprintf("AI-%d", status.ErrorCodeInternal), err.Error())
}

// Success writes a standardized JSON success response
func Success(module config.Module, c fiber.Ctx, response FiberSuccessMessage) error {
	return c.Status(fiber.StatusOK).JSON(response)
}
