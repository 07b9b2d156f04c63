package utils

import (
	"github.com/gofiber/fiber/v2"

	"proficiency/backend/apperr"
)

// SuccessResponse структура для успешных ответов
type SuccessResponse struct {
	OK   bool        `json:"ok"`
	Data interface{} `json:"data,omitempty"`
}

// ErrorBody is the error object inside ErrorResponse.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse структура для ошибок
type ErrorResponse struct {
	OK    bool      `json:"ok"`
	Error ErrorBody `json:"error"`
}

// Success создает успешный JSON ответ
func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(SuccessResponse{
		OK:   true,
		Data: data,
	})
}

// Created отправляет ответ 201 Created
func Created(c *fiber.Ctx, data interface{}) error {
	return Success(c, fiber.StatusCreated, data)
}

// Error writes err as a JSON error envelope. Errors outside the apperr
// taxonomy are reported as an opaque 500.
func Error(c *fiber.Ctx, err error) error {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Internal(err)
	}
	return c.Status(e.Status).JSON(ErrorResponse{
		OK: false,
		Error: ErrorBody{
			Code:    e.Code,
			Message: e.Message,
			Details: e.Details,
		},
	})
}

// ErrorHandler is installed as fiber's error handler so that handlers can return errors directly.
func ErrorHandler(logger *Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if fe, ok := err.(*fiber.Error); ok {
			return c.Status(fe.Code).JSON(ErrorResponse{
				OK:    false,
				Error: ErrorBody{Code: fiberCode(fe.Code), Message: fe.Message},
			})
		}
		e, ok := apperr.As(err)
		if !ok || e.Status >= fiber.StatusInternalServerError {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		}
		return Error(c, err)
	}
}

func fiberCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return apperr.CodeNotFound
	case fiber.StatusUnauthorized:
		return apperr.CodeUnauthorized
	default:
		if status >= fiber.StatusInternalServerError {
			return apperr.CodeInternal
		}
		return apperr.CodeBadRequest
	}
}

// PaginatedResponse is the data payload of list endpoints that page their results.
type PaginatedResponse struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

// Pagination reads page and page_size from the query string, falling back
// to page 1 of 20 and capping the size at 100.
func Pagination(c *fiber.Ctx) (page, pageSize, offset int) {
	page = c.QueryInt("page", 1)
	pageSize = c.QueryInt("page_size", 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize, (page - 1) * pageSize
}
