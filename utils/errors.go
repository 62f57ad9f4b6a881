package utils

import (
	"errors"

	"github.com/VarunDhamode/SciEquip-Website/services"
	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

func CreateError(statusCode int, title string, detail string, ctx iris.Context) {
	ctx.StopWithJSON(statusCode, iris.Map{"error": title, "message": detail})
}

func CreateInternalServerError(ctx iris.Context) {
	CreateError(iris.StatusInternalServerError, "Internal Server Error", "an unexpected error occurred, please retry", ctx)
}

func CreateNotFound(ctx iris.Context) {
	CreateError(iris.StatusNotFound, "Not Found", "resource not found", ctx)
}

func HandleValidationErrors(err error, ctx iris.Context) {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{
			"error":   "Validation error",
			"message": "one or more fields failed validation",
			"fields":  wrapValidationErrors(errs),
		})
		return
	}
	CreateError(iris.StatusBadRequest, "Bad Request", "malformed request body", ctx)
}

type validationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Value string `json:"value,omitempty"`
}

func wrapValidationErrors(errs validator.ValidationErrors) []validationError {
	out := make([]validationError, 0, len(errs))
	for _, e := range errs {
		out = append(out, validationError{Field: e.Field(), Tag: e.Tag(), Value: e.Param()})
	}
	return out
}

// HandleServiceError maps the service error taxonomy onto HTTP responses.
// Storage failures deliberately leak no internal detail.
func HandleServiceError(err error, ctx iris.Context) {
	var (
		validation  *services.ValidationError
		referential *services.ReferentialError
		notFound    *services.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		CreateError(iris.StatusBadRequest, "Validation error", validation.Reason, ctx)
	case errors.As(err, &referential):
		CreateError(iris.StatusUnprocessableEntity, "Unknown reference", referential.Reason, ctx)
	case errors.As(err, &notFound):
		CreateError(iris.StatusNotFound, "Not Found", notFound.Error(), ctx)
	default:
		CreateInternalServerError(ctx)
	}
}
