package controllers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"civicreport-be/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var errBadRequest = errors.New("invalid request body")

// respondError writes the JSON error body for err and aborts the chain.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	_ = c.Error(err)

	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Errors})
	case errors.Is(err, errBadRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errBadRequest.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, models.ErrAlreadyExists):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.Is(err, models.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "conflict"})
	case errors.Is(err, models.ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, models.ErrStorageUnavailable):
		logger.ErrorContext(c.Request.Context(), "storage unavailable", slog.String("error", err.Error()))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
	default:
		logger.ErrorContext(c.Request.Context(), "request failed", slog.String("error", err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}

// bindingError converts a gin binding failure into a ValidationError when
// the body was well formed, or errBadRequest when it was not.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	fields := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, models.FieldError{Field: fieldPath(fe), Message: describe(fe)})
	}
	return &models.ValidationError{Errors: fields}
}

// fieldPath drops the request struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "is too long"
	case "min":
		return "is too short"
	case "email":
		return "is not a valid email"
	case "issuecategory":
		return "unknown category"
	case "issuepriority":
		return "unknown priority"
	case "issuestatus", "issuestatus|eq=all":
		return "unknown status"
	case "issuecategory|eq=all":
		return "unknown category"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "mongodb":
		return "is not a valid id"
	}
	return "failed " + fe.Tag() + " check"
}
