package core

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// respondError sends unified error payload {"error": {"code", "message"}}.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// respondFailure renders an AuthError with its own status and code; any
// other error is logged and hidden behind a 500.
func respondFailure(c *gin.Context, err error) {
	var ae *AuthError
	if !errors.As(err, &ae) {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error")
		return
	}
	body := gin.H{"code": ae.Code(), "message": ae.PublicMessage()}
	if fields := validationFields(ae.Err); len(fields) > 0 {
		body["fields"] = fields
	}
	c.JSON(ae.Status(), gin.H{"error": body})
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
	maxPage        = 1_000_000
)

func parsePagination(pageStr, perPageStr string) (int, int, error) {
	page := 1
	perPage := defaultPerPage
	if strings.TrimSpace(pageStr) != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, errors.New("page must be a positive integer")
		}
		if p > maxPage {
			return 0, 0, errors.New("page is out of range")
		}
		page = p
	}
	if strings.TrimSpace(perPageStr) != "" {
		p, err := strconv.Atoi(perPageStr)
		if err != nil || p <= 0 {
			return 0, 0, errors.New("per_page must be a positive integer")
		}
		if p > maxPerPage {
			p = maxPerPage
		}
		perPage = p
	}
	return page, perPage, nil
}

func calcTotalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
