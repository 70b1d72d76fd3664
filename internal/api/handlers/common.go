package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

var timeNow = time.Now

// ErrorResponse is the uniform error envelope for every API failure.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// ListEnvelope is the uniform shape of every list endpoint.
type ListEnvelope struct {
	Data   interface{} `json:"data"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

func abortError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Status: status})
}

// abortDBError maps sql.ErrNoRows to 404 and everything else to a generic
// 500; internal detail never reaches the client.
func abortDBError(c *gin.Context, err error, notFoundMsg string) {
	if errors.Is(err, sql.ErrNoRows) {
		abortError(c, http.StatusNotFound, notFoundMsg)
		return
	}
	abortError(c, http.StatusInternalServerError, "internal server error")
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		abortError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// idParamZero is idParam for path values where zero is legal, like slot
// indexes.
func idParamZero(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 0 {
		abortError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

type pageQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

func (q *pageQuery) clamp() {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}
