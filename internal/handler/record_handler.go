package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-records-console/internal/models"
	"github.com/noah-isme/sma-records-console/internal/service"
	appErrors "github.com/noah-isme/sma-records-console/pkg/errors"
	"github.com/noah-isme/sma-records-console/pkg/response"
)

type recordService interface {
	List(ctx context.Context, resource string, query url.Values) (service.ListResult, error)
	Get(ctx context.Context, resource, id string) (models.Record, error)
	Create(ctx context.Context, resource string, body models.Record) (models.Record, error)
	Replace(ctx context.Context, resource, id string, body models.Record) (models.Record, error)
	Delete(ctx context.Context, resource, id string) error
}

// RecordHandler serves the record collections over REST.
type RecordHandler struct {
	service recordService
}

// NewRecordHandler builds a new handler.
func NewRecordHandler(service recordService) *RecordHandler {
	return &RecordHandler{service: service}
}

// Register mounts the collection routes.
func (h *RecordHandler) Register(r gin.IRoutes) {
	r.GET("/:resource", h.List)
	r.POST("/:resource", h.Create)
	r.GET("/:resource/:id", h.Get)
	r.PUT("/:resource/:id", h.Replace)
	r.DELETE("/:resource/:id", h.Delete)
}

// List godoc
// @Summary List records of a collection
// @Tags Records
// @Produce json
// @Param resource path string true "Collection (students, courses, instructors, employees)"
// @Param q query string false "Case-insensitive search over all fields"
// @Param _page query int false "Page number"
// @Param _limit query int false "Page size"
// @Param _sort query string false "Sort field"
// @Param _order query string false "asc or desc"
// @Success 200 {array} object
// @Header 200 {integer} X-Total-Count "Filtered total"
// @Router /{resource} [get]
func (h *RecordHandler) List(c *gin.Context) {
	res, err := h.service.List(c.Request.Context(), c.Param("resource"), c.Request.URL.Query())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, res.Items, res.Total)
}

// Get godoc
// @Summary Get one record
// @Tags Records
// @Produce json
// @Param resource path string true "Collection"
// @Param id path string true "Record ID"
// @Success 200 {object} object
// @Failure 404 {object} response.Envelope
// @Router /{resource}/{id} [get]
func (h *RecordHandler) Get(c *gin.Context) {
	rec, err := h.service.Get(c.Request.Context(), c.Param("resource"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec)
}

// Create godoc
// @Summary Create a record; the server assigns the id
// @Tags Records
// @Accept json
// @Produce json
// @Param resource path string true "Collection"
// @Success 201 {object} object
// @Failure 409 {object} response.Envelope
// @Router /{resource} [post]
func (h *RecordHandler) Create(c *gin.Context) {
	body, ok := bindRecord(c)
	if !ok {
		return
	}
	rec, err := h.service.Create(c.Request.Context(), c.Param("resource"), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rec)
}

// Replace godoc
// @Summary Replace a record
// @Tags Records
// @Accept json
// @Produce json
// @Param resource path string true "Collection"
// @Param id path string true "Record ID"
// @Success 200 {object} object
// @Failure 404 {object} response.Envelope
// @Router /{resource}/{id} [put]
func (h *RecordHandler) Replace(c *gin.Context) {
	body, ok := bindRecord(c)
	if !ok {
		return
	}
	rec, err := h.service.Replace(c.Request.Context(), c.Param("resource"), c.Param("id"), body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rec)
}

// Delete godoc
// @Summary Delete a record
// @Tags Records
// @Produce json
// @Param resource path string true "Collection"
// @Param id path string true "Record ID"
// @Success 200 {object} object
// @Failure 404 {object} response.Envelope
// @Router /{resource}/{id} [delete]
func (h *RecordHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("resource"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{})
}

func bindRecord(c *gin.Context) (models.Record, bool) {
	var body models.Record
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid record payload"))
		return nil, false
	}
	if body == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "record payload must be a JSON object"))
		return nil, false
	}
	return body, true
}
