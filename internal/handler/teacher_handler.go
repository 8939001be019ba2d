package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edumanager-api/internal/models"
	appErrors "github.com/noah-isme/edumanager-api/pkg/errors"
	"github.com/noah-isme/edumanager-api/pkg/response"
)

type teacherService interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error)
	Get(ctx context.Context, id string) (*models.Teacher, error)
	GetByUserID(ctx context.Context, userID string) (*models.Teacher, error)
	Create(ctx context.Context, req models.TeacherInput) (*models.Teacher, error)
	Update(ctx context.Context, id string, req models.TeacherUpdateInput) (*models.Teacher, error)
	UpdateDailyTasks(ctx context.Context, id string, tasks models.DailyTasks) (*models.Teacher, error)
	Delete(ctx context.Context, id string) error
}

// TeacherHandler manages teacher endpoints.
type TeacherHandler struct {
	service teacherService
}

// NewTeacherHandler constructs a TeacherHandler.
func NewTeacherHandler(service teacherService) *TeacherHandler {
	return &TeacherHandler{service: service}
}

type dailyTasksRequest struct {
	DailyTasks models.DailyTasks `json:"dailyTasks"`
}

// List godoc
// @Summary List teachers
// @Description With ?email= the list holds the single matching teacher or the call fails with 404.
// @Tags Teachers
// @Produce json
// @Param email query string false "Exact email"
// @Param department query string false "Department name"
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *TeacherHandler) List(c *gin.Context) {
	filter := models.TeacherFilter{
		Email:      c.Query("email"),
		Department: c.Query("department"),
	}
	teachers, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}

// Get godoc
// @Summary Get teacher detail
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [get]
func (h *TeacherHandler) Get(c *gin.Context) {
	teacher, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// GetByUser godoc
// @Summary Get the teacher bound to a user account
// @Tags Teachers
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/by-user/{userId} [get]
func (h *TeacherHandler) GetByUser(c *gin.Context) {
	teacher, err := h.service.GetByUserID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Create godoc
// @Summary Create teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param payload body models.TeacherInput true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Router /teachers [post]
func (h *TeacherHandler) Create(c *gin.Context) {
	var req models.TeacherInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	teacher, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, teacher)
}

// Update godoc
// @Summary Update teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body models.TeacherUpdateInput true "Teacher payload"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [put]
func (h *TeacherHandler) Update(c *gin.Context) {
	var req models.TeacherUpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	teacher, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// UpdateDailyTasks godoc
// @Summary Replace a teacher's weekly tasks
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body dailyTasksRequest true "Daily tasks keyed by weekday"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/dailyTasks [put]
func (h *TeacherHandler) UpdateDailyTasks(c *gin.Context) {
	var req dailyTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	teacher, err := h.service.UpdateDailyTasks(c.Request.Context(), c.Param("id"), req.DailyTasks)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Delete godoc
// @Summary Delete teacher
// @Tags Teachers
// @Param id path string true "Teacher ID"
// @Success 204
// @Router /teachers/{id} [delete]
func (h *TeacherHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
