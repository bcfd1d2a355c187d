package students

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/corebox-crm/corebox/internal/platform/httpx"
	"github.com/corebox-crm/corebox/internal/shared"
)

// Handler manages student directory endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers student directory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/students", h.createStudent)
	r.Get("/students", h.listStudents)
	r.Get("/students/{id}", h.getStudent)
	r.Patch("/students/{id}", h.updateStudent)
}

func (h *Handler) createStudent(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())

	var input CreateStudentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", validationDetail(err))
		return
	}

	student, err := h.service.Create(r.Context(), ownerID, input)
	if err != nil {
		h.logger.Error("create student", slog.Any("error", err), slog.Int64("owner_id", ownerID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, student)
}

func (h *Handler) getStudent(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	studentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || studentID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Path", "id must be a positive integer")
		return
	}

	student, err := h.service.Get(r.Context(), ownerID, studentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, student)
}

func (h *Handler) updateStudent(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	studentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || studentID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Path", "id must be a positive integer")
		return
	}

	var input UpdateStudentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", validationDetail(err))
		return
	}

	student, err := h.service.Update(r.Context(), ownerID, studentID, input)
	if err != nil {
		h.logger.Error("update student", slog.Any("error", err), slog.Int64("owner_id", ownerID), slog.Int64("student_id", studentID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, student)
}

func (h *Handler) listStudents(w http.ResponseWriter, r *http.Request) {
	ownerID := shared.OwnerFromContext(r.Context())
	activeOnly := r.URL.Query().Get("active") == "true"

	list, err := h.service.List(r.Context(), ownerID, activeOnly)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Student{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fieldErrs[0].Field() + " failed " + fieldErrs[0].Tag() + " validation"
	}
	return err.Error()
}
