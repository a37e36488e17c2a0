package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tmcnulty/registrar/internal/models"
	"github.com/tmcnulty/registrar/internal/services"
	pkghttp "github.com/tmcnulty/registrar/pkg/http"
)

// StudentServiceInterface defines the interface for student administration
type StudentServiceInterface interface {
	List(ctx context.Context, page, limit int) (*services.StudentListResponse, error)
	Get(ctx context.Context, id string) (*services.StudentResponse, error)
	Create(ctx context.Context, name, email, course, password string) (*services.StudentResponse, error)
	Update(ctx context.Context, id, name, email, course string) (*services.StudentResponse, error)
	Delete(ctx context.Context, id string) error
}

// StudentHandler handles the admin-only student CRUD surface
type StudentHandler struct {
	service StudentServiceInterface
}

// NewStudentHandler creates a new StudentHandler
func NewStudentHandler(service StudentServiceInterface) *StudentHandler {
	return &StudentHandler{service: service}
}

// CreateStudentRequest represents the request body for creating a student
type CreateStudentRequest struct {
	Name     string `json:"name" validate:"required,min=1"`
	Email    string `json:"email" validate:"required,email"`
	Course   string `json:"course" validate:"required,min=1"`
	Password string `json:"password" validate:"required"`
}

// UpdateStudentRequest represents the request body for updating a student
type UpdateStudentRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email" validate:"omitempty,email"`
	Course string `json:"course"`
}

// List returns a page of students
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	resp, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Get returns a single student by id
func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	student, err := h.service.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Student not found")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, student)
}

// Create provisions a new student account
func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	student, err := h.service.Create(r.Context(), req.Name, req.Email, req.Course, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDuplicateEmail):
			pkghttp.WriteConflict(w, "Email is already registered")
		case errors.Is(err, models.ErrWeakPassword):
			pkghttp.WriteBadRequest(w, "Password must be at least 6 characters")
		case errors.Is(err, models.ErrMissingProfileFields):
			pkghttp.WriteBadRequest(w, "Name and course are required")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, student)
}

// Update changes a student's name, course or email
func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	student, err := h.service.Update(r.Context(), id, req.Name, req.Email, req.Course)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Student not found")
		case errors.Is(err, models.ErrDuplicateEmail):
			pkghttp.WriteConflict(w, "Email is already registered")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, student)
}

// Delete removes a student and the owning account
func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Student not found")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Student deleted successfully"})
}
