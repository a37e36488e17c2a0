package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/tmcnulty/registrar/internal/auth"
	"github.com/tmcnulty/registrar/internal/models"
	"github.com/tmcnulty/registrar/internal/services"
	pkghttp "github.com/tmcnulty/registrar/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds session claims to the request context for testing
// authenticated endpoints
func WithAuthContext(req *http.Request, userID, email string) *http.Request {
	claims := &models.SessionClaims{
		UserID: userID,
		Email:  email,
		Type:   "session",
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithURLParam injects a chi route parameter into the request context
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.True(t, strings.HasPrefix(contentType, "application/json"), "Content-Type should be application/json")

	if target != nil {
		err := json.NewDecoder(w.Body).Decode(target)
		assert.NoError(t, err, "Failed to decode JSON response")
	}
}

// AssertErrorResponse checks that response is an error with expected status and code
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var errResp pkghttp.ErrorResponse
	err := json.NewDecoder(w.Body).Decode(&errResp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedCode, errResp.Error, "Error code mismatch")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc       func(ctx context.Context, email, password, role, name, course string) (*services.AuthResponse, error)
	LoginFunc          func(ctx context.Context, email, password string) (*services.AuthResponse, error)
	ChangePasswordFunc func(ctx context.Context, userID, currentPassword, newPassword string) error
	GetProfileFunc     func(ctx context.Context, userID string) (*services.ProfileResponse, error)
	UpdateProfileFunc  func(ctx context.Context, userID, name, email, course string) (*services.ProfileResponse, error)
}

func (m *MockAuthService) Register(ctx context.Context, email, password, role, name, course string) (*services.AuthResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, role, name, course)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, userID, currentPassword, newPassword)
	}
	return nil
}

func (m *MockAuthService) GetProfile(ctx context.Context, userID string) (*services.ProfileResponse, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockAuthService) UpdateProfile(ctx context.Context, userID, name, email, course string) (*services.ProfileResponse, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, userID, name, email, course)
	}
	return nil, models.ErrNotFound
}

// MockVerificationService implements VerificationServiceInterface for testing
type MockVerificationService struct {
	RequestFunc func(ctx context.Context, userID string) error
	ConfirmFunc func(ctx context.Context, plainToken string) (string, error)
}

func (m *MockVerificationService) Request(ctx context.Context, userID string) error {
	if m.RequestFunc != nil {
		return m.RequestFunc(ctx, userID)
	}
	return nil
}

func (m *MockVerificationService) Confirm(ctx context.Context, plainToken string) (string, error) {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, plainToken)
	}
	return "", models.ErrInvalidOrExpiredToken
}

// MockPasswordResetService implements PasswordResetServiceInterface for testing
type MockPasswordResetService struct {
	RequestFunc func(ctx context.Context, email string) error
	ConfirmFunc func(ctx context.Context, plainToken, newPassword string) error
}

func (m *MockPasswordResetService) Request(ctx context.Context, email string) error {
	if m.RequestFunc != nil {
		return m.RequestFunc(ctx, email)
	}
	return nil
}

func (m *MockPasswordResetService) Confirm(ctx context.Context, plainToken, newPassword string) error {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, plainToken, newPassword)
	}
	return models.ErrInvalidOrExpiredToken
}

// MockStudentService implements StudentServiceInterface for testing
type MockStudentService struct {
	ListFunc   func(ctx context.Context, page, limit int) (*services.StudentListResponse, error)
	GetFunc    func(ctx context.Context, id string) (*services.StudentResponse, error)
	CreateFunc func(ctx context.Context, name, email, course, password string) (*services.StudentResponse, error)
	UpdateFunc func(ctx context.Context, id, name, email, course string) (*services.StudentResponse, error)
	DeleteFunc func(ctx context.Context, id string) error
}

func (m *MockStudentService) List(ctx context.Context, page, limit int) (*services.StudentListResponse, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, page, limit)
	}
	return &services.StudentListResponse{}, nil
}

func (m *MockStudentService) Get(ctx context.Context, id string) (*services.StudentResponse, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockStudentService) Create(ctx context.Context, name, email, course, password string) (*services.StudentResponse, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, name, email, course, password)
	}
	return nil, models.ErrInternalServer
}

func (m *MockStudentService) Update(ctx context.Context, id, name, email, course string) (*services.StudentResponse, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, name, email, course)
	}
	return nil, models.ErrNotFound
}

func (m *MockStudentService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}
