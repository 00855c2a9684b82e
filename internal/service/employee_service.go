package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peoplehub/people-api/internal/models"
	appErrors "github.com/peoplehub/people-api/pkg/errors"
)

type employeeRepository interface {
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error)
	FindByID(ctx context.Context, id string) (*models.Employee, error)
	FindByEmail(ctx context.Context, email string) (*models.Employee, error)
	Create(ctx context.Context, employee *models.Employee) error
	Update(ctx context.Context, employee *models.Employee) error
	Delete(ctx context.Context, id string) error
}

type employeeAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateEmployeeRequest represents payload for creating employees.
type CreateEmployeeRequest struct {
	Name   string              `json:"name" validate:"required"`
	Email  string              `json:"email" validate:"required,email"`
	Role   models.EmployeeRole `json:"role" validate:"required,oneof=INTERN ENGINEER ADMIN"`
	UserID *string             `json:"user_id"`
}

// UpdateEmployeeRequest payload for updating employees. All fields
// are optional; absent fields keep their stored value.
type UpdateEmployeeRequest struct {
	Name   *string              `json:"name"`
	Email  *string              `json:"email" validate:"omitempty,email"`
	Role   *models.EmployeeRole `json:"role" validate:"omitempty,oneof=INTERN ENGINEER ADMIN"`
	UserID *string              `json:"user_id"`
}

// EmployeeService handles employee management workflows.
type EmployeeService struct {
	repo      employeeRepository
	auditor   employeeAuditor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEmployeeService creates an instance of EmployeeService.
func NewEmployeeService(repo employeeRepository, auditor employeeAuditor, validate *validator.Validate, logger *zap.Logger) *EmployeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EmployeeService{repo: repo, auditor: auditor, validator: validate, logger: logger}
}

// List returns paginated employees and pagination metadata.
func (s *EmployeeService) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, *models.Pagination, error) {
	employees, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list employees")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	pagination := &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}

	return employees, pagination, nil
}

// Get returns an employee by ID.
func (s *EmployeeService) Get(ctx context.Context, id string) (*models.Employee, error) {
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	return employee, nil
}

// Create adds a new employee record.
func (s *EmployeeService) Create(ctx context.Context, req CreateEmployeeRequest, actorID string, meta models.LoginRequest) (*models.Employee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create employee payload")
	}

	if _, err := s.repo.FindByEmail(ctx, strings.ToLower(req.Email)); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	employee := &models.Employee{
		ID:     uuid.NewString(),
		Name:   req.Name,
		Email:  strings.ToLower(req.Email),
		Role:   req.Role,
		UserID: req.UserID,
	}

	if err := s.repo.Create(ctx, employee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create employee")
	}

	s.auditEmployee(ctx, models.AuditActionEmployeeCreate, actorID, employee, meta)

	return employee, nil
}

// Update modifies employee attributes.
func (s *EmployeeService) Update(ctx context.Context, id string, req UpdateEmployeeRequest, actorID string, meta models.LoginRequest) (*models.Employee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}

	if req.Name != nil {
		employee.Name = *req.Name
	}
	if req.Email != nil {
		employee.Email = strings.ToLower(*req.Email)
	}
	if req.Role != nil {
		employee.Role = *req.Role
	}
	if req.UserID != nil {
		employee.UserID = req.UserID
	}

	if err := s.repo.Update(ctx, employee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update employee")
	}

	s.auditEmployee(ctx, models.AuditActionEmployeeUpdate, actorID, employee, meta)

	return employee, nil
}

// Delete removes an employee record.
func (s *EmployeeService) Delete(ctx context.Context, id string, actorID string, meta models.LoginRequest) error {
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete employee")
	}

	s.auditEmployee(ctx, models.AuditActionEmployeeDelete, actorID, employee, meta)

	return nil
}

func (s *EmployeeService) auditEmployee(ctx context.Context, action, actorID string, employee *models.Employee, meta models.LoginRequest) {
	if s.auditor == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{"id": employee.ID, "email": employee.Email, "role": employee.Role})
	if err := s.auditor.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "employees",
		ResourceID: &employee.ID,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record employee audit log", zap.Error(err))
	}
}
