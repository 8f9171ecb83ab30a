package core

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"perfeval/internal/domain/auth"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) Get(ctx context.Context, tenantID, employeeID string) (Employee, error) {
	return s.store.GetEmployee(ctx, tenantID, employeeID)
}

func (s *Service) GetByUserID(ctx context.Context, tenantID, userID string) (Employee, error) {
	return s.store.GetEmployeeByUserID(ctx, tenantID, userID)
}

func (s *Service) List(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Employee, error) {
	return s.store.ListEmployees(ctx, tenantID, filter, limit, offset)
}

func (s *Service) Count(ctx context.Context, tenantID string, filter Filter) (int, error) {
	return s.store.CountEmployees(ctx, tenantID, filter)
}

// ListActive pages through every active employee of a tenant.
func (s *Service) ListActive(ctx context.Context, tenantID string) ([]Employee, error) {
	const page = 200
	var out []Employee
	for offset := 0; ; offset += page {
		batch, err := s.store.ListEmployees(ctx, tenantID, Filter{Status: EmployeeStatusActive}, page, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) < page {
			return out, nil
		}
	}
}

// Create validates and stores a new employee. A non-empty password also
// provisions a login for the employee.
func (s *Service) Create(ctx context.Context, tenantID string, emp Employee, password string) (Employee, error) {
	emp = normalize(emp)
	if emp.Status == "" {
		emp.Status = EmployeeStatusActive
	}
	if err := validate(emp); err != nil {
		return Employee{}, err
	}
	hash := ""
	if password != "" {
		if len(password) < 8 {
			return Employee{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalid)
		}
		var err error
		if hash, err = auth.HashPassword(password); err != nil {
			return Employee{}, err
		}
	}
	return s.store.CreateEmployee(ctx, tenantID, emp, hash)
}

func (s *Service) Update(ctx context.Context, tenantID string, emp Employee) (Employee, error) {
	current, err := s.store.GetEmployee(ctx, tenantID, emp.ID)
	if err != nil {
		return Employee{}, err
	}
	emp = normalize(emp)
	if emp.Status == "" {
		emp.Status = current.Status
	}
	if err := validate(emp); err != nil {
		return Employee{}, err
	}
	return s.store.UpdateEmployee(ctx, tenantID, emp)
}

func normalize(emp Employee) Employee {
	emp.FirstName = strings.TrimSpace(emp.FirstName)
	emp.LastName = strings.TrimSpace(emp.LastName)
	emp.Email = strings.ToLower(strings.TrimSpace(emp.Email))
	emp.Department = strings.TrimSpace(emp.Department)
	emp.Position = strings.TrimSpace(emp.Position)
	emp.Status = strings.ToLower(strings.TrimSpace(emp.Status))
	return emp
}

func validate(emp Employee) error {
	if emp.FirstName == "" {
		return fmt.Errorf("%w: firstName is required", ErrInvalid)
	}
	if _, err := mail.ParseAddress(emp.Email); err != nil {
		return fmt.Errorf("%w: email must be valid", ErrInvalid)
	}
	if emp.Status != EmployeeStatusActive && emp.Status != EmployeeStatusInactive {
		return fmt.Errorf("%w: status must be active or inactive", ErrInvalid)
	}
	return nil
}
