package core

import "context"

type StoreAPI interface {
	GetEmployee(ctx context.Context, tenantID, employeeID string) (Employee, error)
	GetEmployeeByUserID(ctx context.Context, tenantID, userID string) (Employee, error)
	ListEmployees(ctx context.Context, tenantID string, filter Filter, limit, offset int) ([]Employee, error)
	CountEmployees(ctx context.Context, tenantID string, filter Filter) (int, error)
	CreateEmployee(ctx context.Context, tenantID string, emp Employee, passwordHash string) (Employee, error)
	UpdateEmployee(ctx context.Context, tenantID string, emp Employee) (Employee, error)
}
