package core

import (
	"testing"

	"perfeval/internal/domain/auth"
)

func sampleEmployee() *Employee {
	return &Employee{ID: "e1", UserID: "u1", FirstName: "Ada", Email: "ada@example.com"}
}

func TestFilterEmployeeFieldsAdmin(t *testing.T) {
	emp := sampleEmployee()
	FilterEmployeeFields(emp, auth.UserContext{RoleName: auth.RoleAdmin}, false)
	if emp.Email == "" || emp.UserID == "" {
		t.Fatal("admin should retain contact fields")
	}
}

func TestFilterEmployeeFieldsSelf(t *testing.T) {
	emp := sampleEmployee()
	FilterEmployeeFields(emp, auth.UserContext{RoleName: auth.RoleEmployee}, true)
	if emp.Email == "" {
		t.Fatal("employee should see their own email")
	}
}

func TestFilterEmployeeFieldsColleague(t *testing.T) {
	emp := sampleEmployee()
	FilterEmployeeFields(emp, auth.UserContext{RoleName: auth.RoleEmployee}, false)
	if emp.Email != "" || emp.UserID != "" {
		t.Fatal("colleague contact fields should be hidden")
	}
	if emp.FirstName == "" {
		t.Fatal("name should stay visible")
	}
}
