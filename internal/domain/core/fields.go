package core

import "perfeval/internal/domain/auth"

// FilterEmployeeFields hides contact details of colleagues from callers that
// are neither privileged nor the employee themselves.
func FilterEmployeeFields(emp *Employee, user auth.UserContext, isSelf bool) {
	if auth.IsPrivileged(user.RoleName) || isSelf {
		return
	}
	emp.Email = ""
	emp.UserID = ""
}
