package auth

const (
	RoleAdmin    = "Admin"
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
)

const (
	PermEmployeesRead       = "employees.read"
	PermEmployeesWrite      = "employees.write"
	PermTasksRead           = "tasks.read"
	PermTasksWrite          = "tasks.write"
	PermTasksUpdate         = "tasks.update"
	PermTasksRate           = "tasks.rate"
	PermEvaluationsRead     = "evaluations.read"
	PermEvaluationsWrite    = "evaluations.write"
	PermEvaluationsGenerate = "evaluations.generate"
	PermReportsRead         = "reports.read"
	PermAuditRead           = "audit.read"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermEmployeesWrite,
	PermTasksRead,
	PermTasksWrite,
	PermTasksUpdate,
	PermTasksRate,
	PermEvaluationsRead,
	PermEvaluationsWrite,
	PermEvaluationsGenerate,
	PermReportsRead,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermEmployeesRead,
		PermTasksRead,
		PermTasksUpdate,
		PermEvaluationsRead,
	},
	RoleManager: {
		PermEmployeesRead,
		PermTasksRead,
		PermTasksWrite,
		PermTasksUpdate,
		PermTasksRate,
		PermEvaluationsRead,
		PermEvaluationsWrite,
		PermReportsRead,
	},
	RoleAdmin: DefaultPermissions,
}

// IsPrivileged reports whether role may act on other employees' records.
func IsPrivileged(role string) bool {
	return role == RoleAdmin || role == RoleManager
}
