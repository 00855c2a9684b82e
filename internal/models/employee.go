package models

import "time"

// EmployeeRole enumerates the roles an employee record can hold.
type EmployeeRole string

const (
	EmployeeRoleIntern   EmployeeRole = "INTERN"
	EmployeeRoleEngineer EmployeeRole = "ENGINEER"
	EmployeeRoleAdmin    EmployeeRole = "ADMIN"
)

// Employee represents a staff record stored in the employees table.
type Employee struct {
	ID        string       `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Email     string       `db:"email" json:"email"`
	Role      EmployeeRole `db:"role" json:"role"`
	UserID    *string      `db:"user_id" json:"user_id,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// EmployeeFilter captures filtering criteria for listing employees.
type EmployeeFilter struct {
	Role      *EmployeeRole
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
