package domain

import "time"

// User is an operator account for the receiving portal. Warehouse access is
// modeled as an explicit set of codes loaded alongside the account.
type User struct {
	Username     string
	PasswordHash string
	Role         string
	IsActive     bool
	Warehouses   []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanAccessWarehouse reports whether the account is authorized for the given
// warehouse code.
func (u User) CanAccessWarehouse(code string) bool {
	for _, w := range u.Warehouses {
		if w == code {
			return true
		}
	}
	return false
}

// Warehouse is a receivable location known to the portal.
type Warehouse struct {
	Code        string
	VendorCode  string
	Description string
}
