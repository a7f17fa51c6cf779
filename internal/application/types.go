package application

import (
	"time"

	"github.com/Ramon-Alomia/entradas-app/internal/domain"
	"github.com/Ramon-Alomia/entradas-app/internal/ports"
)

// Config carries orchestrator tunables with safe defaults applied by
// NewService.
type Config struct {
	TokenTTL             time.Duration
	FailedLoginThreshold int
	LockoutDuration      time.Duration
}

// Actor is the authenticated caller as decoded from its token.
type Actor struct {
	Username   string
	Role       string
	Warehouses []string
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token      string    `json:"token"`
	Username   string    `json:"username"`
	Role       string    `json:"role"`
	Warehouses []string  `json:"warehouses"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// ListOrdersInput mirrors the list operation's filters. Warehouse defaults to
// the caller's first authorized warehouse when empty.
type ListOrdersInput struct {
	DueFrom   *time.Time
	DueTo     *time.Time
	Vendor    string
	Warehouse string
	Page      int
	PageSize  int
}

// ReceiptInput is one receiving request against a purchase order.
type ReceiptInput struct {
	DocEntry    int                  `json:"docEntry"`
	Warehouse   string               `json:"whsCode"`
	SupplierRef string               `json:"supplierRef"`
	Lines       []domain.ReceiptLine `json:"lines"`
}

// ReceiptResult reports an accepted post: the ERP-assigned document id, the
// operation fingerprint and the per-line posted quantities.
type ReceiptResult struct {
	ERPDocEntry int                  `json:"grpoDocEntry"`
	Fingerprint string               `json:"fingerprint"`
	Lines       []domain.ReceiptLine `json:"lines"`
}

// Dependencies wires the orchestrator's collaborators.
type Dependencies struct {
	Config     Config
	Users      ports.UserRepository
	Warehouses ports.WarehouseRepository
	ReceiptLog ports.ReceiptLogRepository
	Orders     ports.OrderGateway
	Poster     ports.ReceiptPoster
	Lockouts   ports.LockoutStore
	Hasher     ports.PasswordHasher
	Signer     ports.TokenSigner
}
