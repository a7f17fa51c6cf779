package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ramon-Alomia/entradas-app/internal/domain"
	"github.com/Ramon-Alomia/entradas-app/internal/ports"
)

type Service struct {
	cfg        Config
	users      ports.UserRepository
	warehouses ports.WarehouseRepository
	receiptLog ports.ReceiptLogRepository
	orders     ports.OrderGateway
	poster     ports.ReceiptPoster
	lockouts   ports.LockoutStore
	hasher     ports.PasswordHasher
	signer     ports.TokenSigner
	nowFn      func() time.Time
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 8 * time.Hour
	}
	if cfg.FailedLoginThreshold <= 0 {
		cfg.FailedLoginThreshold = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 30 * time.Minute
	}
	return &Service{
		cfg:        cfg,
		users:      deps.Users,
		warehouses: deps.Warehouses,
		receiptLog: deps.ReceiptLog,
		orders:     deps.Orders,
		poster:     deps.Poster,
		lockouts:   deps.Lockouts,
		hasher:     deps.Hasher,
		signer:     deps.Signer,
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}

// Login verifies operator credentials and issues a portal token carrying the
// authorized warehouse set. Lockout state is consulted before the password
// compare so locked accounts cannot probe hashes.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return LoginResult{}, fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}

	now := s.nowFn()
	state, err := s.lockouts.Get(ctx, username)
	if err != nil {
		return LoginResult{}, err
	}
	if state.LockedUntil != nil && state.LockedUntil.After(now) {
		return LoginResult{}, fmt.Errorf("%w: until %s", domain.ErrAccountLocked, state.LockedUntil.Format(time.RFC3339))
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_, _ = s.lockouts.RecordFailure(ctx, username, now, s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration)
			return LoginResult{}, domain.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !user.IsActive {
		return LoginResult{}, domain.ErrInvalidCredentials
	}

	if err := s.hasher.Compare(user.PasswordHash, in.Password); err != nil {
		state, recordErr := s.lockouts.RecordFailure(ctx, username, now, s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration)
		if recordErr == nil && state.LockedUntil != nil {
			return LoginResult{}, fmt.Errorf("%w: until %s", domain.ErrAccountLocked, state.LockedUntil.Format(time.RFC3339))
		}
		return LoginResult{}, domain.ErrInvalidCredentials
	}

	_ = s.lockouts.Clear(ctx, username)

	expiresAt := now.Add(s.cfg.TokenTTL)
	token, err := s.signer.Sign(ports.AuthClaims{
		Subject:    user.Username,
		Role:       user.Role,
		Warehouses: user.Warehouses,
		IssuedAt:   now,
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign token: %w", err)
	}

	return LoginResult{
		Token:      token,
		Username:   user.Username,
		Role:       user.Role,
		Warehouses: user.Warehouses,
		ExpiresAt:  expiresAt,
	}, nil
}

// ListWarehouses returns the receivable locations known to the portal.
func (s *Service) ListWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	return s.warehouses.List(ctx)
}
