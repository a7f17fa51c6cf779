package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Ramon-Alomia/entradas-app/internal/domain"
	"github.com/Ramon-Alomia/entradas-app/internal/ports"
)

type Repositories struct {
	Users      ports.UserRepository
	Warehouses ports.WarehouseRepository
	ReceiptLog ports.ReceiptLogRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:      &userRepository{db: db},
		Warehouses: &warehouseRepository{db: db},
		ReceiptLog: &receiptLogRepository{db: db},
	}
}

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	var rec userModel
	if err := r.db.WithContext(ctx).Where("username = ?", username).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}

	var rows []userWarehouseModel
	if err := r.db.WithContext(ctx).
		Where("username = ?", username).
		Order("whs_code asc").
		Find(&rows).Error; err != nil {
		return domain.User{}, err
	}
	warehouses := make([]string, 0, len(rows))
	for _, row := range rows {
		warehouses = append(warehouses, row.WhsCode)
	}

	return domain.User{
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		Role:         rec.Role,
		IsActive:     rec.IsActive,
		Warehouses:   warehouses,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

type warehouseRepository struct {
	db *gorm.DB
}

func (r *warehouseRepository) List(ctx context.Context) ([]domain.Warehouse, error) {
	var rows []warehouseModel
	if err := r.db.WithContext(ctx).Order("whs_code asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Warehouse, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Warehouse{
			Code:        row.WhsCode,
			VendorCode:  row.VendorCode,
			Description: row.Description,
		})
	}
	return out, nil
}

type receiptLogRepository struct {
	db *gorm.DB
}

func (r *receiptLogRepository) FingerprintExists(ctx context.Context, fingerprint string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&receiptOperationModel{}).
		Where("op_fingerprint = ?", fingerprint).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Append inserts the operation record and its line rows in one transaction.
// A unique violation on the fingerprint index is reported as
// domain.ErrDuplicateOperation; under concurrent identical requests that
// insert, not the pre-check, decides which one wins.
func (r *receiptLogRepository) Append(ctx context.Context, op domain.ReceiptOperation) error {
	operationID, err := uuid.Parse(op.OperationID)
	if err != nil {
		return err
	}

	rec := receiptOperationModel{
		OperationID: operationID,
		Fingerprint: op.Fingerprint,
		DocEntry:    op.DocEntry,
		WhsCode:     op.WarehouseCode,
		SupplierRef: nullableString(op.SupplierRef),
		Actor:       op.Actor,
		ERPDocEntry: op.ERPDocEntry,
		RawResponse: nullableString(string(op.RawResponse)),
		CreatedAt:   op.CreatedAt,
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateOperation
			}
			return err
		}
		for _, l := range op.Lines {
			line := receiptOperationLineModel{
				OperationID: operationID,
				LineNum:     l.LineNum,
				PostedQty:   l.Quantity,
				CreatedAt:   op.CreatedAt,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
