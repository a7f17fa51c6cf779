package postgres

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	Username     string    `gorm:"column:username;primaryKey"`
	PasswordHash string    `gorm:"column:password_hash"`
	Role         string    `gorm:"column:role"`
	IsActive     bool      `gorm:"column:is_active"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

type userWarehouseModel struct {
	Username string `gorm:"column:username;primaryKey"`
	WhsCode  string `gorm:"column:whs_code;primaryKey"`
}

func (userWarehouseModel) TableName() string { return "user_warehouses" }

type warehouseModel struct {
	WhsCode     string `gorm:"column:whs_code;primaryKey"`
	VendorCode  string `gorm:"column:vendor_code"`
	Description string `gorm:"column:description"`
}

func (warehouseModel) TableName() string { return "warehouses" }

type receiptOperationModel struct {
	OperationID uuid.UUID `gorm:"column:operation_id;type:uuid;primaryKey"`
	Fingerprint string    `gorm:"column:op_fingerprint"`
	DocEntry    int       `gorm:"column:doc_entry"`
	WhsCode     string    `gorm:"column:whs_code"`
	SupplierRef *string   `gorm:"column:supplier_ref"`
	Actor       string    `gorm:"column:actor"`
	ERPDocEntry int       `gorm:"column:erp_doc_entry"`
	RawResponse *string   `gorm:"column:raw_response"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (receiptOperationModel) TableName() string { return "receipt_operations" }

type receiptOperationLineModel struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	OperationID uuid.UUID `gorm:"column:operation_id;type:uuid"`
	LineNum     int       `gorm:"column:line_num"`
	PostedQty   float64   `gorm:"column:posted_qty"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (receiptOperationLineModel) TableName() string { return "receipt_operation_lines" }
