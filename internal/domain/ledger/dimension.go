package ledger

import (
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DimensionType names one of the five analytic axes a voucher line can carry
type DimensionType string

const (
	DimensionDepartment DimensionType = "department"
	DimensionProject    DimensionType = "project"
	DimensionCustomer   DimensionType = "customer"
	DimensionSupplier   DimensionType = "supplier"
	DimensionEmployee   DimensionType = "employee"
)

// AllDimensionTypes lists the dimension axes in key order
var AllDimensionTypes = []DimensionType{
	DimensionDepartment,
	DimensionProject,
	DimensionCustomer,
	DimensionSupplier,
	DimensionEmployee,
}

// IsValid reports whether t is a known dimension type
func (t DimensionType) IsValid() bool {
	for _, known := range AllDimensionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Dimension is one analytic tag instance
type Dimension struct {
	shared.ScopedEntity
	Type        DimensionType    `gorm:"type:varchar(16);not null;index" json:"type"`
	Code        string           `gorm:"type:varchar(32);not null;index" json:"code"`
	Name        string           `gorm:"type:varchar(128);not null" json:"name"`
	ParentID    *uuid.UUID       `gorm:"type:uuid" json:"parent_id,omitempty"`
	CreditLimit *decimal.Decimal `gorm:"type:decimal(20,4)" json:"credit_limit,omitempty"`
	CreditUsed  decimal.Decimal  `gorm:"type:decimal(20,4);not null;default:0" json:"credit_used"`
}

// TableName returns the table name for GORM
func (Dimension) TableName() string {
	return "ledger_dimensions"
}

// NewDimension creates a dimension tag
func NewDimension(scope shared.Scope, dimType DimensionType, code, name string, parent *Dimension) (*Dimension, error) {
	if !dimType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "unknown dimension type: "+string(dimType))
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "dimension code cannot be empty")
	}
	if name == "" {
		name = code
	}
	dim := &Dimension{
		ScopedEntity: shared.NewScopedEntity(scope),
		Type:         dimType,
		Code:         code,
		Name:         name,
		CreditUsed:   decimal.Zero,
	}
	if parent != nil {
		if parent.Type != dimType {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "dimension parent must have the same type")
		}
		dim.ParentID = &parent.ID
	}
	return dim, nil
}

// SetCreditLimit sets or clears the credit ceiling
func (d *Dimension) SetCreditLimit(limit *decimal.Decimal) error {
	if limit != nil && limit.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "credit limit cannot be negative")
	}
	d.CreditLimit = limit
	return nil
}

// AvailableCredit returns the unused part of the credit limit, or nil when unlimited
func (d *Dimension) AvailableCredit() *decimal.Decimal {
	if d.CreditLimit == nil {
		return nil
	}
	available := d.CreditLimit.Sub(d.CreditUsed)
	return &available
}

// DimensionKey is the five-axis analytic tuple of a voucher line. uuid.Nil
// means the axis is not set, so the tuple is always comparable and never NULL.
type DimensionKey struct {
	DepartmentID uuid.UUID `gorm:"type:uuid;column:department_id" json:"department_id"`
	ProjectID    uuid.UUID `gorm:"type:uuid;column:project_id" json:"project_id"`
	CustomerID   uuid.UUID `gorm:"type:uuid;column:customer_id" json:"customer_id"`
	SupplierID   uuid.UUID `gorm:"type:uuid;column:supplier_id" json:"supplier_id"`
	EmployeeID   uuid.UUID `gorm:"type:uuid;column:employee_id" json:"employee_id"`
}

// Get returns the id on axis t
func (k DimensionKey) Get(t DimensionType) uuid.UUID {
	switch t {
	case DimensionDepartment:
		return k.DepartmentID
	case DimensionProject:
		return k.ProjectID
	case DimensionCustomer:
		return k.CustomerID
	case DimensionSupplier:
		return k.SupplierID
	case DimensionEmployee:
		return k.EmployeeID
	}
	return uuid.Nil
}

// Set assigns id on axis t
func (k *DimensionKey) Set(t DimensionType, id uuid.UUID) {
	switch t {
	case DimensionDepartment:
		k.DepartmentID = id
	case DimensionProject:
		k.ProjectID = id
	case DimensionCustomer:
		k.CustomerID = id
	case DimensionSupplier:
		k.SupplierID = id
	case DimensionEmployee:
		k.EmployeeID = id
	}
}

// IsEmpty reports whether no axis is set
func (k DimensionKey) IsEmpty() bool {
	return k == DimensionKey{}
}
