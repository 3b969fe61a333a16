package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FraudStatus is the outcome of the fraud screen.
type FraudStatus string

const (
	FraudClean     FraudStatus = "clean"
	FraudFlagged   FraudStatus = "flagged"
	FraudConfirmed FraudStatus = "fraud"
)

// ValidationStatus is the outcome of structural/business-rule validation.
type ValidationStatus string

const (
	ValidationPending ValidationStatus = "pending"
	ValidationValid   ValidationStatus = "valid"
	ValidationInvalid ValidationStatus = "invalid"
)

// CreditGrade is the letter grade derived from the numeric credit score.
type CreditGrade string

const (
	GradeA CreditGrade = "A"
	GradeB CreditGrade = "B"
	GradeC CreditGrade = "C"
	GradeD CreditGrade = "D"
)

// RiskLevel is the coarse risk tier derived from the additive risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// FinancingStatus is the terminal financing decision for an invoice.
type FinancingStatus string

const (
	FinancingPending  FinancingStatus = "pending"
	FinancingApproved FinancingStatus = "approved"
	FinancingRejected FinancingStatus = "rejected"
	FinancingBlocked  FinancingStatus = "blocked"
)

// RepaymentStatus tracks the post-approval lifecycle of a financed invoice.
type RepaymentStatus string

const (
	RepaymentPending   RepaymentStatus = "pending"
	RepaymentPaid      RepaymentStatus = "paid"
	RepaymentOverdue   RepaymentStatus = "overdue"
	RepaymentDefaulted RepaymentStatus = "defaulted"
)

// InvoiceStatus is the overall lifecycle state of an invoice.
type InvoiceStatus string

const (
	StatusUploaded  InvoiceStatus = "uploaded"
	StatusValidated InvoiceStatus = "validated"
	StatusFinanced  InvoiceStatus = "financed"
	StatusRepaid    InvoiceStatus = "repaid"
	StatusDefaulted InvoiceStatus = "defaulted"
	StatusBlocked   InvoiceStatus = "blocked"
)

// NoteList is an ordered list of human-readable explanatory notes,
// stored as JSONB when persisted through GORM.
type NoteList []string

// Value marshals the note list to JSON for database storage.
func (n NoteList) Value() (driver.Value, error) {
	if n == nil {
		return json.Marshal(NoteList{})
	}
	return json.Marshal(n)
}

// Scan reads a JSON-encoded note list back from the database.
func (n *NoteList) Scan(value interface{}) error {
	if value == nil {
		*n = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, n)
}

// Invoice is the central entity of the financing workflow. It is created
// once per submission with status "uploaded" and mutated in place by the
// decision pipeline; fraud, validation, scoring, risk and financing fields
// are populated left to right, and a short-circuit (fraud or invalid)
// leaves everything downstream at its zero value.
type Invoice struct {
	ID         string `json:"id" gorm:"primaryKey"`
	BusinessID string `json:"businessId" gorm:"index"`

	InvoiceNumber string          `json:"invoiceNumber" gorm:"index"`
	TotalAmount   decimal.Decimal `json:"totalAmount" gorm:"type:numeric"`
	Subtotal      decimal.Decimal `json:"subtotal" gorm:"type:numeric"`
	TaxAmount     decimal.Decimal `json:"taxAmount" gorm:"type:numeric"`
	IssueDate     time.Time       `json:"issueDate"`
	DueDate       time.Time       `json:"dueDate"`

	BuyerName  string `json:"buyerName"`
	BuyerTaxID string `json:"buyerTaxId"`

	FraudStatus FraudStatus `json:"fraudStatus" gorm:"default:'clean'"`
	FraudNotes  NoteList    `json:"fraudNotes" gorm:"type:jsonb"`

	ValidationStatus ValidationStatus `json:"validationStatus" gorm:"default:'pending'"`
	ValidationNotes  NoteList         `json:"validationNotes" gorm:"type:jsonb"`

	CreditScore int         `json:"creditScore"`
	CreditGrade CreditGrade `json:"creditGrade"`
	CreditNotes NoteList    `json:"creditNotes" gorm:"type:jsonb"`

	RiskLevel RiskLevel `json:"riskLevel"`
	RiskNotes NoteList  `json:"riskNotes" gorm:"type:jsonb"`

	FinancingStatus FinancingStatus `json:"financingStatus" gorm:"default:'pending'"`
	FinancedAmount  decimal.Decimal `json:"financedAmount" gorm:"type:numeric"`
	PlatformFee     decimal.Decimal `json:"platformFee" gorm:"type:numeric"`
	DecisionNotes   NoteList        `json:"decisionNotes" gorm:"type:jsonb"`

	RepaymentStatus RepaymentStatus `json:"repaymentStatus" gorm:"default:'pending'"`
	RepaymentDate   *time.Time      `json:"repaymentDate"`
	DefaultLoss     decimal.Decimal `json:"defaultLoss" gorm:"type:numeric"`
	RepaymentNotes  NoteList        `json:"repaymentNotes" gorm:"type:jsonb"`

	Status InvoiceStatus `json:"status" gorm:"default:'uploaded'"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PaymentCycleDays returns the payment cycle length in whole days
// (due date minus issue date).
func (i *Invoice) PaymentCycleDays() int {
	return int(i.DueDate.Sub(i.IssueDate).Hours() / 24)
}

// Exposure returns the invoice amount as a fraction of the business's
// annual revenue. Returns zero when revenue is zero; such businesses
// never pass validation anyway.
func (i *Invoice) Exposure(b *Business) decimal.Decimal {
	if b.AnnualRevenue.IsZero() {
		return decimal.Zero
	}
	return i.TotalAmount.Div(b.AnnualRevenue)
}

func (i *Invoice) String() string {
	return fmt.Sprintf("invoice %s (%s) for business %s", i.InvoiceNumber, i.ID, i.BusinessID)
}
