package models

import "time"

// Application statuses.
const (
	ApplicationPending         = "Pending"
	ApplicationApproved        = "Approved"
	ApplicationRejected        = "Rejected"
	ApplicationPaymentVerified = "payment_verified"
)

type Application struct {
	BaseModel
	ForeignerID     uint       `gorm:"index;not null" json:"foreigner_id"`
	Foreigner       *Foreigner `json:"foreigner,omitempty"`
	ApplicationType string     `json:"application_type"`
	DocumentTypeID  uint       `json:"document_type"`
	Note            string     `json:"note"`
	Amount          string     `json:"amount"`
	Status          string     `gorm:"index" json:"status"`
	IsPaid          bool       `json:"is_paid"`
	ExpiryDate      *time.Time `json:"expiry_date"`
	CreatedBy       uint       `json:"created_by"`

	Documents []ApplicationDocument `json:"documents,omitempty"`
	Statuses  []ApplicationStatus   `json:"statuses,omitempty"`
	Payment   *Payment              `json:"payment,omitempty"`
}

type ApplicationDocument struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	ApplicationID uint   `gorm:"index;not null" json:"application_id"`
	FileName      string `json:"file_name"`
}

// ApplicationStatus is one append-only entry of an application's history.
type ApplicationStatus struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ApplicationID uint      `gorm:"index;not null" json:"application_id"`
	Status        string    `gorm:"not null" json:"status"`
	CreatedBy     uint      `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

type Payment struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	ApplicationID uint       `gorm:"uniqueIndex;not null" json:"application_id"`
	ReceiptNumber string     `gorm:"not null" json:"receipt_number"`
	PaymentDate   *time.Time `json:"payment_date"`
	PaymentType   string     `json:"payment_type"`
	PaymentMethod string     `json:"payment_method"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	PaidBy        string     `json:"paid_by"`
	AccountSentTo string     `json:"account_sent_to"`
	BankName      string     `json:"bank_name"`
	TransactionID string     `json:"transaction_id"`
	Notes         string     `json:"notes"`
	CreatedBy     uint       `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
}
