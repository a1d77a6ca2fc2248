package models

import "time"

// Setting is a lookup value (nationality, occupation, document type, ...).
// For document types the label carries the fee.
type Setting struct {
	BaseModel
	Name         string `gorm:"index" json:"name"`
	Label        string `json:"label"`
	DropdownType string `gorm:"index" json:"dropdown_type"`
	Status       string `gorm:"default:active" json:"status"`
}

const (
	DropdownNationality  = "nationalities"
	DropdownOccupation   = "occupation"
	DropdownDocumentType = "document_types"
)

type Foreigner struct {
	BaseModel
	RegistrationID  string    `gorm:"uniqueIndex;not null" json:"registration_id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	MotherName      string    `json:"mother_name"`
	DOB             time.Time `json:"dob"`
	Gender          string    `json:"gender"`
	NationalityID   *uint     `gorm:"index" json:"nationality_id"`
	Nationality     *Setting  `gorm:"foreignKey:NationalityID" json:"nationality,omitempty"`
	CountryOfOrigin uint      `json:"country_of_origin"`
	MaritalStatus   string    `json:"marital_status"`
	OccupationID    uint      `json:"occupation_id"`
	Number          string    `json:"number"`
	Email           string    `json:"email"`
	CurrentAddress  string    `json:"current_address"`

	EmergencyLocalName         string `json:"emergency_local_name"`
	EmergencyLocalRelationship string `json:"emergency_local_relationship"`
	EmergencyLocalNumber       string `json:"emergency_local_number"`
	EmergencyLocalAddress      string `json:"emergency_local_address"`
	EmergencyOtherName         string `json:"emergency_other_name"`
	EmergencyOtherRelationship string `json:"emergency_other_relationship"`
	EmergencyOtherNumber       string `json:"emergency_other_number"`
	EmergencyOtherAddress      string `json:"emergency_other_address"`

	SponsorID  *uint     `gorm:"index" json:"sponsor_id"`
	Sponsor    *Sponsor  `json:"sponsor,omitempty"`
	EntryDate  time.Time `json:"entry_date"`
	EntryPoint string    `json:"entry_point"`
	Purpose    string    `json:"purpose"`
	TypeStatus string    `json:"type_status"`
	Image      string    `json:"image"`
	Status     string    `json:"status"`
	CreatedBy  uint      `json:"created_by"`

	Documents    []ForeignerDocument `json:"documents,omitempty"`
	Applications []Application       `json:"applications,omitempty"`
}

type ForeignerDocument struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ForeignerID uint   `gorm:"index;not null" json:"foreigner_id"`
	TypeID      uint   `json:"type_id"`
	FileName    string `json:"file_name"`
}

type Sponsor struct {
	BaseModel
	SponsorName            string     `gorm:"not null" json:"sponsor_name"`
	SponsorType            string     `json:"sponsor_type"`
	NationalIDNumber       string     `json:"national_id_number"`
	EmailAddress           string     `json:"email_address"`
	PrimaryPhoneNumber     string     `json:"primary_phone_number"`
	EmergencyContactNumber string     `json:"emergency_contact_number"`
	CompleteAddress        string     `json:"complete_address"`
	Region                 string     `json:"region"`
	MaxCapacity            int        `gorm:"column:maximum_sponsorship_capacity" json:"maximum_sponsorship_capacity"`
	CompanyName            string     `json:"company_name"`
	LicenseNumber          string     `json:"license_number"`
	LicenseType            string     `json:"license_type"`
	LicenseMinistry        string     `json:"license_ministry"`
	ResponsibilityScore    int        `json:"responsibility_score"`
	RegistrationDate       *time.Time `json:"registration_date"`
	Status                 string     `gorm:"default:Pending" json:"status"`

	Documents []SponsorDocument `json:"documents,omitempty"`
}

type SponsorDocument struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	SponsorID  uint   `gorm:"index;not null" json:"sponsor_id"`
	FileName   string `json:"file_name"`
	FilePath   string `json:"file_path"`
	FileSizeKB int    `json:"file_size_kb"`
	FileType   string `json:"file_type"`
	Type       string `json:"type"`
}

// Withdrawal is an expense paid out of collected fees.
type Withdrawal struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	Reference             string    `gorm:"uniqueIndex;not null" json:"reference"`
	Amount                float64   `json:"amount"`
	Description           string    `json:"description"`
	ExpenseCategoryID     uint      `json:"expense_category"`
	ExpenseSubCategoryID  uint      `json:"expense_sub_category"`
	DepartmentID          uint      `json:"department_id"`
	Priority              string    `json:"priority"`
	BusinessJustification string    `json:"business_justification"`
	RequestedBy           string    `json:"requested_by"`
	Status                string    `json:"status"`
	CreatedBy             uint      `json:"created_by"`
	CreatedAt             time.Time `json:"created_at"`
}
