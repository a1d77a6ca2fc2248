package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/registry/internal/models"
)

// ApplicationService drives document applications through approval and payment.
type ApplicationService struct {
	wf       *Workflow
	notifier *TelegramService
	now      func() time.Time
}

// NewApplicationService constructs an ApplicationService. notifier may be nil.
func NewApplicationService(wf *Workflow, notifier *TelegramService) *ApplicationService {
	return &ApplicationService{wf: wf, notifier: notifier, now: time.Now}
}

type ApplicationInput struct {
	ForeignerID     uint     `json:"foreigner_id" validate:"required"`
	ApplicationType string   `json:"application_type" validate:"required,max=100"`
	DocumentType    uint     `json:"document_type" validate:"required"`
	Purpose         string   `json:"purpose" validate:"max=1000"`
	Status          string   `json:"status" validate:"omitempty,oneof=Pending Approved Rejected"`
	Documents       []string `json:"documents" validate:"dive,required,max=500"`
}

type PaymentInput struct {
	ReceiptNumber string     `json:"receiptNumber" validate:"required,max=100"`
	PaymentType   string     `json:"paymentType" validate:"required,max=50"`
	PaymentMethod string     `json:"paymentMethod" validate:"max=50"`
	AccountSentTo string     `json:"accountSentTo" validate:"max=100"`
	Amount        string     `json:"amount" validate:"max=50"`
	Currency      string     `json:"currency" validate:"max=10"`
	PaymentDate   *time.Time `json:"paymentDate"`
	BankName      string     `json:"bankName" validate:"max=100"`
	TransactionID string     `json:"transactionId" validate:"max=100"`
	PaidBy        string     `json:"paidBy" validate:"max=100"`
	Notes         string     `json:"notes" validate:"max=1000"`
}

// Create opens an application for a foreigner. The fee is read from the
// document type's label.
func (s *ApplicationService) Create(ctx context.Context, in ApplicationInput, actorID uint) (*models.Application, error) {
	var app models.Application
	err := s.wf.Run(ctx, "application.create", func(tx *gorm.DB) error {
		var foreigners int64
		if err := tx.Model(&models.Foreigner{}).Where("id = ?", in.ForeignerID).Count(&foreigners).Error; err != nil {
			return err
		}
		if foreigners == 0 {
			return notFound("Foreigner not found")
		}

		var docType models.Setting
		if err := tx.First(&docType, in.DocumentType).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("Please select a valid document type")
			}
			return err
		}

		status := in.Status
		if status == "" {
			status = models.ApplicationPending
		}
		amount := strings.TrimSpace(docType.Label)
		if amount == "" {
			amount = "0"
		}

		app = models.Application{
			ForeignerID:     in.ForeignerID,
			ApplicationType: in.ApplicationType,
			DocumentTypeID:  in.DocumentType,
			Note:            in.Purpose,
			Amount:          amount,
			Status:          status,
			CreatedBy:       actorID,
		}
		if err := tx.Omit(clause.Associations).Create(&app).Error; err != nil {
			return err
		}
		if err := appendStatus(tx, app.ID, status, actorID); err != nil {
			return err
		}

		if len(in.Documents) == 0 {
			return nil
		}
		docs := make([]models.ApplicationDocument, 0, len(in.Documents))
		for _, name := range in.Documents {
			docs = append(docs, models.ApplicationDocument{ApplicationID: app.ID, FileName: name})
		}
		return tx.Create(&docs).Error
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// Approve sets an application's decision and records it in the history.
func (s *ApplicationService) Approve(ctx context.Context, id uint, status string, actorID uint) (*models.Application, error) {
	if status != models.ApplicationApproved && status != models.ApplicationRejected {
		return nil, invalid("status must be one of [Approved Rejected]")
	}

	var app models.Application
	err := s.wf.Run(ctx, "application.approve", func(tx *gorm.DB) error {
		if err := lockApplication(tx, id, &app); err != nil {
			return err
		}
		if app.Status == models.ApplicationPaymentVerified {
			return conflict("Application has already been paid")
		}

		app.Status = status
		if err := tx.Model(&app).Update("status", status).Error; err != nil {
			return err
		}
		return appendStatus(tx, app.ID, status, actorID)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, &app, actorID)
	return &app, nil
}

// Pay records the single payment of an application and marks it verified.
func (s *ApplicationService) Pay(ctx context.Context, id uint, in PaymentInput, actorID uint) (*models.Payment, error) {
	var (
		app     models.Application
		payment models.Payment
	)
	err := s.wf.Run(ctx, "application.pay", func(tx *gorm.DB) error {
		if err := lockApplication(tx, id, &app); err != nil {
			return err
		}
		if app.Status == models.ApplicationRejected {
			return conflict("Rejected applications cannot be paid")
		}

		var existing int64
		if err := tx.Model(&models.Payment{}).Where("application_id = ?", id).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 || app.IsPaid {
			return conflict("Payment already exists for this application")
		}

		amount := strings.TrimSpace(in.Amount)
		if amount == "" {
			amount = app.Amount
		}
		payment = models.Payment{
			ApplicationID: id,
			ReceiptNumber: strings.TrimSpace(in.ReceiptNumber),
			PaymentDate:   in.PaymentDate,
			PaymentType:   in.PaymentType,
			PaymentMethod: in.PaymentMethod,
			Amount:        amount,
			Currency:      in.Currency,
			PaidBy:        in.PaidBy,
			AccountSentTo: in.AccountSentTo,
			BankName:      in.BankName,
			TransactionID: in.TransactionID,
			Notes:         in.Notes,
			CreatedBy:     actorID,
			CreatedAt:     s.now(),
		}
		if err := tx.Create(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return conflict("Payment already exists for this application")
			}
			return err
		}

		app.Status = models.ApplicationPaymentVerified
		app.IsPaid = true
		if err := tx.Model(&app).Updates(map[string]interface{}{
			"status":  app.Status,
			"is_paid": true,
		}).Error; err != nil {
			return err
		}
		return appendStatus(tx, id, models.ApplicationPaymentVerified, actorID)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, &app, actorID)
	return &payment, nil
}

// List returns applications newest first with their foreigner and sponsor.
func (s *ApplicationService) List(ctx context.Context) ([]models.Application, error) {
	var apps []models.Application
	err := s.wf.DB(ctx).
		Preload("Foreigner").
		Preload("Foreigner.Nationality").
		Preload("Foreigner.Sponsor").
		Order("created_at desc").
		Find(&apps).Error
	return apps, err
}

// Profile loads one application with everything attached to it.
func (s *ApplicationService) Profile(ctx context.Context, id uint) (*models.Application, error) {
	var app models.Application
	err := s.wf.DB(ctx).
		Preload("Foreigner").
		Preload("Foreigner.Nationality").
		Preload("Foreigner.Sponsor").
		Preload("Documents").
		Preload("Payment").
		Preload("Statuses", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		First(&app, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Application not found")
		}
		return nil, err
	}
	return &app, nil
}

// History returns the status trail of an application, oldest first.
func (s *ApplicationService) History(ctx context.Context, id uint) ([]models.ApplicationStatus, error) {
	var rows []models.ApplicationStatus
	err := s.wf.DB(ctx).Where("application_id = ?", id).Order("id asc").Find(&rows).Error
	return rows, err
}

func (s *ApplicationService) notify(ctx context.Context, app *models.Application, actorID uint) {
	if s.notifier == nil {
		return
	}
	event := ApplicationEvent{
		ApplicationID: app.ID,
		Status:        app.Status,
		Amount:        app.Amount,
		ActorID:       actorID,
	}
	var f models.Foreigner
	if err := s.wf.DB(ctx).Select("registration_id", "first_name", "last_name").First(&f, app.ForeignerID).Error; err == nil {
		event.RegistrationID = f.RegistrationID
		event.ForeignerName = strings.TrimSpace(f.FirstName + " " + f.LastName)
	}
	s.notifier.NotifyApplicationStatus(event)
}

func lockApplication(tx *gorm.DB, id uint, app *models.Application) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(app, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("Application not found")
	}
	return err
}
