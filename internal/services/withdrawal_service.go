package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/example/registry/internal/models"
)

// WithdrawalService records expenses paid out of collected fees.
type WithdrawalService struct {
	wf  *Workflow
	now func() time.Time
}

// NewWithdrawalService constructs a WithdrawalService.
func NewWithdrawalService(wf *Workflow) *WithdrawalService {
	return &WithdrawalService{wf: wf, now: time.Now}
}

type WithdrawalInput struct {
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Description   string  `json:"description" validate:"required,max=1000"`
	Category      uint    `json:"category" validate:"required"`
	SubCategory   uint    `json:"subCategory" validate:"required"`
	Department    uint    `json:"department" validate:"required"`
	Priority      string  `json:"priority" validate:"required,max=20"`
	Justification string  `json:"justification" validate:"required,max=2000"`
	RequestedBy   string  `json:"requestedBy" validate:"required,max=100"`
}

// Create stores a withdrawal under the next WTH-<year>-NNNN reference.
func (s *WithdrawalService) Create(ctx context.Context, in WithdrawalInput, actorID uint) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := s.wf.Run(ctx, "withdrawal.create", func(tx *gorm.DB) error {
		seq, err := nextSequence(tx, &models.Withdrawal{})
		if err != nil {
			return err
		}

		now := s.now()
		w = models.Withdrawal{
			Reference:             fmt.Sprintf("WTH-%d-%04d", now.Year(), seq),
			Amount:                in.Amount,
			Description:           strings.TrimSpace(in.Description),
			ExpenseCategoryID:     in.Category,
			ExpenseSubCategoryID:  in.SubCategory,
			DepartmentID:          in.Department,
			Priority:              in.Priority,
			BusinessJustification: in.Justification,
			RequestedBy:           in.RequestedBy,
			Status:                "completed",
			CreatedBy:             actorID,
			CreatedAt:             now,
		}
		return sequenceTaken(tx.Create(&w).Error)
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// List returns every withdrawal, newest first.
func (s *WithdrawalService) List(ctx context.Context) ([]models.Withdrawal, error) {
	var rows []models.Withdrawal
	err := s.wf.DB(ctx).Order("id desc").Find(&rows).Error
	return rows, err
}

// Get loads one withdrawal.
func (s *WithdrawalService) Get(ctx context.Context, id uint) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := s.wf.DB(ctx).First(&w, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Withdrawal not found")
		}
		return nil, err
	}
	return &w, nil
}

// Delete removes a withdrawal and returns what was removed.
func (s *WithdrawalService) Delete(ctx context.Context, id uint) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := s.wf.Run(ctx, "withdrawal.delete", func(tx *gorm.DB) error {
		if err := tx.First(&w, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Withdrawal not found")
			}
			return err
		}
		return tx.Delete(&w).Error
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// LedgerEntry is one line of the cash history: a payment in or a withdrawal out.
type LedgerEntry struct {
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
	Reference   string  `json:"reference"`

	at time.Time
}

// History merges payments (positive) and withdrawals (negative), newest first.
func (s *WithdrawalService) History(ctx context.Context) ([]LedgerEntry, error) {
	db := s.wf.DB(ctx)

	var payments []models.Payment
	if err := db.Select("id", "amount", "created_at").Find(&payments).Error; err != nil {
		return nil, err
	}
	var withdrawals []models.Withdrawal
	if err := db.Select("id", "amount", "status", "reference", "created_at").Find(&withdrawals).Error; err != nil {
		return nil, err
	}

	entries := make([]LedgerEntry, 0, len(payments)+len(withdrawals))
	for _, p := range payments {
		entries = append(entries, ledgerEntry(p.CreatedAt, paymentAmount(p.Amount), "revenue", "completed", ""))
	}
	for _, w := range withdrawals {
		entries = append(entries, ledgerEntry(w.CreatedAt, -w.Amount, "withdrawal", w.Status, w.Reference))
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].at.After(entries[j].at) })
	return entries, nil
}

// Balance is the sum of all payments minus the sum of all withdrawals.
func (s *WithdrawalService) Balance(ctx context.Context) (float64, error) {
	db := s.wf.DB(ctx)

	var amounts []string
	if err := db.Model(&models.Payment{}).Pluck("amount", &amounts).Error; err != nil {
		return 0, err
	}
	var withdrawn float64
	if err := db.Model(&models.Withdrawal{}).Select("COALESCE(SUM(amount), 0)").Scan(&withdrawn).Error; err != nil {
		return 0, err
	}

	var collected float64
	for _, a := range amounts {
		collected += paymentAmount(a)
	}
	return collected - withdrawn, nil
}

func ledgerEntry(at time.Time, amount float64, kind, status, reference string) LedgerEntry {
	return LedgerEntry{
		Date:        at.Format("2006-01-02"),
		Time:        at.Format("15:04:05"),
		Amount:      amount,
		Description: kind,
		Type:        kind,
		Status:      status,
		Reference:   reference,
		at:          at,
	}
}

// paymentAmount reads a stored fee such as "200" or "1,250.50". Unreadable values count as zero.
func paymentAmount(raw string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}
