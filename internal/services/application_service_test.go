package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/registry/internal/models"
)

type applicationFixture struct {
	apps      *ApplicationService
	wf        *Workflow
	foreigner *models.Foreigner
	docType   models.Setting
}

func createApplicationFixture(t *testing.T) *applicationFixture {
	fs, wf := createTestForeignerService(t)
	f, err := fs.Save(context.Background(), foreignerInput(), 1)
	require.NoError(t, err)

	docType := models.Setting{Name: "Residence permit", Label: "150", DropdownType: models.DropdownDocumentType, Status: "active"}
	require.NoError(t, wf.db.Create(&docType).Error)

	apps := NewApplicationService(wf, nil)
	apps.now = func() time.Time { return testNow }
	return &applicationFixture{apps: apps, wf: wf, foreigner: f, docType: docType}
}

func (fx *applicationFixture) create(t *testing.T) *models.Application {
	app, err := fx.apps.Create(context.Background(), ApplicationInput{
		ForeignerID:     fx.foreigner.ID,
		ApplicationType: "new",
		DocumentType:    fx.docType.ID,
		Documents:       []string{"form.pdf"},
	}, 1)
	require.NoError(t, err)
	return app
}

func TestApplicationCreate(t *testing.T) {
	fx := createApplicationFixture(t)
	ctx := context.Background()

	app := fx.create(t)
	require.Equal(t, models.ApplicationPending, app.Status)
	require.Equal(t, "150", app.Amount)

	history, err := fx.apps.History(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, models.ApplicationPending, history[0].Status)

	_, err = fx.apps.Create(ctx, ApplicationInput{ForeignerID: 999, ApplicationType: "new", DocumentType: fx.docType.ID}, 1)
	require.True(t, errors.Is(err, ErrNotFound))

	_, err = fx.apps.Create(ctx, ApplicationInput{ForeignerID: fx.foreigner.ID, ApplicationType: "new", DocumentType: 999}, 1)
	require.True(t, errors.Is(err, ErrInvalidInput))
}

func TestApplicationApprove(t *testing.T) {
	fx := createApplicationFixture(t)
	ctx := context.Background()
	app := fx.create(t)

	approved, err := fx.apps.Approve(ctx, app.ID, models.ApplicationApproved, 42)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationApproved, approved.Status)

	history, err := fx.apps.History(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, models.ApplicationApproved, history[1].Status)
	require.Equal(t, uint(42), history[1].CreatedBy)

	_, err = fx.apps.Approve(ctx, app.ID, "Maybe", 42)
	require.True(t, errors.Is(err, ErrInvalidInput))
	_, err = fx.apps.Approve(ctx, 999, models.ApplicationApproved, 42)
	require.True(t, errors.Is(err, ErrNotFound))

	history, err = fx.apps.History(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
}

func TestApplicationPay(t *testing.T) {
	fx := createApplicationFixture(t)
	ctx := context.Background()
	app := fx.create(t)

	payment, err := fx.apps.Pay(ctx, app.ID, PaymentInput{ReceiptNumber: " R-1 ", PaymentType: "cash", Amount: "150"}, 7)
	require.NoError(t, err)
	require.Equal(t, "R-1", payment.ReceiptNumber)

	profile, err := fx.apps.Profile(ctx, app.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationPaymentVerified, profile.Status)
	require.True(t, profile.IsPaid)
	require.NotNil(t, profile.Payment)
	require.Len(t, profile.Documents, 1)
	require.Len(t, profile.Statuses, 2)
	require.Equal(t, models.ApplicationPaymentVerified, profile.Statuses[1].Status)
	require.Equal(t, uint(7), profile.Statuses[1].CreatedBy)

	_, err = fx.apps.Pay(ctx, app.ID, PaymentInput{ReceiptNumber: "R-2", PaymentType: "cash"}, 7)
	require.True(t, errors.Is(err, ErrConflict))

	_, err = fx.apps.Approve(ctx, app.ID, models.ApplicationRejected, 7)
	require.True(t, errors.Is(err, ErrConflict))

	var payments int64
	require.NoError(t, fx.wf.db.Model(&models.Payment{}).Count(&payments).Error)
	require.Equal(t, int64(1), payments)
}

func TestApplicationPayRejected(t *testing.T) {
	fx := createApplicationFixture(t)
	ctx := context.Background()
	app := fx.create(t)

	_, err := fx.apps.Approve(ctx, app.ID, models.ApplicationRejected, 1)
	require.NoError(t, err)

	_, err = fx.apps.Pay(ctx, app.ID, PaymentInput{ReceiptNumber: "R-1", PaymentType: "cash"}, 1)
	require.True(t, errors.Is(err, ErrConflict))

	history, err := fx.apps.History(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
}
