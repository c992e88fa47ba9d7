package payment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/repotest"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

var base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	store  *repotest.Store
	p1, p2 *model.Patient
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	f := &fixture{store: store}
	f.p1 = addPatient(t, store, "R1")
	f.p2 = addPatient(t, store, "R2")
	f.svc = NewService(store.Visits(), store.Patients(), metrics.NewNoop(), nil)
	f.svc.now = func() time.Time { return base }
	return f
}

func addPatient(t *testing.T, store *repotest.Store, regNo string) *model.Patient {
	p := &model.Patient{ID: uuid.New(), RegNo: regNo, Name: "Patient " + regNo, PhoneNo: "98000" + regNo}
	require.NoError(t, store.Patients().Create(context.Background(), p))
	return p
}

func (f *fixture) addVisit(t *testing.T, p *model.Patient, day int, amount float64, status model.PaymentStatus) *model.Visit {
	v := &model.Visit{
		ID:            uuid.New(),
		PatientID:     p.ID,
		VisitDate:     base.AddDate(0, 0, day),
		Treatment:     "x",
		AmountPaid:    amount,
		PaymentMethod: model.PaymentMethodCash,
		PaymentStatus: status,
	}
	_, err := f.store.Visits().Record(context.Background(), &model.VisitRecord{Visit: v})
	require.NoError(t, err)
	return v
}

func strPtr(s string) *string { return &s }

func amountPtr(v float64) *float64 { return &v }

func TestUpdatePayment_RemovesFromPending(t *testing.T) {
	f := setup(t)
	v := f.addVisit(t, f.p1, 0, 0, model.PaymentStatusPending)

	updated, err := f.svc.UpdatePayment(context.Background(), v.ID, model.PaymentUpdate{
		AmountPaid:    amountPtr(500),
		PaymentStatus: strPtr("completed"),
	})
	require.NoError(t, err)
	assert.Equal(t, 500.0, updated.AmountPaid)
	assert.Equal(t, model.PaymentStatusCompleted, updated.PaymentStatus)
	assert.Equal(t, model.PaymentMethodCash, updated.PaymentMethod)

	pending, err := f.svc.GetPendingPayments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestUpdatePayment_Validation(t *testing.T) {
	f := setup(t)
	v := f.addVisit(t, f.p1, 0, 0, model.PaymentStatusPending)

	for name, u := range map[string]model.PaymentUpdate{
		"empty":           {},
		"negative amount": {AmountPaid: amountPtr(-5)},
		"amount too large": {AmountPaid: amountPtr(1e10)},
		"bad method":      {PaymentMethod: strPtr("cheque")},
		"bad status":      {PaymentStatus: strPtr("partial")},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.UpdatePayment(context.Background(), v.ID, u)
			assert.True(t, apperrors.Is(err, apperrors.KindValidation), "got %v", err)
		})
	}

	_, err := f.svc.UpdatePayment(context.Background(), uuid.New(), model.PaymentUpdate{AmountPaid: amountPtr(1)})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestBulkUpdatePayments_PartialFailure(t *testing.T) {
	f := setup(t)
	a := f.addVisit(t, f.p1, 0, 0, model.PaymentStatusPending)
	b := f.addVisit(t, f.p2, 1, 0, model.PaymentStatusPending)
	done := model.PaymentUpdate{PaymentStatus: strPtr("completed")}

	resp, err := f.svc.BulkUpdatePayments(context.Background(), &model.BulkPaymentRequest{Items: []model.BulkPaymentItem{
		{VisitID: a.ID.String(), Fields: done},
		{VisitID: uuid.NewString(), Fields: done},
		{VisitID: "not-a-uuid", Fields: done},
		{VisitID: b.ID.String(), Fields: done},
	}})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 2, resp.Failed)
	require.Len(t, resp.Results, 4)
	assert.True(t, resp.Results[0].Success)
	assert.False(t, resp.Results[1].Success)
	assert.Equal(t, "visit not found", resp.Results[1].Error)
	assert.Contains(t, resp.Results[2].Error, "visit_id")
	assert.True(t, resp.Results[3].Success)

	pending, err := f.svc.GetPendingPayments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestUpdatePayment_AmountCeiling(t *testing.T) {
	f := setup(t)
	v := f.addVisit(t, f.p1, 0, 0, model.PaymentStatusPending)

	updated, err := f.svc.UpdatePayment(context.Background(), v.ID, model.PaymentUpdate{AmountPaid: amountPtr(9999999999.99)})
	require.NoError(t, err)
	assert.Equal(t, 9999999999.99, updated.AmountPaid)

	_, err = f.svc.UpdatePayment(context.Background(), v.ID, model.PaymentUpdate{AmountPaid: amountPtr(1e10)})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "amount_paid", appErr.Fields[0].Field)
	assert.Equal(t, "must be less than or equal to 9999999999.99", appErr.Fields[0].Message)

	history, err := f.svc.GetPaymentHistory(context.Background(), f.p1.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 9999999999.99, history[0].AmountPaid)
}

func TestBulkUpdatePayments_RequiresItems(t *testing.T) {
	f := setup(t)

	_, err := f.svc.BulkUpdatePayments(context.Background(), &model.BulkPaymentRequest{})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestGetPendingPayments_IncludesZeroAndPaidAmounts(t *testing.T) {
	f := setup(t)
	late := f.addVisit(t, f.p1, 3, 200, model.PaymentStatusPending)
	early := f.addVisit(t, f.p2, 1, 0, model.PaymentStatusPending)
	f.addVisit(t, f.p1, 2, 300, model.PaymentStatusCompleted)

	pending, err := f.svc.GetPendingPayments(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, early.ID, pending[0].ID)
	assert.Equal(t, "R2", pending[0].Patient.RegNo)
	assert.Equal(t, late.ID, pending[1].ID)
}

func TestGetPaymentSummaryAndOverview(t *testing.T) {
	f := setup(t)
	f.addVisit(t, f.p1, 0, 500, model.PaymentStatusCompleted)
	f.addVisit(t, f.p1, 1, 250, model.PaymentStatusPending)
	f.addVisit(t, f.p2, 2, 100, model.PaymentStatusPending)

	summary, err := f.svc.GetPaymentSummary(context.Background(), f.p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 750.0, summary.TotalPaid)
	assert.Equal(t, 2, summary.VisitCount)
	assert.Equal(t, 1, summary.PendingCount)

	overview, err := f.svc.GetPaymentOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 850.0, overview.TotalCollected)
	assert.Equal(t, 3, overview.VisitCount)
	assert.Equal(t, 2, overview.PendingVisits)
	assert.Equal(t, 2, overview.PatientsWithPending)

	_, err = f.svc.GetPaymentSummary(context.Background(), uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestGetPaymentHistory(t *testing.T) {
	f := setup(t)
	older := f.addVisit(t, f.p1, 0, 100, model.PaymentStatusCompleted)
	newer := f.addVisit(t, f.p1, 5, 100, model.PaymentStatusPending)

	visits, err := f.svc.GetPaymentHistory(context.Background(), f.p1.ID)
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, newer.ID, visits[0].ID)
	assert.Equal(t, older.ID, visits[1].ID)
}
