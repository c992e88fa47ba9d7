// Package repotest provides in-memory repositories for service tests.
package repotest

import (
	"context"
	"errors"
	"iter"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Store holds patients, visits, users and outbox events behind one mutex
// so that Record behaves like a transaction.
type Store struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*model.Patient
	visits   map[uuid.UUID]*model.Visit
	users    map[uuid.UUID]*model.User
	events   map[uuid.UUID]*model.OutboxEvent

	// Fail, when set, is returned by every operation
	Fail error
}

func NewStore() *Store {
	return &Store{
		patients: map[uuid.UUID]*model.Patient{},
		visits:   map[uuid.UUID]*model.Visit{},
		users:    map[uuid.UUID]*model.User{},
		events:   map[uuid.UUID]*model.OutboxEvent{},
	}
}

func (s *Store) Patients() repository.PatientRepository { return (*patients)(s) }
func (s *Store) Visits() repository.VisitRepository     { return (*visits)(s) }
func (s *Store) Users() repository.UserRepository       { return (*users)(s) }
func (s *Store) Outbox() repository.OutboxRepository    { return (*outbox)(s) }

// Events returns a copy of the stored outbox events
func (s *Store) Events() []*model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.OutboxEvent, 0, len(s.events))
	for _, e := range s.events {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

func (s *Store) fail() error {
	if s.Fail != nil {
		return apperrors.Dependency("database", s.Fail)
	}
	return nil
}

type patients Store

func (r *patients) Create(_ context.Context, p *model.Patient) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	for _, existing := range s.patients {
		if existing.RegNo == p.RegNo {
			return apperrors.Conflict("a patient with this registration number already exists", nil)
		}
	}
	cp := *p
	s.patients[p.ID] = &cp
	return nil
}

func (r *patients) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	p, ok := s.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	cp := *p
	return &cp, nil
}

func (r *patients) GetByRegNo(_ context.Context, regNo string) (*model.Patient, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	for _, p := range s.patients {
		if p.RegNo == regNo {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("patient", nil)
}

func (r *patients) SearchByRegNoPrefix(_ context.Context, prefix string) iter.Seq2[*model.Patient, error] {
	s := (*Store)(r)
	return func(yield func(*model.Patient, error) bool) {
		s.mu.Lock()
		if err := s.fail(); err != nil {
			s.mu.Unlock()
			yield(nil, err)
			return
		}
		var matches []*model.Patient
		for _, p := range s.patients {
			if strings.HasPrefix(p.RegNo, prefix) {
				cp := *p
				matches = append(matches, &cp)
			}
		}
		s.mu.Unlock()

		sort.Slice(matches, func(i, j int) bool { return matches[i].RegNo < matches[j].RegNo })
		for _, p := range matches {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func (r *patients) List(_ context.Context, limit, offset int) (*model.PatientList, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	all := make([]*model.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	page := []*model.Patient{}
	if offset < len(all) {
		end := min(offset+limit, len(all))
		page = all[offset:end]
	}
	return &model.PatientList{Patients: page, Total: len(all)}, nil
}

func (r *patients) ListUpcoming(_ context.Context, from, to time.Time) ([]*model.Patient, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	out := []*model.Patient{}
	for _, p := range s.patients {
		next := p.NextAppointmentDate
		if p.TreatmentStatus != model.TreatmentStatusOngoing || next == nil {
			continue
		}
		if next.Before(from) || next.After(to) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextAppointmentDate.Equal(*out[j].NextAppointmentDate) {
			return out[i].NextAppointmentDate.Before(*out[j].NextAppointmentDate)
		}
		return out[i].RegNo < out[j].RegNo
	})
	return out, nil
}

func (r *patients) UpdateDetails(_ context.Context, id uuid.UUID, d model.PatientDetails, at time.Time) (*model.Patient, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	p, ok := s.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.Name, d.Name)
	set(&p.PhoneNo, d.PhoneNo)
	set(&p.Email, d.Email)
	set(&p.Address, d.Address)
	set(&p.DoctorName, d.DoctorName)
	set(&p.Prescription, d.Prescription)
	set(&p.Disease, d.Disease)
	if d.DateOfBirth != nil {
		p.DateOfBirth = *d.DateOfBirth
	}
	p.UpdatedAt = at
	cp := *p
	return &cp, nil
}

func (r *patients) UpdateTreatmentStatus(_ context.Context, id uuid.UUID, status model.TreatmentStatus, at time.Time) (*model.Patient, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	p, ok := s.patients[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	p.TreatmentStatus = status
	p.UpdatedAt = at
	cp := *p
	return &cp, nil
}

func (r *patients) Delete(_ context.Context, id uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	for _, v := range s.visits {
		if v.PatientID == id {
			return apperrors.Conflict("patient has recorded visits and cannot be deleted", nil)
		}
	}
	if _, ok := s.patients[id]; !ok {
		return apperrors.NotFound("patient", nil)
	}
	delete(s.patients, id)
	return nil
}

type visits Store

func (r *visits) Record(_ context.Context, rec *model.VisitRecord) (*model.Patient, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	v := rec.Visit
	p, ok := s.patients[v.PatientID]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}

	visitDate := v.VisitDate
	p.LastVisitDate = &visitDate
	switch {
	case v.NextAppointmentDate != nil:
		next := *v.NextAppointmentDate
		p.NextAppointmentDate = &next
	case p.NextAppointmentDate != nil && p.NextAppointmentDate.Before(visitDate):
		p.NextAppointmentDate = nil
	}
	if rec.TreatmentStatus != nil {
		p.TreatmentStatus = *rec.TreatmentStatus
	}
	p.UpdatedAt = v.UpdatedAt

	cv := *v
	s.visits[v.ID] = &cv
	if rec.Event != nil {
		ce := *rec.Event
		s.events[ce.ID] = &ce
	}
	cp := *p
	return &cp, nil
}

func (r *visits) Get(_ context.Context, id uuid.UUID) (*model.Visit, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	v, ok := s.visits[id]
	if !ok {
		return nil, apperrors.NotFound("visit", nil)
	}
	cv := *v
	return &cv, nil
}

func (r *visits) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.Visit, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	out := []*model.Visit{}
	for _, v := range s.visits {
		if v.PatientID == patientID {
			cv := *v
			out = append(out, &cv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitDate.After(out[j].VisitDate) })
	return out, nil
}

func (r *visits) UpdatePayment(_ context.Context, id uuid.UUID, u model.PaymentUpdate, at time.Time) (*model.Visit, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	v, ok := s.visits[id]
	if !ok {
		return nil, apperrors.NotFound("visit", nil)
	}
	if u.AmountPaid != nil {
		v.AmountPaid = *u.AmountPaid
	}
	if u.PaymentMethod != nil {
		v.PaymentMethod = model.PaymentMethod(*u.PaymentMethod)
	}
	if u.PaymentStatus != nil {
		v.PaymentStatus = model.PaymentStatus(*u.PaymentStatus)
	}
	v.UpdatedAt = at
	cv := *v
	return &cv, nil
}

func (r *visits) ListPending(_ context.Context) ([]*model.PendingPayment, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	out := []*model.PendingPayment{}
	for _, v := range s.visits {
		if v.PaymentStatus != model.PaymentStatusPending {
			continue
		}
		p := s.patients[v.PatientID]
		out = append(out, &model.PendingPayment{
			Visit:   *v,
			Patient: model.PatientRef{ID: p.ID, RegNo: p.RegNo, Name: p.Name, PhoneNo: p.PhoneNo},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitDate.Before(out[j].VisitDate) })
	return out, nil
}

func (r *visits) Overview(_ context.Context) (*model.PaymentOverview, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	o := &model.PaymentOverview{}
	withPending := map[uuid.UUID]struct{}{}
	for _, v := range s.visits {
		o.TotalCollected += v.AmountPaid
		o.VisitCount++
		if v.PaymentStatus == model.PaymentStatusPending {
			o.PendingVisits++
			withPending[v.PatientID] = struct{}{}
		}
	}
	o.PatientsWithPending = len(withPending)
	return o, nil
}

type users Store

func (r *users) Create(_ context.Context, u *model.User) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperrors.Conflict("a user with this email already exists", nil)
		}
	}
	cu := *u
	s.users[u.ID] = &cu
	return nil
}

func (r *users) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	cu := *u
	return &cu, nil
}

func (r *users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cu := *u
			return &cu, nil
		}
	}
	return nil, apperrors.NotFound("user", nil)
}

type outbox Store

func (r *outbox) Create(_ context.Context, e *model.OutboxEvent) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e == nil || e.Payload == nil {
		return errors.New("event payload cannot be nil")
	}
	ce := *e
	s.events[e.ID] = &ce
	return nil
}

func (r *outbox) ClaimPending(_ context.Context, limit int, _ time.Duration) ([]*model.OutboxEvent, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	out := []*model.OutboxEvent{}
	for _, e := range s.events {
		if e.Status == model.OutboxStatusPending {
			ce := *e
			out = append(out, &ce)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *outbox) MarkProcessed(_ context.Context, id uuid.UUID) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return apperrors.NotFound("outbox event", nil)
	}
	now := time.Now()
	e.Status = model.OutboxStatusProcessed
	e.ProcessedAt = &now
	return nil
}

func (r *outbox) MarkFailed(_ context.Context, id uuid.UUID, reason string, terminal bool) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return apperrors.NotFound("outbox event", nil)
	}
	e.RetryCount++
	e.ErrorMessage = &reason
	if terminal {
		e.Status = model.OutboxStatusFailed
	}
	return nil
}

func (r *outbox) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.events {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(s.events, id)
			n++
		}
	}
	return n, nil
}
