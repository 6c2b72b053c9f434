package officevisit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/billing/internal/apperr"
	"github.com/clinicore/billing/internal/domain/billing"
	"github.com/clinicore/billing/internal/domain/cptcode"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type mockVisitRepo struct {
	visits map[uuid.UUID]*Visit
}

func newMockVisitRepo() *mockVisitRepo {
	return &mockVisitRepo{visits: make(map[uuid.UUID]*Visit)}
}

func (m *mockVisitRepo) Create(_ context.Context, v *Visit) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	cp := *v
	cp.Codes = append([]VisitCode(nil), v.Codes...)
	m.visits[v.ID] = &cp
	return nil
}

func (m *mockVisitRepo) GetByID(_ context.Context, id uuid.UUID) (*Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, apperr.NotFound("office visit not found")
	}
	cp := *v
	cp.Codes = append([]VisitCode(nil), v.Codes...)
	return &cp, nil
}

func (m *mockVisitRepo) Update(_ context.Context, v *Visit) error {
	if _, ok := m.visits[v.ID]; !ok {
		return apperr.NotFound("office visit not found")
	}
	cp := *v
	cp.Codes = append([]VisitCode(nil), v.Codes...)
	m.visits[v.ID] = &cp
	return nil
}

func (m *mockVisitRepo) List(_ context.Context, limit, offset int) ([]*Visit, int, error) {
	var out []*Visit
	for _, v := range m.visits {
		out = append(out, v)
	}
	return out, len(out), nil
}

func (m *mockVisitRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var out []*Visit
	for _, v := range m.visits {
		if v.PatientID == patientID {
			out = append(out, v)
		}
	}
	return out, len(out), nil
}

type mockCatalog struct {
	codes map[uuid.UUID]*cptcode.CPTCode
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{codes: make(map[uuid.UUID]*cptcode.CPTCode)}
}

func (m *mockCatalog) add(code string, cost int) *cptcode.CPTCode {
	c := &cptcode.CPTCode{ID: uuid.New(), Code: code, Description: "desc " + code, Cost: cost}
	m.codes[c.ID] = c
	return c
}

func (m *mockCatalog) GetCode(_ context.Context, id uuid.UUID) (*cptcode.CPTCode, error) {
	c, ok := m.codes[id]
	if !ok {
		return nil, apperr.NotFound("cpt code not found")
	}
	return c, nil
}

type mockBillIssuer struct {
	issued []*billing.Bill
	err    error
}

func (m *mockBillIssuer) CreateForVisit(_ context.Context, patientID, hcpID uuid.UUID, date time.Time, codes []billing.BillCode) (*billing.Bill, error) {
	if m.err != nil {
		return nil, m.err
	}
	cost := 0
	for _, c := range codes {
		cost += c.Cost
	}
	b := &billing.Bill{
		ID:             uuid.New(),
		PatientID:      patientID,
		AttendingHCPID: hcpID,
		Date:           date,
		Cost:           cost,
		AmountOwed:     cost,
		Status:         billing.StatusUnpaid,
		CPTCodes:       codes,
	}
	m.issued = append(m.issued, b)
	return b, nil
}

type fixture struct {
	svc     *Service
	repo    *mockVisitRepo
	catalog *mockCatalog
	bills   *mockBillIssuer
}

func newFixture() *fixture {
	repo := newMockVisitRepo()
	catalog := newMockCatalog()
	bills := &mockBillIssuer{}
	return &fixture{
		svc:     NewService(repo, catalog, bills, nil, zerolog.Nop()),
		repo:    repo,
		catalog: catalog,
		bills:   bills,
	}
}

func TestService_Create(t *testing.T) {
	f := newFixture()
	c1 := f.catalog.add("99213", 7500)
	c2 := f.catalog.add("99214", 11000)
	ctx := context.Background()

	v, err := f.svc.Create(ctx, uuid.New(), uuid.New(), testNow, []uuid.UUID{c1.ID, c2.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(v.Codes) != 2 {
		t.Errorf("codes = %d, want 2", len(v.Codes))
	}
	if len(f.bills.issued) != 1 {
		t.Fatalf("bills issued = %d, want 1", len(f.bills.issued))
	}
	b := f.bills.issued[0]
	if b.Cost != 18500 {
		t.Errorf("bill cost = %d, want 18500", b.Cost)
	}
	if v.BillID != b.ID {
		t.Error("visit not linked to issued bill")
	}
	if _, ok := f.repo.visits[v.ID]; !ok {
		t.Error("visit not persisted")
	}
}

func TestService_Create_UnknownCode(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), uuid.New(), uuid.New(), testNow, []uuid.UUID{uuid.New()})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("kind = %v, want not found", apperr.KindOf(err))
	}
	if len(f.bills.issued) != 0 {
		t.Error("bill issued despite failure")
	}
}

func TestService_Create_DuplicateCodeInRequest(t *testing.T) {
	f := newFixture()
	c1 := f.catalog.add("99213", 7500)
	_, err := f.svc.Create(context.Background(), uuid.New(), uuid.New(), testNow, []uuid.UUID{c1.ID, c1.ID})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("kind = %v, want conflict", apperr.KindOf(err))
	}
}

func TestService_Create_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.svc.Create(ctx, uuid.Nil, uuid.New(), testNow, nil); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("nil patient: %v", err)
	}
	if _, err := f.svc.Create(ctx, uuid.New(), uuid.Nil, testNow, nil); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("nil hcp: %v", err)
	}
	if _, err := f.svc.Create(ctx, uuid.New(), uuid.New(), time.Time{}, nil); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("zero date: %v", err)
	}
}

func TestService_AttachCode(t *testing.T) {
	f := newFixture()
	c1 := f.catalog.add("99213", 7500)
	c2 := f.catalog.add("99214", 11000)
	ctx := context.Background()

	v, err := f.svc.Create(ctx, uuid.New(), uuid.New(), testNow, []uuid.UUID{c1.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := f.svc.AttachCode(ctx, v.ID, c2.ID)
	if err != nil {
		t.Fatalf("AttachCode: %v", err)
	}
	if len(got.Codes) != 2 {
		t.Errorf("codes = %d, want 2", len(got.Codes))
	}

	// Same id again is a conflict.
	if _, err := f.svc.AttachCode(ctx, v.ID, c2.ID); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("duplicate id: kind = %v", apperr.KindOf(err))
	}

	// Different catalog id with the same code string is also a conflict.
	dup := f.catalog.add("99214", 9999)
	if _, err := f.svc.AttachCode(ctx, v.ID, dup.ID); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("duplicate code string: kind = %v", apperr.KindOf(err))
	}
}

func TestService_AttachCode_NotFound(t *testing.T) {
	f := newFixture()
	c1 := f.catalog.add("99213", 7500)
	ctx := context.Background()

	if _, err := f.svc.AttachCode(ctx, uuid.New(), c1.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("unknown visit: kind = %v", apperr.KindOf(err))
	}
	v, _ := f.svc.Create(ctx, uuid.New(), uuid.New(), testNow, nil)
	if _, err := f.svc.AttachCode(ctx, v.ID, uuid.New()); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("unknown code: kind = %v", apperr.KindOf(err))
	}
}

func TestService_DetachCode(t *testing.T) {
	f := newFixture()
	c1 := f.catalog.add("99213", 7500)
	ctx := context.Background()

	v, err := f.svc.Create(ctx, uuid.New(), uuid.New(), testNow, []uuid.UUID{c1.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := f.svc.DetachCode(ctx, v.ID, c1.ID)
	if err != nil {
		t.Fatalf("DetachCode: %v", err)
	}
	if len(got.Codes) != 0 {
		t.Errorf("codes = %d, want 0", len(got.Codes))
	}

	// Not held any more.
	if _, err := f.svc.DetachCode(ctx, v.ID, c1.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("detach absent code: kind = %v", apperr.KindOf(err))
	}
	// Unknown catalog code.
	if _, err := f.svc.DetachCode(ctx, v.ID, uuid.New()); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("unknown code: kind = %v", apperr.KindOf(err))
	}
	// Unknown visit.
	if _, err := f.svc.DetachCode(ctx, uuid.New(), c1.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("unknown visit: kind = %v", apperr.KindOf(err))
	}
}
