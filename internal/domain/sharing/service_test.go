package sharing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/umrs/umrs/internal/domain/actor"
)

// -- Mock Repositories --

type mockRequestRepo struct {
	nextID int64
	rows   []*RecordRequest
}

func (m *mockRequestRepo) Create(_ context.Context, r *RecordRequest) error {
	m.nextID++
	r.ID = m.nextID
	r.RequestedAt = time.Now()
	m.rows = append(m.rows, r)
	return nil
}

func (m *mockRequestRepo) ListByActor(_ context.Context, a actor.Identity) ([]*RecordRequest, error) {
	var out []*RecordRequest
	for i := len(m.rows) - 1; i >= 0; i-- {
		r := m.rows[i]
		if r.Requester.Equal(a) || r.Receiver.Equal(a) {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockShareRepo struct {
	nextID int64
	rows   []*SharedRecord
}

func (m *mockShareRepo) Create(_ context.Context, r *SharedRecord) error {
	m.nextID++
	r.ID = m.nextID
	r.SharedAt = time.Now()
	m.rows = append(m.rows, r)
	return nil
}

func (m *mockShareRepo) GetByID(_ context.Context, id int64) (*SharedRecord, error) {
	for _, r := range m.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockShareRepo) ListByActor(_ context.Context, a actor.Identity) ([]*SharedRecord, error) {
	var out []*SharedRecord
	for i := len(m.rows) - 1; i >= 0; i-- {
		r := m.rows[i]
		if r.Sender.Equal(a) || r.Receiver.Equal(a) {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestService() (*Service, *mockRequestRepo, *mockShareRepo) {
	requests := &mockRequestRepo{}
	shares := &mockShareRepo{}
	return NewService(requests, shares, zerolog.Nop()), requests, shares
}

// -- Record request tests --

func TestCreateRecordRequest(t *testing.T) {
	svc, repo, _ := newTestService()

	req, err := svc.CreateRecordRequest(context.Background(),
		actor.Professional("SLMC01"), actor.Institute("INS01"), "PHN001", "lab", "referral")
	if err != nil {
		t.Fatalf("CreateRecordRequest: %v", err)
	}
	if req.Status != RequestStatusPending {
		t.Errorf("expected pending, got %s", req.Status)
	}
	if len(repo.rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(repo.rows))
	}
}

func TestCreateRecordRequestRejectsSelf(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.CreateRecordRequest(context.Background(),
		actor.Professional("SLMC01"), actor.Professional("SLMC01"), "PHN001", "", "")
	if !errors.Is(err, ErrSelfRequest) {
		t.Fatalf("expected ErrSelfRequest, got %v", err)
	}
	if len(repo.rows) != 0 {
		t.Errorf("rejected request must not insert, got %d rows", len(repo.rows))
	}

	// Same identifier under different kinds is two parties, not a self-request.
	if _, err := svc.CreateRecordRequest(context.Background(),
		actor.Professional("X1"), actor.Institute("X1"), "PHN001", "", ""); err != nil {
		t.Errorf("cross-kind request should pass: %v", err)
	}
}

func TestRecordRequestsAreNotDeduplicated(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	first, err := svc.CreateRecordRequest(ctx, actor.Professional("SLMC01"), actor.Institute("INS01"), "PHN001", "lab", "x")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.CreateRecordRequest(ctx, actor.Professional("SLMC01"), actor.Institute("INS01"), "PHN001", "lab", "x")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.ID == second.ID || len(repo.rows) != 2 {
		t.Errorf("identical submissions must each insert, got %d rows", len(repo.rows))
	}
}

func TestCreateRecordRequestValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateRecordRequest(ctx, actor.Professional("SLMC01"), actor.Identity{}, "PHN001", "", ""); err == nil {
		t.Error("expected error for missing receiver")
	}
	if _, err := svc.CreateRecordRequest(ctx, actor.Professional("SLMC01"), actor.Institute("INS01"), "", "", ""); err == nil {
		t.Error("expected error for missing patient phn")
	}
}

func TestListRecordRequestsSymmetricVisibility(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateRecordRequest(ctx, actor.Professional("SLMC01"), actor.Institute("INS01"), "PHN001", "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, a := range []actor.Identity{actor.Professional("SLMC01"), actor.Institute("INS01")} {
		items, err := svc.ListRecordRequests(ctx, a)
		if err != nil {
			t.Fatalf("list for %v: %v", a, err)
		}
		if len(items) != 1 {
			t.Errorf("%v should see the request, got %d", a, len(items))
		}
	}

	items, err := svc.ListRecordRequests(ctx, actor.Professional("SLMC99"))
	if err != nil {
		t.Fatalf("list for third party: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("third party must not see the request, got %d", len(items))
	}
}

// -- Shared record tests --

func TestShareRecordAppendOnly(t *testing.T) {
	svc, _, shares := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec, err := svc.ShareRecord(ctx, actor.Institute("INS01"), actor.Professional("SLMC01"),
			"PHN001", "lab", "blood", "uploads/report.pdf")
		if err != nil {
			t.Fatalf("ShareRecord %d: %v", i, err)
		}
		if rec.Status != ShareStatusShared {
			t.Errorf("expected status shared, got %s", rec.Status)
		}
	}
	if len(shares.rows) != 3 {
		t.Errorf("every share appends, expected 3 rows, got %d", len(shares.rows))
	}
}

func TestShareRecordValidation(t *testing.T) {
	svc, _, shares := newTestService()
	ctx := context.Background()

	if _, err := svc.ShareRecord(ctx, actor.Institute("INS01"), actor.Professional("SLMC01"), "PHN001", "", "", ""); err == nil {
		t.Error("expected error for missing file path")
	}
	if _, err := svc.ShareRecord(ctx, actor.Identity{}, actor.Professional("SLMC01"), "PHN001", "", "", "p"); err == nil {
		t.Error("expected error for missing sender")
	}
	if len(shares.rows) != 0 {
		t.Errorf("rejected shares must not insert, got %d", len(shares.rows))
	}
}

func TestListSharedRecordsSymmetricVisibility(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.ShareRecord(ctx, actor.Institute("INS01"), actor.Professional("SLMC01"),
		"PHN001", "lab", "", "uploads/a.pdf"); err != nil {
		t.Fatalf("share: %v", err)
	}

	for _, a := range []actor.Identity{actor.Institute("INS01"), actor.Professional("SLMC01")} {
		items, err := svc.ListSharedRecords(ctx, a)
		if err != nil {
			t.Fatalf("list for %v: %v", a, err)
		}
		if len(items) != 1 {
			t.Errorf("%v should see the shared record, got %d", a, len(items))
		}
	}

	items, err := svc.ListSharedRecords(ctx, actor.Institute("INS99"))
	if err != nil {
		t.Fatalf("list for third party: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("third party must not see the record, got %d", len(items))
	}
}
