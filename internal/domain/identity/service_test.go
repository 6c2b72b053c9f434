package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/billing/internal/apperr"
	"github.com/clinicore/billing/internal/platform/auth"
)

type mockUserRepo struct {
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (m *mockUserRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	var out []*User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func TestService_Create(t *testing.T) {
	svc := NewService(newMockUserRepo(), zerolog.Nop())
	ctx := context.Background()

	u, err := svc.Create(ctx, "alice", auth.RolePatient, "Alice", "Smith")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == uuid.Nil {
		t.Error("id not assigned")
	}

	if _, err := svc.Create(ctx, "alice", auth.RoleHCP, "", ""); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("duplicate username: kind = %v", apperr.KindOf(err))
	}
	if _, err := svc.Create(ctx, "", auth.RolePatient, "", ""); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("empty username: kind = %v", apperr.KindOf(err))
	}
	if _, err := svc.Create(ctx, "bob", "janitor", "", ""); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("bad role: kind = %v", apperr.KindOf(err))
	}
}

func TestService_IDByUsername(t *testing.T) {
	svc := NewService(newMockUserRepo(), zerolog.Nop())
	ctx := context.Background()

	u, err := svc.Create(ctx, "alice", auth.RolePatient, "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	id, err := svc.IDByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("IDByUsername: %v", err)
	}
	if id != u.ID {
		t.Errorf("id = %s, want %s", id, u.ID)
	}

	if _, err := svc.IDByUsername(ctx, "nobody"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("unknown username: kind = %v", apperr.KindOf(err))
	}
}
