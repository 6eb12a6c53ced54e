package user

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eldorm20/ImmigrationAI-app-sub001/internal/auth"
)

type fakeUserRepo struct {
	byEmail map[string]*User
	nextID  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*User{}}
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, u *User) error {
	if _, exists := r.byEmail[u.Email]; exists {
		return ErrEmailAlreadyUsed
	}
	r.nextID++
	u.ID = "user-" + strconv.Itoa(r.nextID)
	u.CreatedAt = time.Now()
	r.byEmail[u.Email] = u
	return nil
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id string, t time.Time) error {
	u, err := r.GetByID(context.Background(), id)
	if err != nil {
		return err
	}
	u.LastLoginAt = &t
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, filter Filter) ([]*User, int, error) {
	var out []*User
	for _, u := range r.byEmail {
		if filter.Role != "" && string(u.Role) != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func newUserService(repo Repository) Service {
	// MinCost keeps the hash rounds cheap for tests.
	hasher := auth.NewBcryptPasswordHasherWithCost(bcrypt.MinCost)
	return NewService(repo, hasher, zap.NewNop())
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("applicant signup", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := newUserService(repo)

		u, err := svc.Register(ctx, RegisterRequest{
			Email:       "  Alice@Example.com ",
			Password:    "correct horse",
			DisplayName: "Alice",
			Role:        RoleApplicant,
		})

		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.Equal(t, "alice@example.com", u.Email, "email should be normalized")
		assert.Equal(t, RoleApplicant, u.Role)
		assert.True(t, u.IsActive)
		assert.NotEqual(t, "correct horse", u.PasswordHash, "password must be stored hashed")
	})

	t.Run("short password rejected", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := newUserService(repo)

		_, err := svc.Register(ctx, RegisterRequest{
			Email:    "bob@example.com",
			Password: "short",
			Role:     RoleApplicant,
		})
		assert.Error(t, err)
	})

	t.Run("admin signup rejected", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := newUserService(repo)

		_, err := svc.Register(ctx, RegisterRequest{
			Email:    "root@example.com",
			Password: "long enough",
			Role:     RoleAdmin,
		})
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := newUserService(repo)

		_, err := svc.Register(ctx, RegisterRequest{
			Email: "carol@example.com", Password: "long enough", Role: RoleLawyer,
		})
		require.NoError(t, err)

		_, err = svc.Register(ctx, RegisterRequest{
			Email: "CAROL@example.com", Password: "long enough", Role: RoleApplicant,
		})
		assert.ErrorIs(t, err, ErrEmailAlreadyUsed)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (Service, *fakeUserRepo) {
		t.Helper()
		repo := newFakeUserRepo()
		svc := newUserService(repo)
		_, err := svc.Register(ctx, RegisterRequest{
			Email: "dana@example.com", Password: "long enough", Role: RoleApplicant,
		})
		require.NoError(t, err)
		return svc, repo
	}

	t.Run("records last login", func(t *testing.T) {
		svc, _ := setup(t)

		u, err := svc.Login(ctx, "dana@example.com", "long enough")
		require.NoError(t, err)
		assert.NotNil(t, u.LastLoginAt)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, _ := setup(t)

		_, err := svc.Login(ctx, "dana@example.com", "wrong password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email looks like wrong password", func(t *testing.T) {
		svc, _ := setup(t)

		_, err := svc.Login(ctx, "nobody@example.com", "long enough")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("deactivated account", func(t *testing.T) {
		svc, repo := setup(t)
		repo.byEmail["dana@example.com"].IsActive = false

		_, err := svc.Login(ctx, "dana@example.com", "long enough")
		assert.ErrorIs(t, err, ErrInactiveUser)
	})
}

func TestListLawyers(t *testing.T) {
	ctx := context.Background()
	repo := newFakeUserRepo()
	svc := newUserService(repo)

	for i, req := range []RegisterRequest{
		{Email: "l1@example.com", Password: "long enough", Role: RoleLawyer},
		{Email: "l2@example.com", Password: "long enough", Role: RoleLawyer},
		{Email: "a1@example.com", Password: "long enough", Role: RoleApplicant},
	} {
		_, err := svc.Register(ctx, req)
		require.NoError(t, err, "register #%d", i)
	}
	repo.byEmail["l2@example.com"].IsActive = false

	lawyers, total, err := svc.ListLawyers(ctx, 1, 20)
	require.NoError(t, err)

	assert.Equal(t, 1, total)
	require.Len(t, lawyers, 1)
	assert.Equal(t, "l1@example.com", lawyers[0].Email)
}
