package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/Msa-soilihi-Hamza/calanques-api/internal/core/domain"
	"github.com/Msa-soilihi-Hamza/calanques-api/internal/repository"
)

func newUserRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "email", "first_name", "last_name", "password_hash", "role",
		"is_active", "email_verified_at", "remember_token_hash", "created_at", "updated_at",
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	now := time.Now().UTC()
	rows := newUserRows().AddRow(
		int64(7), "marie.durand@example.com", "Marie", "Durand", "argon2id$...", "admin",
		true, nil, nil, now, now,
	)

	mock.ExpectQuery(`SELECT .*FROM parc\.users`).
		WithArgs("marie.durand@example.com").
		WillReturnRows(rows)

	user, err := repo.GetByEmail(context.Background(), "  Marie.Durand@Example.com ")
	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}
	if user.ID != 7 {
		t.Fatalf("expected id 7, got %d", user.ID)
	}
	if user.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", user.Role)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectQuery(`SELECT .*FROM parc\.users`).
		WithArgs(int64(99)).
		WillReturnRows(newUserRows())

	_, err = repo.GetByID(context.Background(), 99)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	now := time.Now().UTC()
	user := domain.User{
		Email:        "paul.martin@example.com",
		FirstName:    "Paul",
		LastName:     "Martin",
		PasswordHash: "argon2id$...",
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectQuery(`INSERT INTO parc\.users`).
		WithArgs(
			user.Email,
			user.FirstName,
			user.LastName,
			user.PasswordHash,
			"user",
			true,
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			now,
			now,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(12)))

	created, err := repo.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != 12 {
		t.Fatalf("expected assigned id 12, got %d", created.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_UpdateActiveStatusNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectExec(`UPDATE parc\.users`).
		WithArgs(false, pgxmock.AnyArg(), int64(404)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateActiveStatus(context.Background(), 404, false)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_SetRememberToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	hash := "abcdef0123456789"
	mock.ExpectExec(`UPDATE parc\.users`).
		WithArgs(&hash, pgxmock.AnyArg(), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.SetRememberToken(context.Background(), 7, &hash); err != nil {
		t.Fatalf("SetRememberToken returned error: %v", err)
	}

	// Clearing passes a nil hash.
	mock.ExpectExec(`UPDATE parc\.users`).
		WithArgs((*string)(nil), pgxmock.AnyArg(), int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.SetRememberToken(context.Background(), 7, nil); err != nil {
		t.Fatalf("SetRememberToken (clear) returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_CountActiveAdmins(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM parc\.users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountActiveAdmins(context.Background())
	if err != nil {
		t.Fatalf("CountActiveAdmins returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 active admin, got %d", count)
	}
}
