package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gearguard/backend/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

func (r *Repository) CreateUser(user *domain.User) error {
	query := `
		INSERT INTO users (email, username, password_hash, first_name, last_name, age, gender, address, designation, department, is_active, is_staff, is_superuser)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, date_joined
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{
		user.Email, user.Username, user.PasswordHash,
		user.FirstName, user.LastName,
		user.Age, user.Gender, user.Address, user.Designation, user.Department,
		user.IsActive, user.IsStaff, user.IsSuperuser,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.DateJoined); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateEmail
		}
		return err
	}

	return nil
}

func (r *Repository) GetUserByEmailOrUsername(identifier string) (*domain.User, error) {
	query := `
		SELECT id, email, username, password_hash, first_name, last_name, age, gender, address, designation, department, is_active, is_staff, is_superuser, last_login, date_joined
		FROM users WHERE email = $1 OR username = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	user := &domain.User{}

	dst := []any{
		&user.ID, &user.Email, &user.Username, &user.PasswordHash,
		&user.FirstName, &user.LastName,
		&user.Age, &user.Gender, &user.Address, &user.Designation, &user.Department,
		&user.IsActive, &user.IsStaff, &user.IsSuperuser,
		&user.LastLogin, &user.DateJoined,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, identifier).Scan(dst...); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *Repository) GetUserByID(id int64) (*domain.User, error) {
	query := `
		SELECT email, username, password_hash, first_name, last_name, age, gender, address, designation, department, is_active, is_staff, is_superuser, last_login, date_joined
		FROM users WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	user := &domain.User{
		ID: id,
	}

	dst := []any{
		&user.Email, &user.Username, &user.PasswordHash,
		&user.FirstName, &user.LastName,
		&user.Age, &user.Gender, &user.Address, &user.Designation, &user.Department,
		&user.IsActive, &user.IsStaff, &user.IsSuperuser,
		&user.LastLogin, &user.DateJoined,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *Repository) TouchLastLogin(id int64) error {
	query := `
		UPDATE users SET last_login = now() WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return nil
}

func (r *Repository) CheckEmailIfExists(email string) (bool, error) {
	isExists := false

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)
	`
	if err := r.dbpool.QueryRowContext(ctx, query, email).Scan(&isExists); err != nil {
		return false, err
	}

	return isExists, nil
}
