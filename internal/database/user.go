// internal/database/user.go
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jason-s-yu/songquiz/internal/auth"
	"github.com/jason-s-yu/songquiz/internal/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("email or username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const uniqueViolation = "23505"

const userColumns = `id, COALESCE(email, ''), COALESCE(password, ''), username, nickname, is_ephemeral, is_admin, created_at`

// CreateUser inserts u, hashing its password unless it is a guest.
// A missing id is generated.
func CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		u.ID = id
	}

	var email, password interface{}
	if !u.IsEphemeral {
		hash, err := auth.HashPassword(u.Password, auth.DefaultParams)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		u.Password = hash
		email, password = strings.ToLower(strings.TrimSpace(u.Email)), hash
	}

	q := `INSERT INTO users (id, email, password, username, nickname, is_ephemeral, is_admin)
	      VALUES ($1, $2, $3, $4, $5, $6, $7)
	      RETURNING created_at`
	err := beginTxFunc(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q,
			u.ID, email, password, u.Username, u.Nickname,
			u.IsEphemeral, u.IsAdmin,
		).Scan(&u.CreatedAt)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrUserExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// CreateGuest inserts an ephemeral user that plays under nickname.
func CreateGuest(ctx context.Context, nickname string) (*models.User, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user id: %w", err)
	}
	u := &models.User{
		ID:          id,
		Username:    "guest-" + id.String()[:8],
		Nickname:    nickname,
		IsEphemeral: true,
	}
	if err := CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, strings.ToLower(strings.TrimSpace(email)))
}

func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func getUser(ctx context.Context, q string, arg interface{}) (*models.User, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not connected")
	}
	var u models.User
	err := DB.QueryRow(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.Password, &u.Username, &u.Nickname,
		&u.IsEphemeral, &u.IsAdmin, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

// AuthenticateUser checks email and password and returns the matching user.
func AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	u, err := GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	match, err := auth.VerifyPassword(password, u.Password)
	if err != nil || !match {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// UpdateUserCredentials sets email and password, turning a guest into a registered user.
func UpdateUserCredentials(ctx context.Context, u *models.User) error {
	hashed, err := auth.HashPassword(u.Password, auth.DefaultParams)
	if err != nil {
		return err
	}

	q := `UPDATE users SET email = $1, password = $2, is_ephemeral = FALSE WHERE id = $3`
	err = beginTxFunc(ctx, func(tx pgx.Tx) error {
		tag, e := tx.Exec(ctx, q, strings.ToLower(strings.TrimSpace(u.Email)), hashed, u.ID)
		if e == nil && tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return e
	})
	if err != nil {
		return fmt.Errorf("failed to update user credentials: %w", err)
	}
	u.Password = hashed
	u.IsEphemeral = false
	return nil
}
