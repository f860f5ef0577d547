package pg

import (
	"context"
	"database/sql"
	"errors"

	"scribe.dev/internal/auth"
	"scribe.dev/internal/users"
)

const userColumns = `id, name, username, email, password_hash, role, profile_image, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (users.User, error) {
	var (
		u     users.User
		role  string
		image sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &role, &image, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return users.User{}, err
	}
	u.Role = auth.Role(role)
	u.ProfileImage = image.String
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *users.User) error {
	if s.db == nil {
		return errNoDB
	}
	err := s.db.QueryRowContext(ctx, `
		insert into users (name, username, email, password_hash, role, profile_image, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning id
	`, u.Name, u.Username, u.Email, u.PasswordHash, string(u.Role), nullIfEmpty(u.ProfileImage), u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return users.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (users.User, error) {
	if s.db == nil {
		return users.User{}, errNoDB
	}
	u, err := scanUser(s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return users.User{}, users.ErrNotFound
	}
	return u, err
}

func (s *Store) ListUsers(ctx context.Context, f users.Filter, limit, offset int) ([]users.User, int, error) {
	if s.db == nil {
		return nil, 0, errNoDB
	}
	where, args := "", []any{}
	if f.Username != "" {
		where = ` where username ilike $1`
		args = append(args, likePattern(f.Username))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := `select ` + userColumns + ` from users` + where +
		` order by id limit $` + itoa(n+1) + ` offset $` + itoa(n+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []users.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) UpdateUser(ctx context.Context, u users.User) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `
		update users
		set name = $1, username = $2, role = $3, profile_image = $4, updated_at = $5
		where id = $6
	`, u.Name, u.Username, string(u.Role), nullIfEmpty(u.ProfileImage), u.UpdatedAt, u.ID)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return users.ErrConflict
		}
		return err
	}
	return affected(res, users.ErrNotFound)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	return affected(res, users.ErrNotFound)
}

// FindIdentity implements auth.UserLookup.
func (s *Store) FindIdentity(ctx context.Context, id int64) (auth.Identity, error) {
	if s.db == nil {
		return auth.Identity{}, errNoDB
	}
	var (
		identity auth.Identity
		role     string
	)
	err := s.db.QueryRowContext(ctx, `select id, role from users where id = $1`, id).Scan(&identity.ID, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Identity{}, users.ErrNotFound
	}
	if err != nil {
		return auth.Identity{}, err
	}
	identity.Role = auth.Role(role)
	return identity, nil
}

// FindCredentialByEmail implements auth.CredentialStore.
func (s *Store) FindCredentialByEmail(ctx context.Context, email string) (auth.Credential, error) {
	if s.db == nil {
		return auth.Credential{}, errNoDB
	}
	var cred auth.Credential
	err := s.db.QueryRowContext(ctx, `select id, password_hash from users where email = $1`, users.NormalizeEmail(email)).
		Scan(&cred.UserID, &cred.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Credential{}, users.ErrNotFound
	}
	if err != nil {
		return auth.Credential{}, err
	}
	return cred, nil
}

// UpdatePasswordHash implements auth.CredentialUpdater.
func (s *Store) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `update users set password_hash = $1, updated_at = now() where id = $2`, hash, userID)
	if err != nil {
		return err
	}
	return affected(res, users.ErrNotFound)
}
