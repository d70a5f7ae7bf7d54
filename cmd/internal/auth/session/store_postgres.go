package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"authkit/cmd/identity"
	"authkit/cmd/internal/auth/token"
	"authkit/cmd/internal/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// The pgx pool is owned by the caller; this store does not close it. Identifier
// uniqueness is enforced by the service according to Config, not by constraints.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the schema holding the users and sessions tables (default migrations.Schema).
// migrations.Up only creates migrations.Schema; any other schema must be migrated by the caller.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("session: invalid schema identifier %q", schema)
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: migrations.Schema}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("session: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) table(name string) string {
	return pgx.Identifier{s.schema, name}.Sanitize()
}

const userColumns = `id, username, email, phone_number, name, identity_verified,
	user_pic_uri, profile_pic_uri, address, metadata, contact_info, other_data`

func scanUser(row pgx.Row) (identity.User, error) {
	var (
		u                                           identity.User
		name, address, metadata, contact, otherData []byte
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PhoneNumber, &name, &u.IdentityVerified,
		&u.UserPicURI, &u.ProfilePicURI, &address, &metadata, &contact, &otherData,
	)
	if err != nil {
		return identity.User{}, err
	}

	docs := []struct {
		raw []byte
		dst any
	}{
		{name, &u.Name},
		{address, &u.Address},
		{metadata, &u.Metadata},
		{contact, &u.ContactInfo},
		{otherData, &u.OtherData},
	}
	for _, d := range docs {
		if len(d.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(d.raw, d.dst); err != nil {
			return identity.User{}, fmt.Errorf("decode user document: %w", err)
		}
	}
	return u, nil
}

type userDocs struct {
	name, address, metadata, contact, otherData []byte
}

func marshalUserDocs(u identity.User) (userDocs, error) {
	var (
		d   userDocs
		err error
	)
	if d.name, err = json.Marshal(u.Name); err != nil {
		return userDocs{}, err
	}
	if u.Address != nil {
		if d.address, err = json.Marshal(u.Address); err != nil {
			return userDocs{}, err
		}
	}
	if u.Metadata != nil {
		if d.metadata, err = json.Marshal(u.Metadata); err != nil {
			return userDocs{}, err
		}
	}
	if len(u.ContactInfo) > 0 {
		if d.contact, err = json.Marshal(u.ContactInfo); err != nil {
			return userDocs{}, err
		}
	}
	if len(u.OtherData) > 0 {
		if d.otherData, err = json.Marshal(u.OtherData); err != nil {
			return userDocs{}, err
		}
	}
	return d, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (identity.User, error) {
	const op = "session.GetUserByID"

	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+s.table("users")+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return identity.User{}, identity.NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return identity.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s *PostgresStore) FindUsersByEmail(ctx context.Context, email string) ([]identity.User, error) {
	return s.findBy(ctx, "email", email)
}

func (s *PostgresStore) FindUsersByPhoneNumber(ctx context.Context, phone string) ([]identity.User, error) {
	return s.findBy(ctx, "phone_number", phone)
}

func (s *PostgresStore) FindUsersByUsername(ctx context.Context, username string) ([]identity.User, error) {
	return s.findBy(ctx, "username", username)
}

// findBy is only called with fixed column names.
func (s *PostgresStore) findBy(ctx context.Context, column, value string) ([]identity.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM `+s.table("users")+` WHERE `+column+` = $1 ORDER BY id`, value)
	if err != nil {
		return nil, fmt.Errorf("session.findBy %s: %w", column, err)
	}
	defer rows.Close()

	var out []identity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateUser(ctx context.Context, u identity.User, passwordHash string) (identity.User, error) {
	const op = "session.CreateUser"

	docs, err := marshalUserDocs(u)
	if err != nil {
		return identity.User{}, fmt.Errorf("%s: %w", op, err)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO `+s.table("users")+` (
			username, email, phone_number, password_hash, name, identity_verified,
			user_pic_uri, profile_pic_uri, address, metadata, contact_info, other_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		u.Username, u.Email, u.PhoneNumber, passwordHash, docs.name, u.IdentityVerified,
		u.UserPicURI, u.ProfilePicURI, docs.address, docs.metadata, docs.contact, docs.otherData,
	).Scan(&u.ID)
	if err != nil {
		if field, ok := pgUniqueViolationField(err); ok {
			return identity.User{}, identity.Duplicate(op, field)
		}
		return identity.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByCredentials(ctx context.Context, kind Credential, identifier, passwordHash string) (identity.User, error) {
	const op = "session.GetUserByCredentials"

	var column string
	switch kind {
	case CredentialEmail:
		column = "email"
	case CredentialUsername:
		column = "username"
	case CredentialPhoneNumber:
		column = "phone_number"
	default:
		return identity.User{}, identity.OpError{Op: op, Kind: identity.ErrInvalidInput, Msg: "unknown credential kind"}
	}

	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+s.table("users")+`
		WHERE `+column+` = $1 AND password_hash = $2
		ORDER BY id
		LIMIT 1`, identifier, passwordHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return identity.User{}, identity.NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return identity.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, u identity.User) (identity.User, error) {
	const op = "session.UpdateUser"

	docs, err := marshalUserDocs(u)
	if err != nil {
		return identity.User{}, fmt.Errorf("%s: %w", op, err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE `+s.table("users")+`
		SET username = $2, email = $3, phone_number = $4, name = $5, identity_verified = $6,
		    user_pic_uri = $7, profile_pic_uri = $8, address = $9, metadata = $10,
		    contact_info = $11, other_data = $12, updated_at = now()
		WHERE id = $1
	`,
		u.ID, u.Username, u.Email, u.PhoneNumber, docs.name, u.IdentityVerified,
		u.UserPicURI, u.ProfilePicURI, docs.address, docs.metadata, docs.contact, docs.otherData,
	)
	if err != nil {
		if field, ok := pgUniqueViolationField(err); ok {
			return identity.User{}, identity.Duplicate(op, field)
		}
		return identity.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return identity.User{}, identity.NotFoundError{Op: op, Resource: "user"}
	}
	return u, nil
}

// DeleteUser relies on ON DELETE CASCADE from sessions.user_id.
func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table("users")+` WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("session.DeleteUser: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

const sessionColumns = `id, user_id, login_at, device_type, device_name, email_verified, phone_number_verified`

func scanSession(row pgx.Row) (DeviceSession, error) {
	var (
		ds     DeviceSession
		device *string
	)
	if err := row.Scan(&ds.ID, &ds.UserID, &ds.LoginAt, &device, &ds.DeviceName, &ds.EmailVerified, &ds.PhoneNumberVerified); err != nil {
		return DeviceSession{}, err
	}
	ds.LoginAt = ds.LoginAt.UTC()
	if device != nil {
		d, err := token.ParseDeviceType(*device)
		if err != nil {
			return DeviceSession{}, err
		}
		ds.DeviceType = &d
	}
	return ds, nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, ds DeviceSession) (DeviceSession, error) {
	const op = "session.CreateSession"

	var device *string
	if ds.DeviceType != nil {
		v := string(*ds.DeviceType)
		device = &v
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO `+s.table("sessions")+` (
			user_id, login_at, device_type, device_name, email_verified, phone_number_verified
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, ds.UserID, ds.LoginAt, device, ds.DeviceName, ds.EmailVerified, ds.PhoneNumberVerified).Scan(&ds.ID)
	if err != nil {
		if pgIsForeignKeyViolation(err) {
			return DeviceSession{}, identity.NotFoundError{Op: op, Resource: "user"}
		}
		return DeviceSession{}, fmt.Errorf("%s: %w", op, err)
	}
	return ds, nil
}

func (s *PostgresStore) GetSessionByRefreshHash(ctx context.Context, hash string) (DeviceSession, error) {
	ds, err := scanSession(s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM `+s.table("sessions")+` WHERE refresh_token_hash = $1`, hash))
	if errors.Is(err, pgx.ErrNoRows) {
		return DeviceSession{}, ErrUnknownSession
	}
	if err != nil {
		return DeviceSession{}, fmt.Errorf("session.GetSessionByRefreshHash: %w", err)
	}
	return ds, nil
}

func (s *PostgresStore) GetSessionTokens(ctx context.Context, sessionID int64) (Tokens, error) {
	var (
		t               Tokens
		access, refresh *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, access_token_hash, refresh_token_hash, issued_at
		FROM `+s.table("sessions")+`
		WHERE id = $1
	`, sessionID).Scan(&t.SessionID, &t.UserID, &access, &refresh, &t.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tokens{}, ErrUnknownSession
	}
	if err != nil {
		return Tokens{}, fmt.Errorf("session.GetSessionTokens: %w", err)
	}
	if access != nil {
		t.AccessHash = *access
	}
	if refresh != nil {
		t.RefreshHash = *refresh
	}
	return t, nil
}

func (s *PostgresStore) UpdateSessionTokens(ctx context.Context, sessionID int64, accessHash, refreshHash string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE `+s.table("sessions")+`
		SET access_token_hash = $2, refresh_token_hash = $3, issued_at = $4
		WHERE id = $1
	`, sessionID, accessHash, refreshHash, at)
	if err != nil {
		return fmt.Errorf("session.UpdateSessionTokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownSession
	}
	return nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, userID, sessionID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM `+s.table("sessions")+` WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return false, fmt.Errorf("session.DeleteSession: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) DeleteSessions(ctx context.Context, userID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.table("sessions")+` WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("session.DeleteSessions: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) PurgeSessions(ctx context.Context, unissuedBefore, issuedBefore time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM `+s.table("sessions")+`
		WHERE (issued_at IS NULL AND login_at < $1)
		   OR (issued_at IS NOT NULL AND issued_at < $2)
	`, unissuedBefore, issuedBefore)
	if err != nil {
		return 0, fmt.Errorf("session.PurgeSessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func pgIsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23503" // foreign_key_violation
}

// pgUniqueViolationField maps a unique_violation on an identifier index to its field.
func pgUniqueViolationField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return "", false
	}
	c := strings.ToLower(pgErr.ConstraintName)
	switch {
	case strings.Contains(c, "username"):
		return identity.FieldUsername, true
	case strings.Contains(c, "email"):
		return identity.FieldEmail, true
	case strings.Contains(c, "phone"):
		return identity.FieldPhoneNumber, true
	}
	return "", false
}
