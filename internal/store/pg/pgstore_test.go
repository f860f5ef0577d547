package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"scribe.dev/internal/auth"
	"scribe.dev/internal/blog"
	"scribe.dev/internal/users"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return New(db), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

var userCols = []string{"id", "name", "username", "email", "password_hash", "role", "profile_image", "created_at", "updated_at"}

func TestCreateUser(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery("insert into users").
		WithArgs("Ada", "ada", "ada@example.com", "hash", "user", sql.NullString{}, now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	u := users.User{Name: "Ada", Username: "ada", Email: "ada@example.com", PasswordHash: "hash", Role: auth.RoleUser, CreatedAt: now, UpdatedAt: now}
	if err := store.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID != 7 {
		t.Fatalf("id=%d, want 7", u.ID)
	}
	expectationsMet(t, mock)
}

func TestCreateUserConflict(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("insert into users").WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := store.CreateUser(context.Background(), &users.User{Role: auth.RoleUser})
	if !errors.Is(err, users.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestGetUser(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery("select .* from users where id = \\$1").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(3), "Bob", "bob", "bob@example.com", "h", "admin", nil, now, now))
	mock.ExpectQuery("select .* from users where id = \\$1").WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(userCols))

	u, err := store.GetUser(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.Role != auth.RoleAdmin || u.ProfileImage != "" || u.Username != "bob" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := store.GetUser(context.Background(), 4); !errors.Is(err, users.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestListUsersWithFilter(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery("select count\\(\\*\\) from users where username ilike \\$1").WithArgs(`%a\_d%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery("from users where username ilike \\$1 order by id limit \\$2 offset \\$3").WithArgs(`%a\_d%`, 5, 10).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(1), "A", "a_d", "a@example.com", "h", "user", "pic.png", now, now))

	items, total, err := store.ListUsers(context.Background(), users.Filter{Username: "a_d"}, 5, 10)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if total != 11 || len(items) != 1 || items[0].ProfileImage != "pic.png" {
		t.Fatalf("unexpected result total=%d items=%+v", total, items)
	}
	expectationsMet(t, mock)
}

func TestUpdateAndDeleteUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("update users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("delete from users where id = \\$1").WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.UpdateUser(context.Background(), users.User{ID: 9, Role: auth.RoleUser}); !errors.Is(err, users.ErrNotFound) {
		t.Fatalf("update: expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteUser(context.Background(), 9); !errors.Is(err, users.ErrNotFound) {
		t.Fatalf("delete: expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestFindIdentityAndCredential(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("select id, role from users where id = \\$1").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).AddRow(int64(5), "admin"))
	mock.ExpectQuery("select id, password_hash from users where email = \\$1").WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).AddRow(int64(5), "$argon2id$..."))
	mock.ExpectQuery("select id, role from users where id = \\$1").WithArgs(int64(6)).
		WillReturnError(sql.ErrNoRows)

	id, err := store.FindIdentity(context.Background(), 5)
	if err != nil || id != (auth.Identity{ID: 5, Role: auth.RoleAdmin}) {
		t.Fatalf("FindIdentity: %+v %v", id, err)
	}
	cred, err := store.FindCredentialByEmail(context.Background(), " Ada@Example.COM")
	if err != nil || cred.UserID != 5 {
		t.Fatalf("FindCredentialByEmail: %+v %v", cred, err)
	}
	if _, err := store.FindIdentity(context.Background(), 6); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected auth.ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

var entryCols = []string{"id", "title", "slug", "description", "body", "created", "updated", "likes", "header_image", "published_date", "is_published", "author_id"}

func TestEntryRoundTrip(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("insert into blog_entries").
		WithArgs("Hello World", "hello-world", "", "body", now, now, 0, "", sql.NullTime{}, false, int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(30)))
	mock.ExpectQuery("select .* from blog_entries where id = \\$1").WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows(entryCols).AddRow(int64(30), "Hello World", "hello-world", "", "body", now, now, 0, "", now, true, int64(2)))

	e := blog.Entry{Title: "Hello World", Slug: "hello-world", Body: "body", Created: now, Updated: now, AuthorID: 2}
	if err := store.CreateEntry(context.Background(), &e); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if e.ID != 30 {
		t.Fatalf("id=%d, want 30", e.ID)
	}
	got, err := store.GetEntry(context.Background(), 30)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.PublishedDate == nil || !got.IsPublished || got.AuthorID != 2 {
		t.Fatalf("unexpected entry %+v", got)
	}
	expectationsMet(t, mock)
}

func TestListEntriesByAuthor(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery("select count\\(\\*\\) from blog_entries where author_id = \\$1").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("from blog_entries where author_id = \\$1 order by id limit \\$2 offset \\$3").WithArgs(int64(2), 10, 0).
		WillReturnRows(sqlmock.NewRows(entryCols).AddRow(int64(1), "t", "t", "", "", now, now, 3, "", nil, false, int64(2)))

	items, total, err := store.ListEntries(context.Background(), 2, 10, 0)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].Likes != 3 || items[0].PublishedDate != nil {
		t.Fatalf("unexpected result total=%d items=%+v", total, items)
	}
	expectationsMet(t, mock)
}

func TestFindOwnership(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("select author_id from blog_entries where id = \\$1").WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"author_id"}).AddRow(int64(9)))
	mock.ExpectQuery("select author_id from blog_entries where id = \\$1").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"author_id"}))

	fact, err := store.FindOwnership(context.Background(), 4)
	if err != nil || fact != (auth.OwnershipFact{ResourceID: 4, OwnerID: 9}) {
		t.Fatalf("FindOwnership: %+v %v", fact, err)
	}
	if _, err := store.FindOwnership(context.Background(), 5); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected auth.ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestDeleteEntry(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("delete from blog_entries where id = \\$1").WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("delete from blog_entries where id = \\$1").WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteEntry(context.Background(), 4); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if err := store.DeleteEntry(context.Background(), 5); !errors.Is(err, blog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}
