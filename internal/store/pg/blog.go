package pg

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"scribe.dev/internal/auth"
	"scribe.dev/internal/blog"
)

const entryColumns = `id, title, slug, description, body, created, updated, likes, header_image, published_date, is_published, author_id`

func scanEntry(row rowScanner) (blog.Entry, error) {
	var (
		e         blog.Entry
		published sql.NullTime
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Slug, &e.Description, &e.Body, &e.Created, &e.Updated,
		&e.Likes, &e.HeaderImage, &published, &e.IsPublished, &e.AuthorID); err != nil {
		return blog.Entry{}, err
	}
	if published.Valid {
		t := published.Time
		e.PublishedDate = &t
	}
	return e, nil
}

func publishedArg(e blog.Entry) sql.NullTime {
	if e.PublishedDate == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *e.PublishedDate, Valid: true}
}

func (s *Store) CreateEntry(ctx context.Context, e *blog.Entry) error {
	if s.db == nil {
		return errNoDB
	}
	return s.db.QueryRowContext(ctx, `
		insert into blog_entries (title, slug, description, body, created, updated, likes, header_image, published_date, is_published, author_id)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		returning id
	`, e.Title, e.Slug, e.Description, e.Body, e.Created, e.Updated, e.Likes, e.HeaderImage, publishedArg(*e), e.IsPublished, e.AuthorID).Scan(&e.ID)
}

func (s *Store) GetEntry(ctx context.Context, id int64) (blog.Entry, error) {
	if s.db == nil {
		return blog.Entry{}, errNoDB
	}
	e, err := scanEntry(s.db.QueryRowContext(ctx, `select `+entryColumns+` from blog_entries where id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return blog.Entry{}, blog.ErrNotFound
	}
	return e, err
}

// ListEntries lists entries by id; authorID 0 means all authors.
func (s *Store) ListEntries(ctx context.Context, authorID int64, limit, offset int) ([]blog.Entry, int, error) {
	if s.db == nil {
		return nil, 0, errNoDB
	}
	where, args := "", []any{}
	if authorID > 0 {
		where = ` where author_id = $1`
		args = append(args, authorID)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from blog_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := `select ` + entryColumns + ` from blog_entries` + where +
		` order by id limit $` + itoa(n+1) + ` offset $` + itoa(n+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []blog.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e blog.Entry) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `
		update blog_entries
		set title = $1, slug = $2, description = $3, body = $4, updated = $5,
		    header_image = $6, published_date = $7, is_published = $8
		where id = $9
	`, e.Title, e.Slug, e.Description, e.Body, e.Updated, e.HeaderImage, publishedArg(e), e.IsPublished, e.ID)
	if err != nil {
		return err
	}
	return affected(res, blog.ErrNotFound)
}

func (s *Store) DeleteEntry(ctx context.Context, id int64) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `delete from blog_entries where id = $1`, id)
	if err != nil {
		return err
	}
	return affected(res, blog.ErrNotFound)
}

// FindOwnership implements auth.ResourceLookup.
func (s *Store) FindOwnership(ctx context.Context, id int64) (auth.OwnershipFact, error) {
	if s.db == nil {
		return auth.OwnershipFact{}, errNoDB
	}
	fact := auth.OwnershipFact{ResourceID: id}
	err := s.db.QueryRowContext(ctx, `select author_id from blog_entries where id = $1`, id).Scan(&fact.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.OwnershipFact{}, blog.ErrNotFound
	}
	if err != nil {
		return auth.OwnershipFact{}, err
	}
	return fact, nil
}

func itoa(n int) string { return strconv.Itoa(n) }
