// album_repository.go implements AlbumRepository for the music catalog.
// Writes are transaction-scoped; the audit save interceptor owns the
// transaction boundary.
package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/chorusdesk/chorusdesk/internal/db/models"
)

const albumColumns = `id, title, composer, tags, release_year, created_at, created_by, updated_at, updated_by`

// AlbumRepository handles album database operations.
type AlbumRepository struct {
	db *sqlx.DB
}

// NewAlbumRepository creates a new AlbumRepository.
func NewAlbumRepository(db *sqlx.DB) *AlbumRepository {
	return &AlbumRepository{db: db}
}

// GetAlbumByID retrieves an album by id. Returns nil, nil when absent.
func (r *AlbumRepository) GetAlbumByID(ctx context.Context, id int64) (*models.Album, error) {
	album := &models.Album{}
	err := r.db.GetContext(ctx, album, `SELECT `+albumColumns+` FROM albums WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return album, nil
}

// ListAlbums retrieves albums ordered by title, with the total count.
func (r *AlbumRepository) ListAlbums(ctx context.Context, limit, offset int) ([]models.Album, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM albums`); err != nil {
		return nil, 0, err
	}

	albums := make([]models.Album, 0)
	err := r.db.SelectContext(ctx, &albums,
		`SELECT `+albumColumns+` FROM albums ORDER BY title LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return albums, total, nil
}

// InsertAlbumTx inserts an album inside an open save transaction and fills in
// the database-generated id so the audit entry built afterward can carry it.
func (r *AlbumRepository) InsertAlbumTx(ctx context.Context, tx *sqlx.Tx, a *models.Album) error {
	return tx.QueryRowContext(ctx, `
		INSERT INTO albums (title, composer, tags, release_year, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		a.Title, a.Composer, a.Tags, a.ReleaseYear, a.CreatedAt, a.CreatedBy).Scan(&a.ID)
}

// UpdateAlbumTx updates an album inside an open save transaction.
func (r *AlbumRepository) UpdateAlbumTx(ctx context.Context, tx *sqlx.Tx, a *models.Album) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE albums SET title = $2, composer = $3, tags = $4, release_year = $5, updated_at = $6, updated_by = $7
		WHERE id = $1`,
		a.ID, a.Title, a.Composer, a.Tags, a.ReleaseYear, a.UpdatedAt, a.UpdatedBy)
	return err
}

// DeleteAlbumTx removes an album inside an open save transaction.
func (r *AlbumRepository) DeleteAlbumTx(ctx context.Context, tx *sqlx.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM albums WHERE id = $1`, id)
	return err
}
