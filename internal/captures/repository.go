package captures

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/mathlens/pkg/pagination"
	"github.com/JaimeStill/mathlens/pkg/query"
	"github.com/JaimeStill/mathlens/pkg/repository"
	"github.com/JaimeStill/mathlens/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a capture history repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "captures"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Capture], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Expression")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count captures: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanCapture)
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Capture, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanCapture)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

// Image streams the archived source photo for a capture. The caller must
// close the reader.
func (r *repo) Image(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	c, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.StorageKey == nil {
		return nil, ErrNoImage
	}

	body, err := r.storage.Download(ctx, *c.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("download capture image %s: %w", id, err)
	}

	return body, nil
}

// Record archives the source photo (when present) and inserts the capture
// row. A failed insert deletes the just-uploaded blob so storage never holds
// orphans.
func (r *repo) Record(ctx context.Context, cmd RecordCommand) (*Capture, error) {
	if cmd.ID == uuid.Nil {
		cmd.ID = uuid.New()
	}

	var storageKey *string
	if len(cmd.Image) > 0 {
		key := imageKey(cmd.ID)
		if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Image), "image/png"); err != nil {
			return nil, fmt.Errorf("archive capture image: %w", err)
		}
		storageKey = &key
	}

	insertQ := `
		INSERT INTO captures(
			id, expression, confidence, value, source,
			retry_count, duration_ms, storage_key
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, expression, confidence, value, source,
				  retry_count, duration_ms, storage_key, captured_at`

	insertArgs := []any{
		cmd.ID,
		cmd.Expression,
		cmd.Confidence,
		cmd.Value,
		cmd.Source,
		cmd.RetryCount,
		cmd.Duration.Milliseconds(),
		storageKey,
	}

	c, err := repository.QueryOne(ctx, r.db, insertQ, insertArgs, scanCapture)
	if err != nil {
		if storageKey != nil {
			if delErr := r.storage.Delete(ctx, *storageKey); delErr != nil {
				r.logger.Warn("orphaned capture image cleanup failed", "key", *storageKey, "error", delErr)
			}
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("capture recorded",
		"id", c.ID,
		"expression", c.Expression,
		"source", c.Source,
	)
	return &c, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM captures WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if c.StorageKey != nil {
		if err := r.storage.Delete(ctx, *c.StorageKey); err != nil {
			r.logger.Warn("capture image cleanup failed", "key", *c.StorageKey, "error", err)
		}
	}

	r.logger.Info("capture deleted", "id", id)
	return nil
}

// Clear removes every capture row and best-effort deletes their archived
// images. Returns the number of rows removed.
func (r *repo) Clear(ctx context.Context) (int, error) {
	keys, err := repository.QueryMany(ctx, r.db,
		"SELECT storage_key FROM captures WHERE storage_key IS NOT NULL", nil,
		func(s repository.Scanner) (string, error) {
			var key string
			err := s.Scan(&key)
			return key, err
		})
	if err != nil {
		return 0, fmt.Errorf("query capture image keys: %w", err)
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM captures")
	if err != nil {
		return 0, fmt.Errorf("clear captures: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear captures: %w", err)
	}

	for _, key := range keys {
		if err := r.storage.Delete(ctx, key); err != nil {
			r.logger.Warn("capture image cleanup failed", "key", key, "error", err)
		}
	}

	r.logger.Info("capture history cleared", "removed", removed)
	return int(removed), nil
}

func imageKey(id uuid.UUID) string {
	return fmt.Sprintf("captures/%s.png", id)
}
