package captures

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/JaimeStill/mathlens/pkg/pagination"
)

// System defines the public contract for capture history operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Capture], error)

	Find(ctx context.Context, id uuid.UUID) (*Capture, error)
	Image(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
	Record(ctx context.Context, cmd RecordCommand) (*Capture, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Clear(ctx context.Context) (int, error)
}
