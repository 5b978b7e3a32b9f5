package repository_test

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/mathlens/pkg/repository"
)

var (
	errCaptureNotFound = errors.New("capture not found")
	errDuplicateKey    = errors.New("capture image key already exists")
)

func TestMapError(t *testing.T) {
	driverErr := errors.New("connection reset")
	fkErr := &pgconn.PgError{Code: "23503"}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil passes through", nil, nil},
		{"no rows maps to not found", sql.ErrNoRows, errCaptureNotFound},
		{"unique violation maps to duplicate", &pgconn.PgError{Code: "23505"}, errDuplicateKey},
		{"driver error passes through", driverErr, driverErr},
		{"other pg error passes through", fkErr, fkErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repository.MapError(tt.err, errCaptureNotFound, errDuplicateKey)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("MapError = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("MapError = %v, want %v", got, tt.want)
			}
		})
	}
}
