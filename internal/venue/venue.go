package venue

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/robertarktes/venue-seat-holds/internal/domain"
)

const maxSeatsPerRow = 1000

// Grid lays out rows*perRow seats numbered from 1. Front rows and low seat
// numbers score highest, and every seat gets a distinct quality as long as
// perRow stays below 1000.
func Grid(rows, perRow int) []domain.Seat {
	seats := make([]domain.Seat, 0, rows*perRow)
	for row := 1; row <= rows; row++ {
		for n := 1; n <= perRow; n++ {
			seats = append(seats, domain.Seat{
				Row:     row,
				Number:  n,
				Quality: (rows-row+1)*maxSeatsPerRow + (perRow - n + 1),
			})
		}
	}
	return seats
}

// LayoutSource loads a stored seat layout.
type LayoutSource interface {
	GetLayout(ctx context.Context, venueID string) ([]domain.Seat, error)
}

// Load returns the stored layout for venueID when a source is configured,
// otherwise a generated grid.
func Load(ctx context.Context, src LayoutSource, venueID string, rows, perRow int) ([]domain.Seat, error) {
	if src == nil || venueID == "" {
		if rows < 1 || perRow < 1 || perRow >= maxSeatsPerRow {
			return nil, errors.Wrapf(domain.ErrInvalidRequest, "invalid venue grid %dx%d", rows, perRow)
		}
		return Grid(rows, perRow), nil
	}

	seats, err := src.GetLayout(ctx, venueID)
	if err != nil {
		return nil, errors.Wrapf(err, "load layout for venue %s", venueID)
	}
	if len(seats) == 0 {
		return nil, errors.Wrapf(domain.ErrNotFound, "venue %s has no seats", venueID)
	}
	return seats, nil
}
