package mongo

import (
	"errors"
	"testing"

	"github.com/christkv/copernicus/internal/domain"
)

func TestSeatPath(t *testing.T) {
	t.Parallel()

	path, err := seatPath(domain.Seat{Row: 2, Col: 7}, 5, 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if path != "seats.2.7" {
		t.Fatalf("expected seats.2.7, got %s", path)
	}

	invalid := []domain.Seat{
		{Row: -1, Col: 0},
		{Row: 0, Col: -1},
		{Row: 5, Col: 0},
		{Row: 0, Col: 10},
	}
	for _, seat := range invalid {
		if _, err := seatPath(seat, 5, 10); !errors.Is(err, domain.ErrInvalidSeat) {
			t.Fatalf("expected ErrInvalidSeat for %+v, got %v", seat, err)
		}
	}
}
