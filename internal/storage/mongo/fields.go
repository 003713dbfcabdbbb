package mongo

import (
	"fmt"

	"github.com/christkv/copernicus/internal/domain"
)

// seatPath returns the dotted field path addressing one cell of a
// session's seat grid, validating the coordinates against the grid
// dimensions first. Building the path from a typed Seat keeps arbitrary
// strings out of update documents.
func seatPath(seat domain.Seat, rows, cols int) (string, error) {
	if seat.Row < 0 || seat.Row >= rows || seat.Col < 0 || seat.Col >= cols {
		return "", fmt.Errorf("seat %d/%d outside %dx%d grid: %w",
			seat.Row, seat.Col, rows, cols, domain.ErrInvalidSeat)
	}
	return fmt.Sprintf("seats.%d.%d", seat.Row, seat.Col), nil
}
