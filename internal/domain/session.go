package domain

import "time"

// Seat addresses one seat in a session's occupancy map.
type Seat struct {
	Row int `bson:"row" json:"row"`
	Col int `bson:"col" json:"col"`
}

// SeatHold is a reservation of specific seats in a session.
type SeatHold struct {
	HolderID  string    `bson:"holder_id" json:"holder_id"`
	Seats     []Seat    `bson:"seats" json:"seats"`
	Price     int64     `bson:"price" json:"price"`
	Total     int64     `bson:"total" json:"total"`
	CreatedOn time.Time `bson:"created_on" json:"created_on"`
}

// Theater is the static seat plan sessions are created from.
type Theater struct {
	ID    string  `bson:"_id" json:"id"`
	Name  string  `bson:"name" json:"name"`
	Seats [][]int `bson:"seats" json:"seats"`
}

// SeatCount returns the number of seats in the plan.
func (t Theater) SeatCount() int {
	count := 0
	for _, row := range t.Seats {
		count += len(row)
	}
	return count
}

// Session is a screening with per-seat occupancy: 0 free, 1 held or sold.
type Session struct {
	ID             string     `bson:"_id" json:"id"`
	TheaterID      string     `bson:"theater_id" json:"theater_id"`
	Name           string     `bson:"name" json:"name"`
	Price          int64      `bson:"price" json:"price"`
	SeatsAvailable int64      `bson:"seats_available" json:"seats_available"`
	Seats          [][]int    `bson:"seats" json:"seats"`
	Holds          []SeatHold `bson:"holds" json:"holds"`
}

// HoldFor returns the holder's open seat hold, if any.
func (s Session) HoldFor(holderID string) (SeatHold, bool) {
	for _, h := range s.Holds {
		if h.HolderID == holderID {
			return h, true
		}
	}
	return SeatHold{}, false
}
