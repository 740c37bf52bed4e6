package domain

import "fmt"

// Seat is a single reservable seat. Seats are compared by value.
type Seat struct {
	Row     int `json:"row" bson:"row"`
	Number  int `json:"number" bson:"number"`
	Quality int `json:"quality" bson:"quality"`
}

func (s Seat) String() string {
	return fmt.Sprintf("R%d-S%d(q%d)", s.Row, s.Number, s.Quality)
}

// Compare ranks seats: higher quality first, then lower row, then lower
// seat number. It returns a negative value when a is the better seat.
func Compare(a, b Seat) int {
	switch {
	case a.Quality != b.Quality:
		return cmpInt(b.Quality, a.Quality)
	case a.Row != b.Row:
		return cmpInt(a.Row, b.Row)
	default:
		return cmpInt(a.Number, b.Number)
	}
}

// Less reports whether a ranks strictly ahead of b.
func Less(a, b Seat) bool {
	return Compare(a, b) < 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
