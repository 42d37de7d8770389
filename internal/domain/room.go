package domain

import "github.com/shopspring/decimal"

type RoomType string

const (
	RoomSingle RoomType = "SINGLE"
	RoomDouble RoomType = "DOUBLE"
	RoomTriple RoomType = "TRIPLE"
	RoomSuite  RoomType = "SUITE"
)

// RoomTypes lists the known catalog types, in menu order.
func RoomTypes() []RoomType {
	return []RoomType{RoomSingle, RoomDouble, RoomTriple, RoomSuite}
}

type Room struct {
	ID            int64
	Number        int
	Type          RoomType
	PricePerNight decimal.Decimal
	Capacity      int
	Description   *string
	ImageURL      *string
}

// RoomPatch carries a partial room update; nil fields are left untouched.
type RoomPatch struct {
	Number        *int
	Type          *RoomType
	PricePerNight *decimal.Decimal
	Capacity      *int
	Description   *string
	ImageURL      *string
}
