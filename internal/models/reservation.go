package models

import "strconv"

const TableCount = 6

const (
	ReservationActive   = "active"
	ReservationCanceled = "canceled"

	TableAvailable = "available"
	TableReserved  = "reserved"
)

// Pricing plans offered at the venue.
var TableTypes = map[string]string{
	"5hr":     "5 hours",
	"day":     "all day",
	"student": "student, hourly",
	"general": "general, hourly",
}

type Reservation struct {
	ID        int64     `json:"id"`
	TableID   int       `json:"tableId"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Players   string    `json:"players"`
	TableType string    `json:"tableType"`
	Status    string    `json:"status"`
	CreatedAt Timestamp `json:"createdAt"`
	DocID     string    `json:"firestoreId,omitempty"`
}

func (r Reservation) Key() string { return strconv.FormatInt(r.ID, 10) }

type Table struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
}

func InitialTables() []Table {
	tables := make([]Table, TableCount)
	for i := range tables {
		tables[i] = Table{ID: i + 1, Status: TableAvailable}
	}
	return tables
}
