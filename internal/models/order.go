package models

import "strconv"

const (
	OrderPending  = "pending"
	OrderPaid     = "paid"
	OrderShipped  = "shipped"
	OrderCanceled = "canceled"
)

type Customer struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Note     string `json:"note,omitempty"`
}

// LineItem is a copy of the product fields taken when the order was placed.
type LineItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Image    string `json:"image,omitempty"`
}

type Order struct {
	ID        int64      `json:"id"`
	CreatedAt Timestamp  `json:"createdAt"`
	Status    string     `json:"status"`
	Total     int64      `json:"total"`
	Customer  Customer   `json:"customer"`
	Items     []LineItem `json:"items"`
	DocID     string     `json:"firestoreId,omitempty"`
}

func (o Order) Key() string { return strconv.FormatInt(o.ID, 10) }

func ValidOrderStatus(s string) bool {
	switch s {
	case OrderPending, OrderPaid, OrderShipped, OrderCanceled:
		return true
	}
	return false
}

func SnapshotItem(p Product, quantity int) LineItem {
	return LineItem{ID: p.ID, Name: p.Name, Price: p.Price, Quantity: quantity, Image: p.Image}
}

func OrderTotal(items []LineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Price * int64(it.Quantity)
	}
	return total
}
