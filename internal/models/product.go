package models

import "strconv"

const (
	ProductActive   = "active"
	ProductDraft    = "draft"
	ProductArchived = "archived"
)

type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	SKU         string `json:"sku"`
	Price       int64  `json:"price"`
	Stock       int    `json:"stock"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	IsPreOrder  bool   `json:"isPreOrder"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	DocID       string `json:"firestoreId,omitempty"`
}

func (p Product) Key() string { return strconv.FormatInt(p.ID, 10) }

func ValidProductStatus(s string) bool {
	switch s {
	case ProductActive, ProductDraft, ProductArchived:
		return true
	}
	return false
}
