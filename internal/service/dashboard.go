package service

import (
	"context"

	"github.com/mindlab/cardshop/internal/models"
	"github.com/mindlab/cardshop/internal/syncer"
)

type Summary struct {
	Users              int `json:"users"`
	Products           int `json:"products"`
	Orders             int `json:"orders"`
	ActiveReservations int `json:"activeReservations"`
}

type DashboardService struct {
	Users        *syncer.Synchronizer[models.User]
	Products     *syncer.Synchronizer[models.Product]
	Orders       *syncer.Synchronizer[models.Order]
	Reservations *syncer.Synchronizer[models.Reservation]
}

func (s *DashboardService) Summary(ctx context.Context) (Summary, error) {
	var sum Summary

	users, err := s.Users.List(ctx)
	if err != nil {
		return sum, err
	}
	products, err := s.Products.List(ctx)
	if err != nil {
		return sum, err
	}
	orders, err := s.Orders.List(ctx)
	if err != nil {
		return sum, err
	}
	reservations, err := s.Reservations.List(ctx)
	if err != nil {
		return sum, err
	}

	sum.Users = len(users)
	sum.Products = len(products)
	sum.Orders = len(orders)
	sum.ActiveReservations = len(activeOnly(reservations))
	return sum, nil
}
