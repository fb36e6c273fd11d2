// Package purchase serves the coin product catalogue and credits verified purchases.
package purchase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jason-s-yu/automatch/internal/apperr"
	"github.com/jason-s-yu/automatch/internal/players"
	"github.com/jason-s-yu/automatch/internal/store"
	"github.com/sirupsen/logrus"
)

// Product is one entry of the catalogue stored as a JSON array under the products key.
type Product struct {
	ID    string `json:"id"`
	Coins int64  `json:"coins"`
	Title string `json:"title,omitempty"`
	Price string `json:"price,omitempty"`
}

// Verifier checks a store receipt for a product.
type Verifier interface {
	Verify(ctx context.Context, productID, receipt string) (bool, error)
}

type Service struct {
	store       *store.Store
	players     *players.Repo
	verifier    Verifier
	productsKey string
	logger      *logrus.Logger
}

func NewService(s *store.Store, repo *players.Repo, v Verifier, productsKey string, logger *logrus.Logger) *Service {
	return &Service{store: s, players: repo, verifier: v, productsKey: productsKey, logger: logger}
}

// Products reads the catalogue. A missing key is an empty catalogue.
func (s *Service) Products(ctx context.Context) ([]Product, error) {
	raw, ok, err := s.store.Get(ctx, s.productsKey)
	if err != nil {
		return nil, err
	}
	products := []Product{}
	if !ok {
		return products, nil
	}
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.productsKey, err)
	}
	return products, nil
}

// Redeem verifies receipt for productID and credits the product's coins to userID. It
// returns the product and the new balance.
func (s *Service) Redeem(ctx context.Context, userID, productID, receipt string) (Product, int64, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return Product{}, 0, err
	}
	var product *Product
	for i := range products {
		if products[i].ID == productID {
			product = &products[i]
			break
		}
	}
	if product == nil {
		return Product{}, 0, apperr.ErrUnknownProduct
	}

	valid, err := s.verifier.Verify(ctx, productID, receipt)
	if err != nil {
		return Product{}, 0, fmt.Errorf("verify receipt: %w", err)
	}
	if !valid {
		return Product{}, 0, apperr.ErrInvalidReceipt
	}

	balance, err := s.players.Credit(ctx, userID, product.Coins)
	if err != nil {
		return Product{}, 0, err
	}
	s.logger.WithFields(logrus.Fields{"user": userID, "product": productID, "coins": product.Coins}).Info("purchase: credited")
	return *product, balance, nil
}
