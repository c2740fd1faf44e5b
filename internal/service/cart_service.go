package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ege-manyasli/manyasligida/internal/domain"
	"github.com/ege-manyasli/manyasligida/pkg/cartstore"
	"github.com/ege-manyasli/manyasligida/pkg/keylock"
	"github.com/sirupsen/logrus"
)

// CartStore is the per-visitor slot holding the serialized cart. Update must
// apply fn atomically with respect to other writers of the same slot, in this
// process or any other.
type CartStore interface {
	Load(ctx context.Context, visitor string) ([]byte, error)
	Update(ctx context.Context, visitor string, fn func(current []byte) ([]byte, error)) error
	Delete(ctx context.Context, visitor string) error
}

type CartSummary struct {
	Lines []domain.CartLine `json:"lines"`
	Count int               `json:"count"`
	Total domain.Money      `json:"total"`
}

// CartService mutates visitor carts. Every mutation is an atomic
// read-modify-write of the whole blob through the store. The lock stripe only
// queues writers within this process so they do not retry against each
// other; reads take no lock.
type CartService struct {
	store CartStore
	locks *keylock.Striped
	log   *logrus.Entry
}

func NewCartService(store CartStore, stripes int) *CartService {
	return &CartService{
		store: store,
		locks: keylock.New(stripes),
		log:   logrus.WithField("component", "cart"),
	}
}

// AddItem adds quantity of productID, merging into an existing line.
func (s *CartService) AddItem(ctx context.Context, visitor string, productID int64, quantity int, unitPrice domain.Money) (*CartSummary, error) {
	if quantity <= 0 || quantity > domain.MaxLineQuantity {
		return nil, ErrInvalidQuantity
	}
	if productID <= 0 || unitPrice < 0 || unitPrice > domain.MaxUnitPrice {
		return nil, ErrInvalidInput
	}

	return s.mutate(ctx, visitor, func(cart *domain.Cart) error {
		switch err := cart.Add(productID, quantity, unitPrice); {
		case errors.Is(err, domain.ErrQuantityLimit):
			return ErrInvalidQuantity
		case errors.Is(err, domain.ErrCartFull):
			return ErrCartFull
		default:
			return err
		}
	})
}

// UpdateQuantity sets the line quantity; zero or less removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, visitor string, productID int64, quantity int) (*CartSummary, error) {
	if quantity > domain.MaxLineQuantity {
		return nil, ErrInvalidQuantity
	}

	return s.mutate(ctx, visitor, func(cart *domain.Cart) error {
		if !cart.SetQuantity(productID, quantity) {
			return ErrItemNotFound
		}
		return nil
	})
}

// RemoveItem drops the line if present.
func (s *CartService) RemoveItem(ctx context.Context, visitor string, productID int64) (*CartSummary, error) {
	return s.mutate(ctx, visitor, func(cart *domain.Cart) error {
		cart.Remove(productID)
		return nil
	})
}

// Clear discards the visitor's cart.
func (s *CartService) Clear(ctx context.Context, visitor string) (*CartSummary, error) {
	if visitor == "" {
		return nil, ErrInvalidInput
	}

	err := s.locks.Do(visitor, func() error {
		return s.store.Delete(ctx, visitor)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return summarize(&domain.Cart{}), nil
}

// Get returns the current cart without locking.
func (s *CartService) Get(ctx context.Context, visitor string) (*CartSummary, error) {
	if visitor == "" {
		return summarize(&domain.Cart{}), nil
	}
	cart, err := s.load(ctx, visitor)
	if err != nil {
		return nil, err
	}
	return summarize(cart), nil
}

func (s *CartService) Count(ctx context.Context, visitor string) (int, error) {
	summary, err := s.Get(ctx, visitor)
	if err != nil {
		return 0, err
	}
	return summary.Count, nil
}

func (s *CartService) Total(ctx context.Context, visitor string) (domain.Money, error) {
	summary, err := s.Get(ctx, visitor)
	if err != nil {
		return 0, err
	}
	return summary.Total, nil
}

func (s *CartService) mutate(ctx context.Context, visitor string, fn func(*domain.Cart) error) (*CartSummary, error) {
	if visitor == "" {
		return nil, ErrInvalidInput
	}

	var (
		summary  *CartSummary
		rejected error
	)
	err := s.locks.Do(visitor, func() error {
		return s.store.Update(ctx, visitor, func(current []byte) ([]byte, error) {
			rejected = nil
			cart := s.decode(current)

			if err := fn(cart); err != nil {
				rejected = err
				return nil, err
			}

			summary = summarize(cart)
			if len(cart.Lines) == 0 {
				return nil, nil
			}
			return json.Marshal(cart)
		})
	})
	if rejected != nil {
		return nil, rejected
	}
	if err != nil {
		s.log.WithError(err).Error("failed to update cart")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return summary, nil
}

func (s *CartService) load(ctx context.Context, visitor string) (*domain.Cart, error) {
	blob, err := s.store.Load(ctx, visitor)
	if err != nil {
		if errors.Is(err, cartstore.ErrEmpty) {
			return &domain.Cart{}, nil
		}
		s.log.WithError(err).Error("failed to load cart")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return s.decode(blob), nil
}

// decode treats a missing or unreadable blob as an empty cart; a corrupt blob
// is replaced on the next write.
func (s *CartService) decode(blob []byte) *domain.Cart {
	var cart domain.Cart
	if blob == nil {
		return &cart
	}
	if err := json.Unmarshal(blob, &cart); err != nil {
		s.log.WithError(err).Warn("discarding corrupt cart blob")
		return &domain.Cart{}
	}
	return &cart
}

func summarize(cart *domain.Cart) *CartSummary {
	lines := cart.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return &CartSummary{
		Lines: lines,
		Count: cart.Count(),
		Total: cart.Total(),
	}
}
