package member

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ebasak22/Fitness/internal/docstore"
	"github.com/ebasak22/Fitness/internal/domain"
)

// Product is one entry of the shop catalogue.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	ImageURL    string `json:"imageUrl,omitempty"`
	OnSale      bool   `json:"onSale,omitempty"`
}

// Sort orders accepted by Products.
const (
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
)

// CartItem references a product with its quantity.
type CartItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	AddedAt   string `json:"addedAt"`
}

// Cart is the member's shopping cart document.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Count returns the total quantity across items, the badge number on the
// shop tab.
func (c Cart) Count() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

const productsKey = "products"

func cartKey(phone string) string { return "carts/" + phone }

// Products lists the catalogue, filtered by category ("all" or empty keeps
// everything) and sorted by price when requested. An absent catalogue
// document is an empty shop, not an error.
func (s *Service) Products(ctx context.Context, category, sortBy string) ([]Product, error) {
	raw, err := s.docs.Get(ctx, productsKey)
	if err != nil {
		if err == docstore.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("load catalogue: %w", err)
	}

	var catalogue struct {
		Products []Product `json:"products"`
	}
	if err := json.Unmarshal(raw, &catalogue); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}

	filtered := catalogue.Products[:0]
	for _, p := range catalogue.Products {
		if category == "" || category == "all" || p.Category == category {
			filtered = append(filtered, p)
		}
	}

	switch sortBy {
	case SortPriceLow:
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Price < filtered[j].Price })
	case SortPriceHigh:
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Price > filtered[j].Price })
	}
	return filtered, nil
}

// AddToCart puts one unit of the product into the member's cart, creating the
// cart on first use and incrementing the quantity when the product is already
// in it.
func (s *Service) AddToCart(ctx context.Context, sess domain.Session, productID string) (Cart, error) {
	ctx, span := s.tracer.Start(ctx, "Service.AddToCart")
	defer span.End()

	if productID == "" {
		return Cart{}, &ValidationError{Field: "product", Message: "product is required"}
	}
	if err := s.productExists(ctx, productID); err != nil {
		return Cart{}, err
	}

	cart, err := s.Cart(ctx, sess)
	if err != nil {
		span.RecordError(err)
		return Cart{}, err
	}

	updated := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity++
			updated = true
			break
		}
	}
	if !updated {
		cart.Items = append(cart.Items, CartItem{
			ProductID: productID,
			Quantity:  1,
			AddedAt:   s.clock().UTC().Format(time.RFC3339),
		})
	}

	if err := s.docs.Set(ctx, cartKey(sess.Phone), map[string]any{"items": cart.Items}, false); err != nil {
		span.RecordError(err)
		return Cart{}, fmt.Errorf("save cart: %w", err)
	}
	s.logger.Info("cart updated",
		zap.String("phone", sess.Phone),
		zap.String("product", productID),
		zap.Int("count", cart.Count()))
	return cart, nil
}

// Cart loads the member's cart. No cart document yet means an empty cart.
func (s *Service) Cart(ctx context.Context, sess domain.Session) (Cart, error) {
	raw, err := s.docs.Get(ctx, cartKey(sess.Phone))
	if err != nil {
		if err == docstore.ErrNotFound {
			return Cart{}, nil
		}
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	var cart Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}

func (s *Service) productExists(ctx context.Context, productID string) error {
	products, err := s.Products(ctx, "", "")
	if err != nil {
		return err
	}
	for _, p := range products {
		if p.ID == productID {
			return nil
		}
	}
	return &ValidationError{Field: "product", Message: fmt.Sprintf("unknown product %q", productID)}
}
