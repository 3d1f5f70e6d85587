package member

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ebasak22/Fitness/internal/docstore"
	"github.com/ebasak22/Fitness/internal/domain"
)

var pincodePattern = regexp.MustCompile(`^\d{6}$`)

// Address is one saved shipping address. The book lives in its own document
// keyed by phone so address edits never touch the member document.
type Address struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Locality  string `json:"locality"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	CreatedAt string `json:"createdAt"`
}

// AddressForm is the shipping-address form.
type AddressForm struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Locality string `json:"locality"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
}

type addressBook struct {
	Addresses []Address `json:"addresses"`
}

func addressKey(phone string) string { return "addresses/" + phone }

// AddAddress validates the form and appends it to the member's address book.
func (s *Service) AddAddress(ctx context.Context, sess domain.Session, form AddressForm) (Address, error) {
	ctx, span := s.tracer.Start(ctx, "Service.AddAddress")
	defer span.End()

	for field, value := range map[string]string{
		"name":     form.Name,
		"address":  form.Address,
		"locality": form.Locality,
		"city":     form.City,
		"state":    form.State,
	} {
		if strings.TrimSpace(value) == "" {
			return Address{}, &ValidationError{Field: field, Message: "please fill all fields"}
		}
	}
	if !pincodePattern.MatchString(form.Pincode) {
		return Address{}, &ValidationError{Field: "pincode", Message: "please enter a valid 6-digit pincode"}
	}
	addrType := strings.ToLower(strings.TrimSpace(form.Type))
	if addrType == "" {
		addrType = "home"
	}

	book, err := s.addressBook(ctx, sess.Phone)
	if err != nil {
		span.RecordError(err)
		return Address{}, err
	}

	entry := Address{
		ID:        fmt.Sprintf("addr-%d", s.node.Generate().Int64()),
		Type:      addrType,
		Name:      strings.TrimSpace(form.Name),
		Address:   strings.TrimSpace(form.Address),
		Locality:  strings.TrimSpace(form.Locality),
		City:      strings.TrimSpace(form.City),
		State:     strings.TrimSpace(form.State),
		Pincode:   form.Pincode,
		CreatedAt: s.clock().UTC().Format(time.RFC3339),
	}
	book.Addresses = append(book.Addresses, entry)

	if err := s.saveAddressBook(ctx, sess.Phone, book); err != nil {
		span.RecordError(err)
		return Address{}, err
	}
	s.logger.Info("address added", zap.String("phone", sess.Phone), zap.String("type", entry.Type))
	return entry, nil
}

// Addresses lists the member's saved addresses, oldest first.
func (s *Service) Addresses(ctx context.Context, sess domain.Session) ([]Address, error) {
	book, err := s.addressBook(ctx, sess.Phone)
	if err != nil {
		return nil, err
	}
	return book.Addresses, nil
}

// DeleteAddress removes one address by ID. Unknown IDs report
// docstore.ErrNotFound so the caller can distinguish them from store failures.
func (s *Service) DeleteAddress(ctx context.Context, sess domain.Session, addressID string) error {
	ctx, span := s.tracer.Start(ctx, "Service.DeleteAddress")
	defer span.End()

	book, err := s.addressBook(ctx, sess.Phone)
	if err != nil {
		span.RecordError(err)
		return err
	}

	kept := book.Addresses[:0]
	found := false
	for _, addr := range book.Addresses {
		if addr.ID == addressID {
			found = true
			continue
		}
		kept = append(kept, addr)
	}
	if !found {
		return docstore.ErrNotFound
	}
	book.Addresses = kept

	if err := s.saveAddressBook(ctx, sess.Phone, book); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Info("address deleted", zap.String("phone", sess.Phone), zap.String("address_id", addressID))
	return nil
}

func (s *Service) addressBook(ctx context.Context, phone string) (addressBook, error) {
	raw, err := s.docs.Get(ctx, addressKey(phone))
	if err != nil {
		if err == docstore.ErrNotFound {
			return addressBook{}, nil
		}
		return addressBook{}, fmt.Errorf("load address book: %w", err)
	}
	var book addressBook
	if err := json.Unmarshal(raw, &book); err != nil {
		return addressBook{}, fmt.Errorf("decode address book: %w", err)
	}
	return book, nil
}

func (s *Service) saveAddressBook(ctx context.Context, phone string, book addressBook) error {
	if err := s.docs.Set(ctx, addressKey(phone), map[string]any{"addresses": book.Addresses}, false); err != nil {
		return fmt.Errorf("save address book: %w", err)
	}
	return nil
}
