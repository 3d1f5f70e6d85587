package member

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ebasak22/Fitness/internal/domain"
	"github.com/ebasak22/Fitness/internal/payment"
	"github.com/ebasak22/Fitness/internal/profile"
)

// MembershipStatus is the dashboard's membership card plus banner policy.
type MembershipStatus struct {
	Plan          string         `json:"plan"`
	Status        string         `json:"status"`
	StartDate     string         `json:"start_date,omitempty"`
	EndDate       string         `json:"end_date,omitempty"`
	DaysRemaining int            `json:"days_remaining"`
	Banner        profile.Banner `json:"banner"`
}

// Membership reports the member's plan state and expiry banner.
func (s *Service) Membership(ctx context.Context, sess domain.Session) (MembershipStatus, error) {
	p, err := s.Profile(ctx, sess)
	if err != nil {
		return MembershipStatus{}, err
	}

	status := MembershipStatus{
		Plan:      p.MembershipPlan,
		Status:    p.MembershipStatus,
		StartDate: p.MembershipStartDate,
		EndDate:   p.MembershipEndDate,
	}
	if status.Plan == "" {
		status.Plan = "No Plan"
		status.Banner = profile.BannerNone
		return status, nil
	}
	status.Banner, status.DaysRemaining = profile.MembershipBanner(p.MembershipEndDate, s.clock())
	return status, nil
}

// PurchasePlan runs the hosted checkout for a catalogue plan and, on
// success, activates the membership on the member document.
func (s *Service) PurchasePlan(ctx context.Context, sess domain.Session, planID string) (MembershipStatus, error) {
	ctx, span := s.tracer.Start(ctx, "Service.PurchasePlan")
	defer span.End()

	plan, ok := domain.PlanByID(planID)
	if !ok {
		return MembershipStatus{}, &ValidationError{Field: "plan", Message: fmt.Sprintf("unknown plan %q", planID)}
	}

	p, err := s.Profile(ctx, sess)
	if err != nil {
		return MembershipStatus{}, fmt.Errorf("load member: %w", err)
	}

	result, err := s.gateway.OpenCheckout(ctx, payment.CheckoutOptions{
		Description: fmt.Sprintf("%s membership (%d days)", plan.Name, plan.DurationDays),
		Currency:    plan.Currency,
		AmountPaise: plan.AmountPaise,
		Name:        "SparkFitness",
		Contact:     sess.Phone,
		Email:       p.Email,
	})
	if err != nil {
		span.RecordError(err)
		return MembershipStatus{}, err
	}

	now := s.clock().UTC()
	end := now.AddDate(0, 0, plan.DurationDays)
	fields := map[string]any{
		"isMember":            true,
		"membershipPlan":      plan.Name,
		"membershipStartDate": now.Format(time.RFC3339),
		"membershipEndDate":   end.Format(time.RFC3339),
		"membershipStatus":    "active",
		"lastPaymentId":       result.PaymentID,
	}
	if err := s.docs.Update(ctx, sess.Phone, fields); err != nil {
		span.RecordError(err)
		return MembershipStatus{}, fmt.Errorf("activate membership: %w", err)
	}

	s.logger.Info("membership activated",
		zap.String("phone", sess.Phone),
		zap.String("plan", plan.Name),
		zap.String("payment_id", result.PaymentID))

	banner, days := profile.MembershipBanner(end.Format(time.RFC3339), now)
	return MembershipStatus{
		Plan:          plan.Name,
		Status:        "active",
		StartDate:     now.Format(time.RFC3339),
		EndDate:       end.Format(time.RFC3339),
		DaysRemaining: days,
		Banner:        banner,
	}, nil
}

// Booking is a confirmed personal-training session.
type Booking struct {
	SessionID   string `json:"session_id"`
	TrainerID   string `json:"trainer_id"`
	TrainerName string `json:"trainer_name"`
	Slot        string `json:"slot"`
	PaymentID   string `json:"payment_id"`
	Status      string `json:"status"`
}

// BookSession charges for and records a personal-training session: a session
// document of its own plus a reference on the member document.
func (s *Service) BookSession(ctx context.Context, sess domain.Session, trainerID, slot string) (Booking, error) {
	ctx, span := s.tracer.Start(ctx, "Service.BookSession")
	defer span.End()

	trainer, ok := domain.TrainerByID(trainerID)
	if !ok {
		return Booking{}, &ValidationError{Field: "trainer", Message: fmt.Sprintf("unknown trainer %q", trainerID)}
	}
	if !slotAvailable(trainer, slot) {
		return Booking{}, &ValidationError{Field: "slot", Message: fmt.Sprintf("slot %q not offered by %s", slot, trainer.Name)}
	}

	p, err := s.Profile(ctx, sess)
	if err != nil {
		return Booking{}, fmt.Errorf("load member: %w", err)
	}

	result, err := s.gateway.OpenCheckout(ctx, payment.CheckoutOptions{
		Description: fmt.Sprintf("Personal Training Session with %s", trainer.Name),
		Currency:    "INR",
		AmountPaise: trainer.SessionPaise,
		Name:        "SparkFitness",
		Contact:     sess.Phone,
		Email:       p.Email,
	})
	if err != nil {
		span.RecordError(err)
		return Booking{}, err
	}

	booking := Booking{
		SessionID:   fmt.Sprintf("pt-%d", s.node.Generate().Int64()),
		TrainerID:   trainer.ID,
		TrainerName: trainer.Name,
		Slot:        slot,
		PaymentID:   result.PaymentID,
		Status:      "scheduled",
	}

	sessionFields := map[string]any{
		"userId":      sess.Phone,
		"trainerId":   trainer.ID,
		"trainerName": trainer.Name,
		"slot":        slot,
		"bookingDate": s.clock().UTC(),
		"status":      booking.Status,
		"paymentId":   booking.PaymentID,
		"amount":      trainer.SessionPaise,
	}
	if err := s.docs.Set(ctx, "ptSessions/"+booking.SessionID, sessionFields, false); err != nil {
		span.RecordError(err)
		return Booking{}, fmt.Errorf("record session: %w", err)
	}

	refs := append(p.PTSessions, booking.SessionID)
	if err := s.docs.Update(ctx, sess.Phone, map[string]any{"ptSessions": refs}); err != nil {
		span.RecordError(err)
		return Booking{}, fmt.Errorf("link session: %w", err)
	}

	s.logger.Info("pt session booked",
		zap.String("phone", sess.Phone),
		zap.String("trainer", trainer.Name),
		zap.String("slot", slot))
	return booking, nil
}

func slotAvailable(trainer domain.Trainer, slot string) bool {
	for _, s := range trainer.AvailableSlots {
		if s == slot {
			return true
		}
	}
	return false
}
