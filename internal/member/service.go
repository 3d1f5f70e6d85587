// Package member implements the write-side flows of the member document:
// profile completion, goal setting, workout tracking, and membership
// purchases. Every mutation is a merge write to the document store; the
// resulting change notification is what refreshes any live profile sync.
package member

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ebasak22/Fitness/internal/docstore"
	"github.com/ebasak22/Fitness/internal/domain"
	"github.com/ebasak22/Fitness/internal/payment"
	"github.com/ebasak22/Fitness/internal/profile"
)

// ValidationError reports a rejected form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Service owns member document writes.
type Service struct {
	docs    docstore.Store
	gateway payment.Gateway
	node    *snowflake.Node
	logger  *zap.Logger
	tracer  trace.Tracer
	clock   func() time.Time
}

// NewService wires dependencies.
func NewService(docs docstore.Store, gateway payment.Gateway, node *snowflake.Node, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.L()
	}
	return &Service{
		docs:    docs,
		gateway: gateway,
		node:    node,
		logger:  logger,
		tracer:  otel.Tracer("github.com/ebasak22/Fitness/internal/member"),
		clock:   time.Now,
	}
}

// ProfileForm is the onboarding form.
type ProfileForm struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Age      int    `json:"age"`
	Sex      string `json:"sex"`
	Location string `json:"location"`
}

// CompleteProfile validates the onboarding form and merge-writes it into the
// member document created during OTP verification.
func (s *Service) CompleteProfile(ctx context.Context, sess domain.Session, form ProfileForm) error {
	ctx, span := s.tracer.Start(ctx, "Service.CompleteProfile")
	defer span.End()

	if strings.TrimSpace(form.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if !emailPattern.MatchString(form.Email) {
		return &ValidationError{Field: "email", Message: "please enter a valid email address"}
	}
	if form.Age < 12 || form.Age > 100 {
		return &ValidationError{Field: "age", Message: "age must be between 12 and 100"}
	}
	if strings.TrimSpace(form.Sex) == "" {
		return &ValidationError{Field: "sex", Message: "sex is required"}
	}
	if strings.TrimSpace(form.Location) == "" {
		return &ValidationError{Field: "location", Message: "location is required"}
	}

	now := s.clock().UTC()
	fields := map[string]any{
		"name":        strings.TrimSpace(form.Name),
		"email":       strings.ToLower(strings.TrimSpace(form.Email)),
		"age":         form.Age,
		"sex":         form.Sex,
		"location":    strings.TrimSpace(form.Location),
		"phoneNumber": sess.Phone,
		"uid":         sess.UID,
		"isMember":    false,
		"updatedAt":   now,
	}
	if err := s.docs.Set(ctx, sess.Phone, fields, true); err != nil {
		span.RecordError(err)
		return fmt.Errorf("save profile: %w", err)
	}
	s.logger.Info("profile completed", zap.String("phone", sess.Phone))
	return nil
}

// GoalForm is the goal-setting form. Height and weight arrive as the form's
// free-text strings.
type GoalForm struct {
	Height     string            `json:"height"`
	Weight     string            `json:"weight"`
	Age        string            `json:"age"`
	BloodGroup string            `json:"bloodGroup"`
	TargetGoal domain.TargetGoal `json:"targetGoal"`
}

// SetGoals derives BMI and category from the submitted height/weight and
// writes the whole fitnessGoals object. The document is created when the
// update finds nothing to merge into, matching the goal screen's fallback.
func (s *Service) SetGoals(ctx context.Context, sess domain.Session, form GoalForm) (domain.FitnessGoals, error) {
	ctx, span := s.tracer.Start(ctx, "Service.SetGoals")
	defer span.End()

	if !form.TargetGoal.Valid() {
		return domain.FitnessGoals{}, &ValidationError{Field: "targetGoal", Message: "please select a goal"}
	}
	bmi, category, err := profile.ComputeBMIFromStrings(form.Height, form.Weight)
	if err != nil {
		return domain.FitnessGoals{}, &ValidationError{Field: "height/weight", Message: "please enter valid height and weight"}
	}

	goals := domain.FitnessGoals{
		Height:     form.Height,
		Weight:     form.Weight,
		Age:        form.Age,
		BloodGroup: form.BloodGroup,
		BMI:        bmi,
		Category:   category,
		TargetGoal: form.TargetGoal,
		SetAt:      s.clock().UTC(),
	}

	fields := map[string]any{"fitnessGoals": goals}
	if err := s.docs.Update(ctx, sess.Phone, fields); err != nil {
		if err != docstore.ErrNotFound {
			span.RecordError(err)
			return domain.FitnessGoals{}, fmt.Errorf("save goals: %w", err)
		}
		if err := s.docs.Set(ctx, sess.Phone, fields, true); err != nil {
			span.RecordError(err)
			return domain.FitnessGoals{}, fmt.Errorf("save goals: %w", err)
		}
	}
	s.logger.Info("goals set", zap.String("phone", sess.Phone), zap.String("category", category))
	return goals, nil
}

// UpdateImage merge-writes the uploaded profile image URL.
func (s *Service) UpdateImage(ctx context.Context, sess domain.Session, imageURL string) error {
	ctx, span := s.tracer.Start(ctx, "Service.UpdateImage")
	defer span.End()

	if strings.TrimSpace(imageURL) == "" {
		return &ValidationError{Field: "image", Message: "image URL is required"}
	}

	fields := map[string]any{
		"profileImage": strings.TrimSpace(imageURL),
		"updatedAt":    s.clock().UTC(),
	}
	if err := s.docs.Update(ctx, sess.Phone, fields); err != nil {
		span.RecordError(err)
		return fmt.Errorf("save profile image: %w", err)
	}
	s.logger.Info("profile image updated", zap.String("phone", sess.Phone))
	return nil
}

// SaveWorkouts validates and writes the weekly workout plan, stamping the
// per-week summary and last-updated marker the tracker screen shows.
func (s *Service) SaveWorkouts(ctx context.Context, sess domain.Session, workouts map[domain.Weekday][]domain.ExerciseEntry) (string, error) {
	ctx, span := s.tracer.Start(ctx, "Service.SaveWorkouts")
	defer span.End()

	for day := range workouts {
		if !day.Valid() {
			return "", &ValidationError{Field: "day", Message: fmt.Sprintf("unknown day %q", day)}
		}
	}

	feedback := weeklyFeedback(workouts)
	fields := map[string]any{
		"weeklyWorkouts":      workouts,
		"lastWorkoutFeedback": feedback,
		"lastUpdated":         s.clock().UTC().Format(time.RFC3339),
	}
	if err := s.docs.Update(ctx, sess.Phone, fields); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("save workouts: %w", err)
	}
	s.logger.Info("workouts saved", zap.String("phone", sess.Phone))
	return feedback, nil
}

// Profile loads the current member document.
func (s *Service) Profile(ctx context.Context, sess domain.Session) (domain.UserProfile, error) {
	raw, err := s.docs.Get(ctx, sess.Phone)
	if err != nil {
		return domain.UserProfile{}, err
	}
	var p domain.UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.UserProfile{}, fmt.Errorf("decode member document: %w", err)
	}
	return p, nil
}

// weeklyFeedback summarises the plan: days with at least one named exercise
// and the exercise total across the week.
func weeklyFeedback(workouts map[domain.Weekday][]domain.ExerciseEntry) string {
	days := 0
	exercises := 0
	for _, entries := range workouts {
		active := 0
		for _, e := range entries {
			if strings.TrimSpace(e.Exercise) != "" {
				active++
			}
		}
		if active > 0 {
			days++
			exercises += active
		}
	}
	if days == 0 {
		return "No workouts planned yet. Add an exercise to get started."
	}
	return fmt.Sprintf("Great plan! %d exercises across %d training days this week.", exercises, days)
}
