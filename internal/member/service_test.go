package member_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ebasak22/Fitness/internal/docstore"
	"github.com/ebasak22/Fitness/internal/domain"
	"github.com/ebasak22/Fitness/internal/member"
	"github.com/ebasak22/Fitness/internal/payment"
	"github.com/ebasak22/Fitness/internal/profile"
)

type memoryDocs struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func newMemoryDocs() *memoryDocs {
	return &memoryDocs{docs: make(map[string][]byte)}
}

func (m *memoryDocs) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.docs[key]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return raw, nil
}

func (m *memoryDocs) Set(ctx context.Context, key string, fields map[string]any, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := fields
	if merge {
		if existing, ok := m.docs[key]; ok {
			merged := make(map[string]any)
			if err := json.Unmarshal(existing, &merged); err != nil {
				return err
			}
			for k, v := range fields {
				merged[k] = v
			}
			doc = merged
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.docs[key] = raw
	return nil
}

func (m *memoryDocs) Update(ctx context.Context, key string, fields map[string]any) error {
	m.mu.Lock()
	_, ok := m.docs[key]
	m.mu.Unlock()
	if !ok {
		return docstore.ErrNotFound
	}
	return m.Set(ctx, key, fields, true)
}

func (m *memoryDocs) Subscribe(ctx context.Context, key string, onChange docstore.ChangeFunc, onError docstore.ErrorFunc) (docstore.Unsubscribe, error) {
	return func() {}, nil
}

func (m *memoryDocs) profile(t *testing.T, key string) domain.UserProfile {
	t.Helper()
	raw, err := m.Get(context.Background(), key)
	require.NoError(t, err)
	var p domain.UserProfile
	require.NoError(t, json.Unmarshal(raw, &p))
	return p
}

type fakeGateway struct {
	mu       sync.Mutex
	calls    []payment.CheckoutOptions
	err      error
	payments int
}

func (f *fakeGateway) OpenCheckout(ctx context.Context, opts payment.CheckoutOptions) (payment.CheckoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return payment.CheckoutResult{}, f.err
	}
	f.payments++
	return payment.CheckoutResult{PaymentID: "pay_test_1"}, nil
}

var memberSession = domain.Session{Phone: "+919876543210", UID: "uid-1"}

func newTestService(t *testing.T, docs docstore.Store, gateway payment.Gateway) *member.Service {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	return member.NewService(docs, gateway, node, zap.NewNop())
}

func seedDoc(t *testing.T, docs *memoryDocs, fields map[string]any) {
	t.Helper()
	require.NoError(t, docs.Set(context.Background(), memberSession.Phone, fields, false))
}

func TestCompleteProfileValidation(t *testing.T) {
	docs := newMemoryDocs()
	svc := newTestService(t, docs, &fakeGateway{})

	valid := member.ProfileForm{Name: "Asha Rao", Email: "asha@example.com", Age: 28, Sex: "female", Location: "Bengaluru"}

	cases := []struct {
		name   string
		mutate func(*member.ProfileForm)
		field  string
	}{
		{name: "missing name", mutate: func(f *member.ProfileForm) { f.Name = "  " }, field: "name"},
		{name: "bad email", mutate: func(f *member.ProfileForm) { f.Email = "not-an-email" }, field: "email"},
		{name: "too young", mutate: func(f *member.ProfileForm) { f.Age = 11 }, field: "age"},
		{name: "too old", mutate: func(f *member.ProfileForm) { f.Age = 101 }, field: "age"},
		{name: "missing sex", mutate: func(f *member.ProfileForm) { f.Sex = "" }, field: "sex"},
		{name: "missing location", mutate: func(f *member.ProfileForm) { f.Location = "" }, field: "location"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			form := valid
			tc.mutate(&form)
			err := svc.CompleteProfile(context.Background(), memberSession, form)
			var validation *member.ValidationError
			require.ErrorAs(t, err, &validation)
			require.Equal(t, tc.field, validation.Field)
		})
	}
}

func TestCompleteProfileMergesIntoDocument(t *testing.T) {
	docs := newMemoryDocs()
	seedDoc(t, docs, map[string]any{"phoneNumber": memberSession.Phone, "uid": "uid-1"})
	svc := newTestService(t, docs, &fakeGateway{})

	form := member.ProfileForm{Name: " Asha Rao ", Email: "Asha@Example.COM", Age: 28, Sex: "female", Location: "Bengaluru"}
	require.NoError(t, svc.CompleteProfile(context.Background(), memberSession, form))

	p := docs.profile(t, memberSession.Phone)
	require.Equal(t, "Asha Rao", p.Name)
	require.Equal(t, "asha@example.com", p.Email)
	require.Equal(t, memberSession.Phone, p.PhoneNumber, "merge must keep the document key fields")
	require.False(t, p.IsMember, "completing the profile never grants membership")
	require.True(t, p.ProfileComplete())
}

func TestSetGoalsDerivesBMIAndCategoryTogether(t *testing.T) {
	docs := newMemoryDocs()
	seedDoc(t, docs, map[string]any{"phoneNumber": memberSession.Phone, "name": "Asha"})
	svc := newTestService(t, docs, &fakeGateway{})

	goals, err := svc.SetGoals(context.Background(), memberSession, member.GoalForm{
		Height:     "170",
		Weight:     "55.5",
		TargetGoal: domain.GoalFitness,
	})
	require.NoError(t, err)
	require.Equal(t, "19.2", goals.BMI)
	require.Equal(t, profile.CategoryNormal, goals.Category)

	p := docs.profile(t, memberSession.Phone)
	require.NotNil(t, p.FitnessGoals)
	require.Equal(t, goals.BMI, p.FitnessGoals.BMI)
	require.Equal(t, goals.Category, p.FitnessGoals.Category)
}

func TestSetGoalsRejectsBadInput(t *testing.T) {
	svc := newTestService(t, newMemoryDocs(), &fakeGateway{})

	_, err := svc.SetGoals(context.Background(), memberSession, member.GoalForm{Height: "170", Weight: "60", TargetGoal: "get_swole"})
	var validation *member.ValidationError
	require.ErrorAs(t, err, &validation)

	_, err = svc.SetGoals(context.Background(), memberSession, member.GoalForm{Height: "tall", Weight: "60", TargetGoal: domain.GoalFitness})
	require.ErrorAs(t, err, &validation)
}

func TestSetGoalsCreatesDocumentWhenMissing(t *testing.T) {
	docs := newMemoryDocs()
	svc := newTestService(t, docs, &fakeGateway{})

	_, err := svc.SetGoals(context.Background(), memberSession, member.GoalForm{
		Height:     "180",
		Weight:     "75",
		TargetGoal: domain.GoalMuscleGain,
	})
	require.NoError(t, err)

	p := docs.profile(t, memberSession.Phone)
	require.NotNil(t, p.FitnessGoals)
	require.Equal(t, domain.GoalMuscleGain, p.FitnessGoals.TargetGoal)
}

func TestUpdateImage(t *testing.T) {
	docs := newMemoryDocs()
	seedDoc(t, docs, map[string]any{"phoneNumber": memberSession.Phone, "name": "Asha"})
	svc := newTestService(t, docs, &fakeGateway{})

	require.NoError(t, svc.UpdateImage(context.Background(), memberSession, " https://cdn.example.com/asha.jpg "))

	p := docs.profile(t, memberSession.Phone)
	require.Equal(t, "https://cdn.example.com/asha.jpg", p.ProfileImage)
	require.Equal(t, "Asha", p.Name, "merge write must not clobber the document")
}

func TestUpdateImageRejectsEmptyURL(t *testing.T) {
	svc := newTestService(t, newMemoryDocs(), &fakeGateway{})

	err := svc.UpdateImage(context.Background(), memberSession, "  ")
	var validation *member.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "image", validation.Field)
}

func TestSaveWorkouts(t *testing.T) {
	docs := newMemoryDocs()
	seedDoc(t, docs, map[string]any{"phoneNumber": memberSession.Phone, "name": "Asha"})
	svc := newTestService(t, docs, &fakeGateway{})

	plan := map[domain.Weekday][]domain.ExerciseEntry{
		domain.Monday: {
			{Exercise: "Squat", Sets: "5", Duration: "", Rest: "90s"},
			{Exercise: "Bench Press", Sets: "5"},
		},
		domain.Thursday: {
			{Exercise: "Deadlift", Sets: "3"},
			{Exercise: "", Sets: "3"},
		},
		domain.Sunday: {},
	}

	feedback, err := svc.SaveWorkouts(context.Background(), memberSession, plan)
	require.NoError(t, err)
	require.Contains(t, feedback, "3 exercises")
	require.Contains(t, feedback, "2 training days")

	p := docs.profile(t, memberSession.Phone)
	require.Len(t, p.WeeklyWorkouts[domain.Monday], 2)
	require.Equal(t, feedback, p.LastWorkoutFeedback)
	require.NotEmpty(t, p.LastUpdated)
}

func TestSaveWorkoutsRejectsUnknownDay(t *testing.T) {
	svc := newTestService(t, newMemoryDocs(), &fakeGateway{})

	_, err := svc.SaveWorkouts(context.Background(), memberSession, map[domain.Weekday][]domain.ExerciseEntry{
		"Funday": {{Exercise: "Squat"}},
	})
	var validation *member.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "day", validation.Field)
}

func TestSaveWorkoutsEmptyPlanFeedback(t *testing.T) {
	docs := newMemoryDocs()
	seedDoc(t, docs, map[string]any{"phoneNumber": memberSession.Phone})
	svc := newTestService(t, docs, &fakeGateway{})

	feedback, err := svc.SaveWorkouts(context.Background(), memberSession, map[domain.Weekday][]domain.ExerciseEntry{
		domain.Monday: {{Exercise: "  "}},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(feedback, "No workouts planned"))
}

func TestPurchasePlanActivatesMembership(t *testing.T) {
	docs := newMemoryDocs()
	seedDoc(t, docs, map[string]any{"phoneNumber": memberSession.Phone, "name": "Asha", "email": "asha@example.com"})
	gateway := &fakeGateway{}
	svc := newTestService(t, docs, gateway)

	status, err := svc.PurchasePlan(context.Background(), memberSession, "standard")
	require.NoError(t, err)
	require.Equal(t, "Standard", status.Plan)
	require.Equal(t, "active", status.Status)
	require.Equal(t, profile.BannerNone, status.Banner)

	require.Len(t, gateway.calls, 1)
	require.Equal(t, int64(249900), gateway.calls[0].AmountPaise)
	require.Equal(t, "INR", gateway.calls[0].Currency)
	require.Equal(t, memberSession.Phone, gateway.calls[0].Contact)

	p := docs.profile(t, memberSession.Phone)
	require.True(t, p.IsMember)
	require.Equal(t, "Standard", p.MembershipPlan)
	require.Equal(t, "active", p.MembershipStatus)

	start, err := time.Parse(time.RFC3339, p.MembershipStartDate)
	require.NoError(t, err)
	end, err := time.Parse(time.RFC3339, p.MembershipEndDate)
	require.NoError(t, err)
	require.Equal(t, 90*24*time.Hour, end.Sub(start))
}

func TestPurchasePlanUnknownPlan(t *testing.T) {
	gateway := &fakeGateway{}
	svc := newTestService(t, newMemoryDocs(), gateway)

	_, err := svc.PurchasePlan(context.Background(), memberSession, "platinum")
	var validation *member.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Empty(t, gateway.calls, "no checkout for an unknown plan")
}

func TestPurchasePlanCancelledCheckout(t *testing.T) {
	docs := newMemoryDocs()
	seedDoc(t, docs, map[string]any{"phoneNumber": memberSession.Phone, "name": "Asha"})
	gateway := &fakeGateway{err: payment.ErrCancelled}
	svc := newTestService(t, docs, gateway)

	_, err := svc.PurchasePlan(context.Background(), memberSession, "basic")
	require.ErrorIs(t, err, payment.ErrCancelled)

	p := docs.profile(t, memberSession.Phone)
	require.False(t, p.IsMember, "a cancelled checkout must not activate membership")
}

func TestMembershipStatusNoPlan(t *testing.T) {
	docs := newMemoryDocs()
	seedDoc(t, docs, map[string]any{"phoneNumber": memberSession.Phone, "name": "Asha"})
	svc := newTestService(t, docs, &fakeGateway{})

	status, err := svc.Membership(context.Background(), memberSession)
	require.NoError(t, err)
	require.Equal(t, "No Plan", status.Plan)
	require.Equal(t, profile.BannerNone, status.Banner)
}

func TestBookSession(t *testing.T) {
	docs := newMemoryDocs()
	seedDoc(t, docs, map[string]any{"phoneNumber": memberSession.Phone, "name": "Asha", "email": "asha@example.com"})
	gateway := &fakeGateway{}
	svc := newTestService(t, docs, gateway)

	booking, err := svc.BookSession(context.Background(), memberSession, "t1", "6:00 AM")
	require.NoError(t, err)
	require.Equal(t, "Mike Chen", booking.TrainerName)
	require.Equal(t, "scheduled", booking.Status)
	require.Equal(t, "pay_test_1", booking.PaymentID)

	p := docs.profile(t, memberSession.Phone)
	require.Equal(t, []string{booking.SessionID}, p.PTSessions)

	raw, err := docs.Get(context.Background(), "ptSessions/"+booking.SessionID)
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal(raw, &record))
	require.Equal(t, "t1", record["trainerId"])
	require.Equal(t, "6:00 AM", record["slot"])
}

func TestBookSessionRejectsBadTrainerOrSlot(t *testing.T) {
	docs := newMemoryDocs()
	seedDoc(t, docs, map[string]any{"phoneNumber": memberSession.Phone})
	gateway := &fakeGateway{}
	svc := newTestService(t, docs, gateway)

	var validation *member.ValidationError
	_, err := svc.BookSession(context.Background(), memberSession, "t9", "6:00 AM")
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "trainer", validation.Field)

	_, err = svc.BookSession(context.Background(), memberSession, "t1", "3:00 AM")
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "slot", validation.Field)

	require.Empty(t, gateway.calls)
}
