package domain

// MembershipPlan is a purchasable gym plan.
type MembershipPlan struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DurationDays int    `json:"duration_days"`
	AmountPaise  int64  `json:"amount_paise"`
	Currency     string `json:"currency"`
}

// MembershipPlans is the fixed plan catalogue offered on the membership
// screen. Amounts are in the currency's smallest unit, as the payment
// gateway expects.
func MembershipPlans() []MembershipPlan {
	return []MembershipPlan{
		{ID: "basic", Name: "Basic", DurationDays: 30, AmountPaise: 99900, Currency: "INR"},
		{ID: "standard", Name: "Standard", DurationDays: 90, AmountPaise: 249900, Currency: "INR"},
		{ID: "premium", Name: "Premium", DurationDays: 365, AmountPaise: 799900, Currency: "INR"},
	}
}

// PlanByID looks up a plan from the catalogue.
func PlanByID(id string) (MembershipPlan, bool) {
	for _, plan := range MembershipPlans() {
		if plan.ID == id {
			return plan, true
		}
	}
	return MembershipPlan{}, false
}

// Trainer is a personal trainer available for session booking.
type Trainer struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Speciality     string   `json:"speciality"`
	AvailableSlots []string `json:"available_slots"`
	SessionPaise   int64    `json:"session_paise"`
}

// Trainers returns the bookable trainer roster.
func Trainers() []Trainer {
	return []Trainer{
		{ID: "t1", Name: "Mike Chen", Speciality: "Strength & Conditioning", AvailableSlots: []string{"6:00 AM", "8:00 AM", "5:00 PM", "7:00 PM"}, SessionPaise: 50000},
		{ID: "t2", Name: "Sarah Williams", Speciality: "HIIT & Nutrition", AvailableSlots: []string{"7:00 AM", "9:00 AM", "4:00 PM", "6:00 PM"}, SessionPaise: 50000},
	}
}

// TrainerByID looks up a trainer from the roster.
func TrainerByID(id string) (Trainer, bool) {
	for _, t := range Trainers() {
		if t.ID == id {
			return t, true
		}
	}
	return Trainer{}, false
}
