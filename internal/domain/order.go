package domain

import (
	"time"

	"github.com/google/uuid"
)

// Order represents a customer's booking of a chef's service for a
// specific date and time slot. ServiceName and Price are denormalized
// copies captured at booking time: the price is frozen at creation and
// never recomputed from the live Service.
type Order struct {
	ID             string
	CustomerID     string
	ChefID         string
	ServiceID      string
	ServiceName    string
	Price          float64
	ScheduledDate  time.Time // midnight of the booked day
	TimeSlot       string    // "15:04"
	DurationHours  int
	FoodPreference string
	Phone          string
	Address        string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BookingRequest carries the raw booking fields submitted by a customer.
type BookingRequest struct {
	CustomerID     string
	ChefID         string
	ServiceID      string
	ScheduledDate  string // "2006-01-02"
	TimeSlot       string // "15:04"
	DurationHours  int
	FoodPreference string
	Phone          string
	Address        string
}

// NewOrder validates the request and creates a pending order with the
// service name and price frozen from the live service record.
func NewOrder(req BookingRequest, svc *Service, now time.Time) (*Order, error) {
	date, err := req.Validate(now)
	if err != nil {
		return nil, err
	}

	return &Order{
		ID:             uuid.New().String(),
		CustomerID:     req.CustomerID,
		ChefID:         req.ChefID,
		ServiceID:      svc.ID,
		ServiceName:    svc.Name,
		Price:          svc.Price,
		ScheduledDate:  date,
		TimeSlot:       req.TimeSlot,
		DurationHours:  req.DurationHours,
		FoodPreference: req.FoodPreference,
		Phone:          req.Phone,
		Address:        req.Address,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Validate checks fields in submission order and reports the first
// missing or malformed one. Returns the parsed scheduled date.
func (req BookingRequest) Validate(now time.Time) (time.Time, error) {
	if req.CustomerID == "" {
		return time.Time{}, &ValidationError{Field: "customer_id", Message: "customer id is required"}
	}
	if req.ChefID == "" {
		return time.Time{}, &ValidationError{Field: "chef_id", Message: "chef id is required"}
	}
	if req.ServiceID == "" {
		return time.Time{}, &ValidationError{Field: "service_id", Message: "service id is required"}
	}

	if req.ScheduledDate == "" {
		return time.Time{}, &ValidationError{Field: "scheduled_date", Message: "scheduled date is required"}
	}
	date, err := time.Parse("2006-01-02", req.ScheduledDate)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "scheduled_date", Message: "scheduled date must be in YYYY-MM-DD format"}
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return time.Time{}, &ValidationError{Field: "scheduled_date", Message: "scheduled date must not be in the past"}
	}

	if req.TimeSlot == "" {
		return time.Time{}, &ValidationError{Field: "time_slot", Message: "time slot is required"}
	}
	if _, err := time.Parse("15:04", req.TimeSlot); err != nil {
		return time.Time{}, &ValidationError{Field: "time_slot", Message: "time slot must be in HH:MM format"}
	}

	if req.DurationHours < 1 {
		return time.Time{}, &ValidationError{Field: "duration_hours", Message: "duration must be at least 1 hour"}
	}
	if req.Phone == "" {
		return time.Time{}, &ValidationError{Field: "phone", Message: "contact phone is required"}
	}
	if req.Address == "" {
		return time.Time{}, &ValidationError{Field: "address", Message: "address is required"}
	}

	return date, nil
}

// TransitionTo moves the order to a new status per the lifecycle table,
// stamping UpdatedAt with the caller's clock.
func (o *Order) TransitionTo(newStatus Status, now time.Time) error {
	if !o.CanTransitionTo(newStatus) {
		return &InvalidTransitionError{From: o.Status, To: newStatus}
	}

	o.Status = newStatus
	o.UpdatedAt = now
	return nil
}

// CanTransitionTo checks if the order can transition to the new status.
// Pending is only ever the initial state; completed and cancelled are
// terminal.
func (o *Order) CanTransitionTo(newStatus Status) bool {
	validTransitions := map[Status][]Status{
		StatusPending:   {StatusAccepted, StatusCancelled},
		StatusAccepted:  {StatusCompleted, StatusCancelled},
		StatusCompleted: {},
		StatusCancelled: {},
	}

	for _, s := range validTransitions[o.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

// ScheduledStart returns the booked date combined with the time slot.
func (o *Order) ScheduledStart() time.Time {
	slot, err := time.Parse("15:04", o.TimeSlot)
	if err != nil {
		return o.ScheduledDate
	}
	return o.ScheduledDate.Add(
		time.Duration(slot.Hour())*time.Hour + time.Duration(slot.Minute())*time.Minute)
}

// ScheduledEnd returns the moment the booked service is over.
func (o *Order) ScheduledEnd() time.Time {
	return o.ScheduledStart().Add(time.Duration(o.DurationHours) * time.Hour)
}

// DueForCompletion reports whether an accepted order's scheduled slot
// is strictly in the past and should be auto-completed by the sweeper.
func (o *Order) DueForCompletion(now time.Time) bool {
	return o.Status == StatusAccepted && o.ScheduledEnd().Before(now)
}

// Elapsed reports whether the booked day is fully over.
func (o *Order) Elapsed(now time.Time) bool {
	return !o.ScheduledDate.AddDate(0, 0, 1).After(now)
}
