package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Chef represents an identity-linked cooking profile with aggregate
// reputation counters. TotalOrders and CustomersServed are mutated only
// by the booking service and are never decremented.
type Chef struct {
	ID              string
	UserID          string
	DisplayName     string
	Bio             string
	Location        string
	ExperienceYears int
	ImageURL        string
	Rating          float64
	TotalOrders     int
	CustomersServed int
	CreatedAt       time.Time
}

// NewChef creates a chef profile owned by the given user. Exactly one
// chef per user id; the store enforces the uniqueness.
func NewChef(userID, displayName, bio, location string, experienceYears int, imageURL string) (*Chef, error) {
	if userID == "" {
		return nil, errors.New("owning user id is required")
	}
	if displayName == "" {
		return nil, errors.New("display name is required")
	}
	if experienceYears < 0 {
		return nil, errors.New("experience years must not be negative")
	}

	return &Chef{
		ID:              uuid.New().String(),
		UserID:          userID,
		DisplayName:     displayName,
		Bio:             bio,
		Location:        location,
		ExperienceYears: experienceYears,
		ImageURL:        imageURL,
		CreatedAt:       time.Now(),
	}, nil
}

// Service is a bookable offering belonging to exactly one chef.
// Removal is modeled as Active=false so historical orders keep a valid
// reference.
type Service struct {
	ID          string
	ChefID      string
	Name        string
	Description string
	Price       float64
	Active      bool
	CreatedAt   time.Time
}

func NewService(chefID, name, description string, price float64) (*Service, error) {
	if chefID == "" {
		return nil, errors.New("chef id is required")
	}
	if name == "" {
		return nil, errors.New("service name is required")
	}
	if price < 0 {
		return nil, errors.New("price must not be negative")
	}

	return &Service{
		ID:          uuid.New().String(),
		ChefID:      chefID,
		Name:        name,
		Description: description,
		Price:       price,
		Active:      true,
		CreatedAt:   time.Now(),
	}, nil
}
