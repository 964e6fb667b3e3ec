package model

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/iliyamo/tour-booking-api/internal/validation"
)

// Difficulty values accepted for Tour.Difficulty.
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// DefaultRatingsAverage is what a tour without reviews reports.
const DefaultRatingsAverage = 4.5

// Tour mirrors a row of the `tours` table together with its child rows
// (start dates, guides). JSON names follow the public API.
type Tour struct {
	ID              uint64      `json:"id"`
	Name            string      `json:"name" validate:"required,min=10,max=40"`
	Duration        int         `json:"duration" validate:"required,gt=0"`
	MaxGroupSize    int         `json:"maxGroupSize" validate:"required,gt=0"`
	Difficulty      string      `json:"difficulty" validate:"required,oneof=easy medium difficult"`
	RatingsAverage  float64     `json:"ratingsAverage" validate:"gte=1,lte=5"`
	RatingsQuantity int         `json:"ratingsQuantity" validate:"gte=0"`
	Price           float64     `json:"price" validate:"required,gt=0"`
	PriceDiscount   *float64    `json:"priceDiscount,omitempty" validate:"omitempty,gte=0"`
	Summary         string      `json:"summary" validate:"required"`
	Description     string      `json:"description,omitempty"`
	ImageCover      string      `json:"imageCover" validate:"required"`
	Images          []string    `json:"images"`
	CreatedAt       time.Time   `json:"createdAt"`
	StartDates      []time.Time `json:"startDates"`
	SecretTour      bool        `json:"secretTour"`
	StartLocation   *Location   `json:"startLocation,omitempty"`
	Locations       []Location  `json:"locations" validate:"dive"`
	Guides          []uint64    `json:"guides"`
	DurationWeeks   float64     `json:"durationWeeks"`
}

// Derive fills computed fields that are never persisted.
func (t *Tour) Derive() {
	t.DurationWeeks = float64(t.Duration) / 7
	if t.Images == nil {
		t.Images = []string{}
	}
	if t.StartDates == nil {
		t.StartDates = []time.Time{}
	}
	if t.Locations == nil {
		t.Locations = []Location{}
	}
	if t.Guides == nil {
		t.Guides = []uint64{}
	}
}

// RoundRating rounds a rating average to one decimal place.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

// ValidateTour normalizes t in place and checks field and cross-field rules.
// It is called explicitly by create and update before anything is written.
func ValidateTour(t *Tour) error {
	t.Name = strings.TrimSpace(t.Name)
	t.Summary = strings.TrimSpace(t.Summary)
	t.Description = strings.TrimSpace(t.Description)
	t.Difficulty = strings.ToLower(strings.TrimSpace(t.Difficulty))
	t.RatingsAverage = RoundRating(t.RatingsAverage)

	ve := validation.Collect(t)
	if t.PriceDiscount != nil && *t.PriceDiscount >= t.Price {
		ve.Add(fmt.Sprintf("Discount price (%v) should be below regular price", *t.PriceDiscount))
	}
	if t.StartLocation != nil {
		if err := t.StartLocation.check(); err != "" {
			ve.Add("startLocation: " + err)
		}
	}
	for i := range t.Locations {
		if err := t.Locations[i].check(); err != "" {
			ve.Add(fmt.Sprintf("locations[%d]: %s", i, err))
		}
	}
	return ve.OrNil()
}

// TourInput is the allow-listed body accepted when creating a tour.
type TourInput struct {
	Name          string      `json:"name"`
	Duration      int         `json:"duration"`
	MaxGroupSize  int         `json:"maxGroupSize"`
	Difficulty    string      `json:"difficulty"`
	Price         float64     `json:"price"`
	PriceDiscount *float64    `json:"priceDiscount"`
	Summary       string      `json:"summary"`
	Description   string      `json:"description"`
	ImageCover    string      `json:"imageCover"`
	Images        []string    `json:"images"`
	StartDates    []time.Time `json:"startDates"`
	SecretTour    bool        `json:"secretTour"`
	StartLocation *Location   `json:"startLocation"`
	Locations     []Location  `json:"locations"`
	Guides        []uint64    `json:"guides"`
}

// Tour converts the input to a new Tour with defaults applied.
func (in TourInput) Tour() *Tour {
	return &Tour{
		Name:           in.Name,
		Duration:       in.Duration,
		MaxGroupSize:   in.MaxGroupSize,
		Difficulty:     in.Difficulty,
		RatingsAverage: DefaultRatingsAverage,
		Price:          in.Price,
		PriceDiscount:  in.PriceDiscount,
		Summary:        in.Summary,
		Description:    in.Description,
		ImageCover:     in.ImageCover,
		Images:         in.Images,
		StartDates:     in.StartDates,
		SecretTour:     in.SecretTour,
		StartLocation:  in.StartLocation,
		Locations:      in.Locations,
		Guides:         in.Guides,
	}
}

// TourPatch is the allow-listed body accepted when updating a tour. Nil
// fields are left untouched. Rating aggregates are not patchable.
type TourPatch struct {
	Name          *string      `json:"name"`
	Duration      *int         `json:"duration"`
	MaxGroupSize  *int         `json:"maxGroupSize"`
	Difficulty    *string      `json:"difficulty"`
	Price         *float64     `json:"price"`
	PriceDiscount *float64     `json:"priceDiscount"`
	Summary       *string      `json:"summary"`
	Description   *string      `json:"description"`
	ImageCover    *string      `json:"imageCover"`
	Images        *[]string    `json:"images"`
	StartDates    *[]time.Time `json:"startDates"`
	SecretTour    *bool        `json:"secretTour"`
	StartLocation *Location    `json:"startLocation"`
	Locations     *[]Location  `json:"locations"`
	Guides        *[]uint64    `json:"guides"`
}

// Apply copies every non-nil field of p onto t.
func (p TourPatch) Apply(t *Tour) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Duration != nil {
		t.Duration = *p.Duration
	}
	if p.MaxGroupSize != nil {
		t.MaxGroupSize = *p.MaxGroupSize
	}
	if p.Difficulty != nil {
		t.Difficulty = *p.Difficulty
	}
	if p.Price != nil {
		t.Price = *p.Price
	}
	if p.PriceDiscount != nil {
		v := *p.PriceDiscount
		t.PriceDiscount = &v
	}
	if p.Summary != nil {
		t.Summary = *p.Summary
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.ImageCover != nil {
		t.ImageCover = *p.ImageCover
	}
	if p.Images != nil {
		t.Images = *p.Images
	}
	if p.StartDates != nil {
		t.StartDates = *p.StartDates
	}
	if p.SecretTour != nil {
		t.SecretTour = *p.SecretTour
	}
	if p.StartLocation != nil {
		loc := *p.StartLocation
		t.StartLocation = &loc
	}
	if p.Locations != nil {
		t.Locations = *p.Locations
	}
	if p.Guides != nil {
		t.Guides = *p.Guides
	}
}

// TourDetail is the get-one representation: guides are expanded and the
// tour's reviews are attached.
type TourDetail struct {
	Tour
	Guides  []UserRef `json:"guides"`
	Reviews []Review  `json:"reviews"`
}
