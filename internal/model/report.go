package model

// TourStat is one difficulty bucket of the rating statistics report.
type TourStat struct {
	Difficulty string  `json:"_id"`
	NumTours   int     `json:"numTours"`
	NumRatings int     `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// MonthlyPlanEntry counts tour starts in one calendar month.
type MonthlyPlanEntry struct {
	Month      int      `json:"month"`
	NumOfTours int      `json:"numOfTours"`
	Tours      []string `json:"tours"`
}

// TourDistance is a tour name with its distance from a reference point.
type TourDistance struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// Distance units accepted by the geo endpoints.
const (
	UnitMiles      = "mi"
	UnitKilometers = "km"
)
