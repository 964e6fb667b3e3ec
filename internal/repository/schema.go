package repository

import "github.com/iliyamo/tour-booking-api/internal/query"

// TourSchema exposes the filterable and sortable tour columns.
var TourSchema = &query.Schema{
	Fields: map[string]query.Field{
		"id":              {Column: "t.id", Kind: query.KindNumber},
		"name":            {Column: "t.name", Kind: query.KindString},
		"duration":        {Column: "t.duration", Kind: query.KindNumber},
		"maxGroupSize":    {Column: "t.max_group_size", Kind: query.KindNumber},
		"difficulty":      {Column: "t.difficulty", Kind: query.KindString},
		"ratingsAverage":  {Column: "t.ratings_average", Kind: query.KindNumber},
		"ratingsQuantity": {Column: "t.ratings_quantity", Kind: query.KindNumber},
		"price":           {Column: "t.price", Kind: query.KindNumber},
		"priceDiscount":   {Column: "t.price_discount", Kind: query.KindNumber},
		"createdAt":       {Column: "t.created_at", Kind: query.KindTime},
	},
	IDColumn:    "t.id",
	DefaultSort: []query.Sort{{Field: "createdAt", Desc: true}},
}

// UserSchema exposes the filterable and sortable user columns. Credential
// columns are never listed here.
var UserSchema = &query.Schema{
	Fields: map[string]query.Field{
		"id":        {Column: "u.id", Kind: query.KindNumber},
		"name":      {Column: "u.name", Kind: query.KindString},
		"email":     {Column: "u.email", Kind: query.KindString},
		"role":      {Column: "u.role", Kind: query.KindString},
		"createdAt": {Column: "u.created_at", Kind: query.KindTime},
	},
	IDColumn:    "u.id",
	DefaultSort: []query.Sort{{Field: "createdAt", Desc: true}},
}

// ReviewSchema exposes the filterable and sortable review columns.
var ReviewSchema = &query.Schema{
	Fields: map[string]query.Field{
		"id":        {Column: "r.id", Kind: query.KindNumber},
		"rating":    {Column: "r.rating", Kind: query.KindNumber},
		"tour":      {Column: "r.tour_id", Kind: query.KindNumber},
		"user":      {Column: "r.user_id", Kind: query.KindNumber},
		"createdAt": {Column: "r.created_at", Kind: query.KindTime},
	},
	IDColumn:    "r.id",
	DefaultSort: []query.Sort{{Field: "createdAt", Desc: true}},
}
