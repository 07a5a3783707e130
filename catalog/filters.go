package catalog

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/zoe-motors/storefront-api/models"
)

// Filter is anything a Feed can key its fetches on
type Filter interface {
	Key() string
}

// VehicleFilters mirrors the inventory filter form. Values are kept as the
// raw strings the user typed.
//
// Filtering happens in two stages. ServerFilter is pushed down to the store
// (trade-in partition, model prefix, year, condition); ClientFilter runs in
// memory over the fetched rows (price range). Range predicates stay out of
// the store query so they never have to be combined with the equality
// predicates in a single index.
type VehicleFilters struct {
	Model     string `json:"model"`
	Year      string `json:"year"`
	MinPrice  string `json:"minPrice"`
	MaxPrice  string `json:"maxPrice"`
	Condition string `json:"condition"`
	IsTradeIn bool   `json:"isTradeIn"`
}

// Key is the serialized filter value; a change in Key triggers a re-fetch
func (f VehicleFilters) Key() string {
	b, _ := json.Marshal(f)
	return string(b)
}

// ServerFilter is the store-side predicate
func (f VehicleFilters) ServerFilter() bson.M {
	m := bson.M{"vehicle.isTradeIn": f.IsTradeIn}
	if model := strings.TrimSpace(f.Model); model != "" {
		m["vehicle.name"] = bson.M{"$regex": "^" + regexp.QuoteMeta(model)}
	}
	if year := strings.TrimSpace(f.Year); year != "" {
		m["vehicle.year"] = yearPredicate(year)
	}
	if cond := strings.TrimSpace(f.Condition); cond != "" {
		m["vehicle.condition"] = cond
	}
	return m
}

// ClientFilter is the in-memory predicate applied after fetch
func (f VehicleFilters) ClientFilter() func(models.Vehicle) bool {
	r := newPriceRange(f.MinPrice, f.MaxPrice)
	return func(v models.Vehicle) bool {
		return r.contains(v.Details.Price)
	}
}

// PartFilters mirrors the spare parts filter form
type PartFilters struct {
	Category  string `json:"category"`
	Brand     string `json:"brand"`
	MinPrice  string `json:"minPrice"`
	MaxPrice  string `json:"maxPrice"`
	Condition string `json:"condition"`
}

// Key is the serialized filter value
func (f PartFilters) Key() string {
	b, _ := json.Marshal(f)
	return string(b)
}

// ServerFilter is the store-side predicate
func (f PartFilters) ServerFilter() bson.M {
	m := bson.M{}
	if v := strings.TrimSpace(f.Category); v != "" {
		m["sparePart.category"] = v
	}
	if v := strings.TrimSpace(f.Brand); v != "" {
		m["sparePart.brand"] = v
	}
	if v := strings.TrimSpace(f.Condition); v != "" {
		m["sparePart.condition"] = v
	}
	return m
}

// ClientFilter is the in-memory predicate applied after fetch
func (f PartFilters) ClientFilter() func(models.SparePart) bool {
	r := newPriceRange(f.MinPrice, f.MaxPrice)
	return func(p models.SparePart) bool {
		return r.contains(p.Details.Price)
	}
}

// an unparsable year can never equal a stored year
func yearPredicate(s string) interface{} {
	y, err := strconv.Atoi(s)
	if err != nil {
		return bson.M{"$in": bson.A{}}
	}
	return y
}

type priceRange struct {
	min, max float64
}

// empty, zero or unparsable bounds mean "no bound"
func newPriceRange(minS, maxS string) priceRange {
	return priceRange{min: parseBound(minS), max: parseBound(maxS)}
}

func parseBound(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func (r priceRange) contains(price float64) bool {
	if r.min != 0 && price < r.min {
		return false
	}
	if r.max != 0 && price > r.max {
		return false
	}
	return true
}
