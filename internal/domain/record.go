package domain

// Field is one named column of a canonical record. Value is nil for a
// missing optional number.
type Field struct {
	Name  string
	Value any
}

// Record is implemented by the five canonical quotation schemas.
type Record interface {
	Variant() Variant
	RecordDate() string
	Fields() []Field
}

// Restocking categories.
const (
	CategoryFemale = "Fêmea"
	CategoryMale   = "Macho"
)

// ---------------------------------------------------------------------------
// Schemas
// ---------------------------------------------------------------------------

// SimpleIndicator is a single headline price, e.g. a daily cattle indicator.
type SimpleIndicator struct {
	Date          string   `parquet:"date"`
	IndicatorName string   `parquet:"indicator_name"`
	PriceBRL      float64  `parquet:"price_brl"`
	VariationPct  *float64 `parquet:"variation_pct"`
	PriceUSD      *float64 `parquet:"price_usd"`
}

// RegionalIndicator is a per-state (or per-municipality) price.
type RegionalIndicator struct {
	Date          string   `parquet:"date"`
	IndicatorName string   `parquet:"indicator_name"`
	State         string   `parquet:"state"`
	PriceBRL      float64  `parquet:"price_brl"`
	VariationPct  *float64 `parquet:"variation_pct"`
	PriceUSD      *float64 `parquet:"price_usd"`
}

// FuturesContract is one maturity of an exchange-listed futures table.
type FuturesContract struct {
	Date          string   `parquet:"date"`
	ContractMonth string   `parquet:"contract_month"`
	Price         float64  `parquet:"price"`
	Variation     *float64 `parquet:"variation"`
	IndicatorName string   `parquet:"indicator_name"`
}

// Restocking is a replacement-cattle quote per state and sex category.
type Restocking struct {
	Date          string   `parquet:"date"`
	State         string   `parquet:"state"`
	Category      string   `parquet:"category"`
	Desmama       *float64 `parquet:"desmama"`
	WeanedPair    *float64 `parquet:"weaned_pair"`
	YearlingPair  *float64 `parquet:"yearling_pair"`
	CowOrSteer    *float64 `parquet:"cow_or_steer"`
	IndicatorName string   `parquet:"indicator_name"`
}

// ExternalMarket is a foreign exchange quote (Chicago, New York).
type ExternalMarket struct {
	Date      string   `parquet:"date"`
	Market    string   `parquet:"market"`
	Contract  string   `parquet:"contract"`
	Price     float64  `parquet:"price"`
	Variation *float64 `parquet:"variation"`
}

// Schema returns the ordered field names of a variant.
func Schema(v Variant) []string {
	switch v {
	case VariantSimple:
		return []string{"date", "indicator_name", "price_brl", "variation_pct", "price_usd"}
	case VariantRegional:
		return []string{"date", "indicator_name", "state", "price_brl", "variation_pct", "price_usd"}
	case VariantFutures:
		return []string{"date", "contract_month", "price", "variation", "indicator_name"}
	case VariantRestocking:
		return []string{"date", "state", "category", "desmama", "weaned_pair", "yearling_pair", "cow_or_steer", "indicator_name"}
	case VariantExternal:
		return []string{"date", "market", "contract", "price", "variation"}
	}
	return nil
}

func optional(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func (r SimpleIndicator) Variant() Variant   { return VariantSimple }
func (r SimpleIndicator) RecordDate() string { return r.Date }
func (r SimpleIndicator) Fields() []Field {
	return []Field{
		{"date", r.Date},
		{"indicator_name", r.IndicatorName},
		{"price_brl", r.PriceBRL},
		{"variation_pct", optional(r.VariationPct)},
		{"price_usd", optional(r.PriceUSD)},
	}
}

func (r RegionalIndicator) Variant() Variant   { return VariantRegional }
func (r RegionalIndicator) RecordDate() string { return r.Date }
func (r RegionalIndicator) Fields() []Field {
	return []Field{
		{"date", r.Date},
		{"indicator_name", r.IndicatorName},
		{"state", r.State},
		{"price_brl", r.PriceBRL},
		{"variation_pct", optional(r.VariationPct)},
		{"price_usd", optional(r.PriceUSD)},
	}
}

func (r FuturesContract) Variant() Variant   { return VariantFutures }
func (r FuturesContract) RecordDate() string { return r.Date }
func (r FuturesContract) Fields() []Field {
	return []Field{
		{"date", r.Date},
		{"contract_month", r.ContractMonth},
		{"price", r.Price},
		{"variation", optional(r.Variation)},
		{"indicator_name", r.IndicatorName},
	}
}

func (r Restocking) Variant() Variant   { return VariantRestocking }
func (r Restocking) RecordDate() string { return r.Date }
func (r Restocking) Fields() []Field {
	return []Field{
		{"date", r.Date},
		{"state", r.State},
		{"category", r.Category},
		{"desmama", optional(r.Desmama)},
		{"weaned_pair", optional(r.WeanedPair)},
		{"yearling_pair", optional(r.YearlingPair)},
		{"cow_or_steer", optional(r.CowOrSteer)},
		{"indicator_name", r.IndicatorName},
	}
}

func (r ExternalMarket) Variant() Variant   { return VariantExternal }
func (r ExternalMarket) RecordDate() string { return r.Date }
func (r ExternalMarket) Fields() []Field {
	return []Field{
		{"date", r.Date},
		{"market", r.Market},
		{"contract", r.Contract},
		{"price", r.Price},
		{"variation", optional(r.Variation)},
	}
}

// FieldValue returns the named field of r, or nil when r has no such field.
func FieldValue(r Record, name string) any {
	for _, f := range r.Fields() {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}
