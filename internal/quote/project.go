package quote

import (
	"strings"

	"agroquote/internal/domain"
)

// Projector converts the valid rows of one table into canonical records.
type Projector func(title, date string, rows []domain.RawRow) []domain.Record

var projectors = map[domain.Variant]Projector{
	domain.VariantSimple:     ProjectSimple,
	domain.VariantRegional:   ProjectRegional,
	domain.VariantFutures:    ProjectFutures,
	domain.VariantRestocking: ProjectRestocking,
	domain.VariantExternal:   ProjectExternal,
}

// Project dispatches to the projector registered for v.
func Project(v domain.Variant, title, date string, rows []domain.RawRow) []domain.Record {
	p, ok := projectors[v]
	if !ok {
		return nil
	}
	return p(title, date, rows)
}

var (
	usdLabels       = []string{"us$", "u$"}
	variationLabels = []string{"variacao", "(%)"}
)

func exclude(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// ---------------------------------------------------------------------------
// Simple indicators
// ---------------------------------------------------------------------------

var (
	simplePrice = FieldRule{
		Patterns: []string{"r$", "vista", "prazo", "valor", "preco"},
		Exclude:  exclude(usdLabels, variationLabels),
		Position: -1,
	}
	simpleVariation = FieldRule{Patterns: variationLabels, Position: -1}
	simpleUSD       = FieldRule{Patterns: usdLabels, Exclude: variationLabels, Position: -1}
)

// ProjectSimple keeps rows with a BRL price; the table title becomes the
// indicator name.
func ProjectSimple(title, date string, rows []domain.RawRow) []domain.Record {
	var out []domain.Record
	for _, row := range rows {
		price := ResolveNumber(row, simplePrice)
		if price == nil {
			continue
		}
		out = append(out, domain.SimpleIndicator{
			Date:          date,
			IndicatorName: title,
			PriceBRL:      *price,
			VariationPct:  ResolveNumber(row, simpleVariation),
			PriceUSD:      ResolveNumber(row, simpleUSD),
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Regional indicators
// ---------------------------------------------------------------------------

var (
	regionalState = FieldRule{
		Patterns: []string{"estado", "municipio", "praca", "regiao"},
		Position: 0,
	}
	regionalPrice = FieldRule{
		Patterns: []string{"r$", "preco", "media"},
		Exclude:  exclude(usdLabels, variationLabels),
		Position: 1,
	}
	regionalVariation = FieldRule{Patterns: variationLabels, Position: 2}
	regionalUSD       = FieldRule{Patterns: usdLabels, Exclude: variationLabels, Position: -1}
)

// headerArtifacts are values a state column takes when the source repeats
// its header inside the table body.
var headerArtifacts = map[string]bool{
	"estado":       true,
	"state":        true,
	"municipio":    true,
	"munipicio":    true,
	"municipality": true,
}

// ProjectRegional emits one record per state row that carries a BRL price.
func ProjectRegional(title, date string, rows []domain.RawRow) []domain.Record {
	var out []domain.Record
	for _, row := range rows {
		state, ok := ResolveField(row, regionalState)
		if !ok || headerArtifacts[Fold(state)] {
			continue
		}
		price := ResolveNumber(row, regionalPrice)
		if price == nil {
			continue
		}
		out = append(out, domain.RegionalIndicator{
			Date:          date,
			State:         state,
			PriceBRL:      *price,
			VariationPct:  ResolveNumber(row, regionalVariation),
			PriceUSD:      ResolveNumber(row, regionalUSD),
			IndicatorName: title,
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Futures contracts
// ---------------------------------------------------------------------------

var (
	futuresContract = FieldRule{
		Patterns: []string{"contrato", "vencimento"},
		Position: 0,
		Accept:   func(v string) bool { return strings.Contains(v, "/") },
	}
	futuresPrice = FieldRule{
		Patterns: []string{"fechamento", "r$"},
		Exclude:  exclude(variationLabels, []string{"contrato"}),
		Position: 1,
	}
	futuresVariation = FieldRule{Patterns: []string{"variacao"}, Position: 2}
)

// ProjectFutures needs both a month/year contract code and a price.
func ProjectFutures(title, date string, rows []domain.RawRow) []domain.Record {
	var out []domain.Record
	for _, row := range rows {
		contract, ok := ResolveField(row, futuresContract)
		if !ok {
			continue
		}
		price := ResolveNumber(row, futuresPrice)
		if price == nil {
			continue
		}
		out = append(out, domain.FuturesContract{
			Date:          date,
			ContractMonth: contract,
			Price:         *price,
			Variation:     ResolveNumber(row, futuresVariation),
			IndicatorName: title,
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Restocking
// ---------------------------------------------------------------------------

var (
	restockingState    = FieldRule{Patterns: []string{"estado"}, Position: -1}
	restockingDesmama  = FieldRule{Patterns: []string{"desmama"}, Position: -1}
	restockingWeaned   = FieldRule{Patterns: []string{"bezerra", "bezerro"}, Position: -1}
	restockingYearling = FieldRule{Patterns: []string{"novilha", "garrote"}, Position: -1}
	restockingCow      = FieldRule{Patterns: []string{"vaca magra", "boi magro"}, Position: -1}
)

// ProjectRestocking reads per-state replacement cattle prices. The sex
// category comes from the table title.
func ProjectRestocking(title, date string, rows []domain.RawRow) []domain.Record {
	category := domain.CategoryMale
	if strings.Contains(Fold(title), "femea") {
		category = domain.CategoryFemale
	}

	var out []domain.Record
	for _, row := range rows {
		state, ok := ResolveField(row, restockingState)
		if !ok || headerArtifacts[Fold(state)] {
			continue
		}
		rec := domain.Restocking{
			Date:          date,
			State:         state,
			Category:      category,
			Desmama:       ResolveNumber(row, restockingDesmama),
			WeanedPair:    ResolveNumber(row, restockingWeaned),
			YearlingPair:  ResolveNumber(row, restockingYearling),
			CowOrSteer:    ResolveNumber(row, restockingCow),
			IndicatorName: title,
		}
		if rec.Desmama == nil && rec.WeanedPair == nil && rec.YearlingPair == nil && rec.CowOrSteer == nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// ---------------------------------------------------------------------------
// External markets
// ---------------------------------------------------------------------------

var (
	externalContract = FieldRule{
		Patterns: []string{"contrato"},
		Position: 0,
		Accept: func(v string) bool {
			return !containsAny(Fold(v), "ultima", "atualizacao")
		},
	}
	externalPrice = FieldRule{
		Patterns: []string{"preco", "us$"},
		Exclude:  []string{"var"},
		Position: 1,
	}
	externalVariation = FieldRule{Patterns: []string{"var"}, Position: 2}
)

// ProjectExternal uses the table title as the market name.
func ProjectExternal(title, date string, rows []domain.RawRow) []domain.Record {
	var out []domain.Record
	for _, row := range rows {
		contract, ok := ResolveField(row, externalContract)
		if !ok {
			continue
		}
		price := ResolveNumber(row, externalPrice)
		if price == nil {
			continue
		}
		out = append(out, domain.ExternalMarket{
			Date:      date,
			Market:    title,
			Contract:  contract,
			Price:     *price,
			Variation: ResolveNumber(row, externalVariation),
		})
	}
	return out
}
