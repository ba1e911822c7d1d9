package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agroquote/internal/domain"
)

func row(kv ...string) domain.RawRow {
	r := make(domain.RawRow, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		r = append(r, domain.Cell{Label: kv[i], Value: kv[i+1]})
	}
	return r
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1.246,72", 1246.72, true},
		{"310,45", 310.45, true},
		{"+1,2", 1.2, true},
		{"-0,35", -0.35, true},
		{"R$ 298,50", 298.50, true},
		{"12.5", 12.5, true},
		{"  42 ", 42, true},
		{"", 0, false},
		{"Ver histórico", 0, false},
		{"Atualizado em: 15/01/2024", 0, false},
		{"s/ cotação", 0, false},
		{"-", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "variacao (%)", Fold("Variação (%)"))
	assert.Equal(t, "reposicao femea", Fold("Reposição Fêmea"))
	assert.Equal(t, "sao paulo", Fold("São Paulo"))
}

func TestResolveField(t *testing.T) {
	r := row("À vista R$", "", "A prazo R$", "301,00", "column_3", "7")

	v, ok := ResolveField(r, FieldRule{Patterns: []string{"r$"}, Position: -1})
	require.True(t, ok)
	assert.Equal(t, "301,00", v, "empty values fall through to the next cell")

	v, ok = ResolveField(r, FieldRule{Patterns: []string{"nope"}, Position: 3})
	require.True(t, ok)
	assert.Equal(t, "7", v)

	_, ok = ResolveField(r, FieldRule{Patterns: []string{"prazo"}, Exclude: []string{"r$"}, Position: -1})
	assert.False(t, ok)
}

func TestIsValidRow(t *testing.T) {
	assert.False(t, IsValidRow(nil))
	assert.False(t, IsValidRow(row("column_0", "Ver histórico")))
	assert.False(t, IsValidRow(row("column_0", "Atualizado em: 12/01/2024")))
	assert.False(t, IsValidRow(row("Estado", "Média ponderada considerando ...")))
	assert.True(t, IsValidRow(row("Estado", "São Paulo", "R$", "310,45")))
	assert.True(t, IsValidRow(row("Estado", "Goiás", domain.SectionLabel, "Peso médio")),
		"the section tag is not row content")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		title string
		rows  []domain.RawRow
		want  domain.Variant
	}{
		{"Reposição - Macho", nil, domain.VariantRestocking},
		{"Reposicao Femea", nil, domain.VariantRestocking},
		{"Boi Gordo - Chicago (CME)", nil, domain.VariantExternal},
		{"Café - New York", nil, domain.VariantExternal},
		{"Boi Gordo - Pregão Regular", nil, domain.VariantFutures},
		{"Mercado Futuro - Pregão B3", nil, domain.VariantFutures},
		{"Indicador por Estado", []domain.RawRow{row("Estado", "São Paulo", "R$ Médio", "310,45")}, domain.VariantRegional},
		{"IMEA", []domain.RawRow{row("column_0", "Município", "column_1", "R$")}, domain.VariantRegional},
		{"Indicador do Boi Gordo CEPEA/B3", []domain.RawRow{row("Data", "15/01/2024", "À vista R$", "298,50")}, domain.VariantSimple},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.title, tt.rows))
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	// Title rules win over row inspection.
	rows := []domain.RawRow{row("Estado", "SP", "Bezerro", "2.500,00")}
	assert.Equal(t, domain.VariantRestocking, Classify("Reposição por Estado", rows))
}

func TestProjectRegional(t *testing.T) {
	rows := []domain.RawRow{
		row("Estado", "São Paulo", "R$ Médio", "310,45", "Variação (%)", "+1,2"),
		row("Estado", "Estado", "R$ Médio", "R$"),
		row("Estado", "Goiás", "R$ Médio", "s/ cotação"),
	}
	recs := ProjectRegional("Boi Gordo por Estado", "2024-01-15", rows)
	require.Len(t, recs, 1)

	r := recs[0].(domain.RegionalIndicator)
	assert.Equal(t, "2024-01-15", r.Date)
	assert.Equal(t, "São Paulo", r.State)
	assert.InDelta(t, 310.45, r.PriceBRL, 1e-9)
	require.NotNil(t, r.VariationPct)
	assert.InDelta(t, 1.2, *r.VariationPct, 1e-9)
	assert.Nil(t, r.PriceUSD)
	assert.Equal(t, "Boi Gordo por Estado", r.IndicatorName)
}

func TestProjectRegionalPositional(t *testing.T) {
	rows := []domain.RawRow{
		row("column_0", "Município", "column_1", "R$/@", "column_2", "Var."),
		row("column_0", "Cuiabá", "column_1", "285,00", "column_2", "-0,5"),
	}
	recs := ProjectRegional("IMEA", "2024-01-15", rows)
	require.Len(t, recs, 1)
	r := recs[0].(domain.RegionalIndicator)
	assert.Equal(t, "Cuiabá", r.State)
	assert.InDelta(t, 285.0, r.PriceBRL, 1e-9)
	require.NotNil(t, r.VariationPct)
	assert.InDelta(t, -0.5, *r.VariationPct, 1e-9)
}

func TestProjectSimple(t *testing.T) {
	rows := []domain.RawRow{
		row("Data", "15/01/2024", "À vista R$", "298,50", "Variação", "+0,35", "À vista US$", "60,70"),
		row("Data", "12/01/2024", "À vista R$", ""),
	}
	recs := ProjectSimple("Indicador do Boi Gordo", "2024-01-15", rows)
	require.Len(t, recs, 1)
	r := recs[0].(domain.SimpleIndicator)
	assert.InDelta(t, 298.50, r.PriceBRL, 1e-9)
	require.NotNil(t, r.VariationPct)
	assert.InDelta(t, 0.35, *r.VariationPct, 1e-9)
	require.NotNil(t, r.PriceUSD)
	assert.InDelta(t, 60.70, *r.PriceUSD, 1e-9)
}

func TestProjectFutures(t *testing.T) {
	rows := []domain.RawRow{
		row("Contrato", "Jan/24", "Fechamento (R$)", "296,15", "Variação", "-1,05"),
		row("Contrato", "Total", "Fechamento (R$)", "10"),
		row("column_0", "Fev/24", "column_1", "298,00"),
		row("Contrato", "Mar/24", "Fechamento (R$)", ""),
	}
	recs := ProjectFutures("Boi Gordo B3 - Pregão Regular", "2024-01-15", rows)
	require.Len(t, recs, 2)
	first := recs[0].(domain.FuturesContract)
	assert.Equal(t, "Jan/24", first.ContractMonth)
	assert.InDelta(t, 296.15, first.Price, 1e-9)
	require.NotNil(t, first.Variation)
	assert.InDelta(t, -1.05, *first.Variation, 1e-9)
	second := recs[1].(domain.FuturesContract)
	assert.Equal(t, "Fev/24", second.ContractMonth)
	assert.Nil(t, second.Variation)
}

func TestProjectRestocking(t *testing.T) {
	rows := []domain.RawRow{
		row("Estado", "MS", "Bezerra", "2.100,00", "Novilha", "2.650,00", "Vaca Magra", "3.000,00"),
		row("Estado", "SP"),
		row("Bezerra", "1.900,00"),
	}
	recs := ProjectRestocking("Reposição - Fêmea", "2024-01-15", rows)
	require.Len(t, recs, 1)
	r := recs[0].(domain.Restocking)
	assert.Equal(t, domain.CategoryFemale, r.Category)
	assert.Nil(t, r.Desmama)
	require.NotNil(t, r.WeanedPair)
	assert.InDelta(t, 2100.0, *r.WeanedPair, 1e-9)
	require.NotNil(t, r.YearlingPair)
	require.NotNil(t, r.CowOrSteer)

	male := ProjectRestocking("Reposição - Macho", "2024-01-15", []domain.RawRow{row("Estado", "GO", "Bezerro", "2.400,00")})
	require.Len(t, male, 1)
	assert.Equal(t, domain.CategoryMale, male[0].(domain.Restocking).Category)
}

func TestProjectExternal(t *testing.T) {
	rows := []domain.RawRow{
		row("CONTRATO", "Fev/24", "PREÇO (US$)", "171,25", "VAR.", "+0,80"),
		row("CONTRATO", "Última atualização 14h", "PREÇO (US$)", "1"),
	}
	recs := ProjectExternal("Boi Gordo - Chicago", "2024-01-15", rows)
	require.Len(t, recs, 1)
	r := recs[0].(domain.ExternalMarket)
	assert.Equal(t, "Boi Gordo - Chicago", r.Market)
	assert.Equal(t, "Fev/24", r.Contract)
	assert.InDelta(t, 171.25, r.Price, 1e-9)
	require.NotNil(t, r.Variation)
	assert.InDelta(t, 0.8, *r.Variation, 1e-9)
}

func TestExtract(t *testing.T) {
	p := domain.RawPayload{
		Date: "2024-01-15",
		Tables: []domain.RawTable{
			{Title: "Indicador por Estado", Rows: []domain.RawRow{
				row("Estado", "São Paulo", "R$ Médio", "310,45", "Variação (%)", "+1,2"),
				row("column_0", "Ver histórico"),
			}},
			{Title: "Notas", Rows: []domain.RawRow{row("column_0", "Atualizado em: 15/01")}},
			{Title: "Sem preço", Rows: []domain.RawRow{row("Data", "15/01")}},
		},
	}
	tables := Extract(p)
	require.Len(t, tables, 1)
	assert.Equal(t, domain.VariantRegional, tables[0].Variant)
	assert.Equal(t, "Indicador por Estado", tables[0].Name)
	assert.Equal(t, 1, RecordCount(tables))
}

func TestExtractDeterministic(t *testing.T) {
	p := domain.RawPayload{
		Date: "2024-01-15",
		Tables: []domain.RawTable{{Title: "Boi", Rows: []domain.RawRow{
			row("R$", "1,00", "Preço", "2,00", "Valor", "3,00"),
		}}},
	}
	first := Extract(p)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Extract(p))
	}
	assert.InDelta(t, 1.0, first[0].Records[0].(domain.SimpleIndicator).PriceBRL, 1e-9)
}
