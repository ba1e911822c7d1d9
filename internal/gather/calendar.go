package gather

import (
	"time"
)

// DefaultHolidays are the fixed-date Brazilian national holidays, as MM-DD.
var DefaultHolidays = []string{
	"01-01", // Confraternização Universal
	"04-21", // Tiradentes
	"05-01", // Dia do Trabalho
	"09-07", // Independência
	"10-12", // Nossa Senhora Aparecida
	"11-02", // Finados
	"11-15", // Proclamação da República
	"11-20", // Consciência Negra
	"12-25", // Natal
}

// Calendar decides which dates can carry quotations.
type Calendar struct {
	holidays map[string]bool
	earliest time.Time
	now      func() time.Time
}

// NewCalendar builds a calendar from MM-DD holidays. Dates before earliest
// never have data; a zero earliest disables that bound.
func NewCalendar(holidays []string, earliest time.Time) *Calendar {
	c := &Calendar{
		holidays: make(map[string]bool, len(holidays)),
		earliest: truncateDay(earliest),
		now:      time.Now,
	}
	for _, h := range holidays {
		c.holidays[h] = true
	}
	return c
}

// IsBusinessDay reports whether t is a weekday that is not a fixed holiday.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.holidays[t.Format("01-02")]
}

// HasPotentialData reports whether t lies between the earliest published
// date and today.
func (c *Calendar) HasPotentialData(t time.Time) bool {
	day := truncateDay(t)
	if !c.earliest.IsZero() && day.Before(c.earliest) {
		return false
	}
	return !day.After(truncateDay(c.now()))
}
