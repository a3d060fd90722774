// Package day makes task file names from templates with date elements, like {{.ISODATE}}.
// Elements prefixed with W use the last business day instead of the given date.
package day

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// DefaultTemplate makes names like 2024-01-31
const DefaultTemplate = "{{.ISODATE}}"

// Parser translates day templates for the given date
type Parser struct {
	timeZone     *time.Location
	skipWeekDays []time.Weekday
	tmpl         tmpl
}

// tmpl used to translate templates with date info
type tmpl struct {
	YYYYMMDD string
	YYYY     string
	YYYYMM   string
	ISODATE  string
	MM       string
	DD       string

	WYYYYMMDD string
	WISODATE  string

	PYYYYMMDD string
	PISODATE  string
}

// NewParser makes day parser for the given date
func NewParser(ts time.Time, options ...Option) *Parser {
	res := &Parser{
		timeZone:     time.Local,
		skipWeekDays: []time.Weekday{time.Saturday, time.Sunday},
	}
	for _, opt := range options {
		opt(res)
	}

	tsMidnight := res.toMidnight(ts)
	prevMidnight := res.toMidnight(tsMidnight.AddDate(0, 0, -1))
	tswMidnight := res.weekdayBackward(prevMidnight)

	res.tmpl = tmpl{
		YYYYMMDD: tsMidnight.Format("20060102"),
		YYYY:     tsMidnight.Format("2006"),
		YYYYMM:   tsMidnight.Format("200601"),
		ISODATE:  tsMidnight.Format("2006-01-02"),
		MM:       tsMidnight.Format("01"),
		DD:       tsMidnight.Format("02"),

		WYYYYMMDD: tswMidnight.Format("20060102"),
		WISODATE:  tswMidnight.Format("2006-01-02"),

		PYYYYMMDD: prevMidnight.Format("20060102"),
		PISODATE:  prevMidnight.Format("2006-01-02"),
	}
	return res
}

// Parse translates template to the final name. Strings without template actions returned as is.
func (p *Parser) Parse(dayTemplate string) (string, error) {
	if !strings.Contains(dayTemplate, "{{") {
		return dayTemplate, nil
	}
	t, err := template.New("day").Option("missingkey=error").Parse(dayTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse day template %q: %w", dayTemplate, err)
	}
	b := bytes.Buffer{}
	if err := t.Execute(&b, p.tmpl); err != nil {
		return "", fmt.Errorf("failed to make day from %q: %w", dayTemplate, err)
	}
	return b.String(), nil
}

// toMidnight gets midnight time in parser's tz for the given time
func (p *Parser) toMidnight(tm time.Time) time.Time {
	yy, mm, dd := tm.In(p.timeZone).Date()
	return time.Date(yy, mm, dd, 0, 0, 0, 0, p.timeZone)
}

// weekdayBackward returns the day itself or the closest previous business day
func (p *Parser) weekdayBackward(day time.Time) time.Time {
	isBusinessDay := func(day time.Time) bool {
		for _, wd := range p.skipWeekDays {
			if day.Weekday() == wd {
				return false
			}
		}
		return true
	}
	for d, i := day, 0; i < 7; d, i = d.AddDate(0, 0, -1), i+1 {
		if isBusinessDay(d) {
			return d
		}
	}
	return day // all days skipped
}

// Option func type
type Option func(p *Parser)

// TimeZone sets timezone used for all dates
func TimeZone(tz *time.Location) Option {
	return func(p *Parser) {
		p.timeZone = tz
	}
}

// SkipWeekDays sets a list of weekdays skipped by W elements
func SkipWeekDays(days ...time.Weekday) Option {
	return func(p *Parser) {
		if days != nil {
			p.skipWeekDays = days
		}
	}
}
