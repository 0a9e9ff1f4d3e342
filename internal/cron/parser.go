// Package cron parses five-field cron expressions with an explicit
// timezone. It backs the optional cron-based scan schedule.
package cron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule computes fire times in the schedule's own timezone.
type Schedule interface {
	// Next returns the first fire time strictly after the given instant.
	Next(after time.Time) time.Time
}

// Parser validates and compiles cron expressions. The accepted grammar
// is the standard five fields: minute, hour, day of month, month, day
// of week.
type Parser struct {
	inner cron.Parser
}

func NewParser() *Parser {
	return &Parser{
		inner: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

// Parse compiles expression against the named IANA timezone.
func (p *Parser) Parse(expression string, timezone string) (Schedule, error) {
	compiled, err := p.inner.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", expression, err)
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	return &zonedSchedule{compiled: compiled, loc: loc}, nil
}

type zonedSchedule struct {
	compiled cron.Schedule
	loc      *time.Location
}

func (s *zonedSchedule) Next(after time.Time) time.Time {
	return s.compiled.Next(after.In(s.loc))
}
