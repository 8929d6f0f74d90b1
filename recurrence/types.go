package recurrence

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
)

// ErrInvalidRule is returned when a rule cannot be constructed from its parts
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Frequency names the unit a rule repeats in
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Pattern is one variant of the frequency-keyed rule union.
// The set of implementations is closed: Daily, Weekly, Monthly and Yearly.
type Pattern interface {
	// Frequency reports which variant this is
	Frequency() Frequency
	// Every returns the interval, "every N units"
	Every() int

	// matches reports whether a candidate d whole days after anchor fits the pattern
	matches(anchor, candidate time.Time, days int) bool
	// index returns the 1-based occurrence number for a candidate d days after the anchor
	index(days int) int
	// advance moves a due date forward by one interval using calendar arithmetic
	advance(due time.Time) time.Time
}

// Daily repeats every Interval days
type Daily struct{ Interval int }

// Weekly repeats every Interval weeks
type Weekly struct{ Interval int }

// Monthly repeats every Interval months on the anchor's day of month
type Monthly struct{ Interval int }

// Yearly repeats every Interval years on the anchor's month and day
type Yearly struct{ Interval int }

func (p Daily) Frequency() Frequency   { return FrequencyDaily }
func (p Weekly) Frequency() Frequency  { return FrequencyWeekly }
func (p Monthly) Frequency() Frequency { return FrequencyMonthly }
func (p Yearly) Frequency() Frequency  { return FrequencyYearly }

func (p Daily) Every() int   { return p.Interval }
func (p Weekly) Every() int  { return p.Interval }
func (p Monthly) Every() int { return p.Interval }
func (p Yearly) Every() int  { return p.Interval }

func (p Daily) matches(_, _ time.Time, days int) bool {
	return days%p.Interval == 0
}

func (p Weekly) matches(_, _ time.Time, days int) bool {
	return days%(p.Interval*7) == 0
}

// Monthly uses 30-day buckets rather than calendar months. Anchors on day
// 29-31 never match in months that lack that day.
func (p Monthly) matches(anchor, candidate time.Time, days int) bool {
	if candidate.Day() != anchor.Day() {
		return false
	}
	return (days/30)%p.Interval == 0
}

// Yearly uses 365-day buckets with no leap-year adjustment.
func (p Yearly) matches(anchor, candidate time.Time, days int) bool {
	if candidate.Month() != anchor.Month() || candidate.Day() != anchor.Day() {
		return false
	}
	return (days/365)%p.Interval == 0
}

func (p Daily) index(days int) int   { return days/p.Interval + 1 }
func (p Weekly) index(days int) int  { return days/(p.Interval*7) + 1 }
func (p Monthly) index(days int) int { return days/(p.Interval*30) + 1 }
func (p Yearly) index(days int) int  { return days/(p.Interval*365) + 1 }

func (p Daily) advance(due time.Time) time.Time   { return due.AddDate(0, 0, p.Interval) }
func (p Weekly) advance(due time.Time) time.Time  { return due.AddDate(0, 0, p.Interval*7) }
func (p Monthly) advance(due time.Time) time.Time { return due.AddDate(0, p.Interval, 0) }
func (p Yearly) advance(due time.Time) time.Time  { return due.AddDate(p.Interval, 0, 0) }

// PatternFor builds the variant for a frequency name
func PatternFor(freq Frequency, interval int) (Pattern, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(string(freq)))) {
	case FrequencyDaily:
		return Daily{Interval: interval}, nil
	case FrequencyWeekly:
		return Weekly{Interval: interval}, nil
	case FrequencyMonthly:
		return Monthly{Interval: interval}, nil
	case FrequencyYearly:
		return Yearly{Interval: interval}, nil
	default:
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, freq)
	}
}

// Rule is an immutable, validated repeat pattern with optional termination.
// The zero Rule is invalid; build one with NewRule or ParseSpec.
type Rule struct {
	pattern        Pattern
	endDate        mo.Option[time.Time]
	maxOccurrences mo.Option[int]
}

// RuleOption configures optional termination of a rule
type RuleOption func(*Rule)

// WithEndDate stops the series after the given day (inclusive)
func WithEndDate(end time.Time) RuleOption {
	return func(r *Rule) {
		r.endDate = mo.Some(end)
	}
}

// WithMaxOccurrences caps the number of occurrences ever considered valid
func WithMaxOccurrences(n int) RuleOption {
	return func(r *Rule) {
		r.maxOccurrences = mo.Some(n)
	}
}

// NewRule validates and builds a rule
func NewRule(p Pattern, opts ...RuleOption) (Rule, error) {
	r := Rule{
		pattern:        p,
		endDate:        mo.None[time.Time](),
		maxOccurrences: mo.None[int](),
	}
	for _, opt := range opts {
		opt(&r)
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// MustRule is NewRule that panics on error, for fixtures and constants
func MustRule(p Pattern, opts ...RuleOption) Rule {
	r, err := NewRule(p, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Validate reports whether the rule is well formed
func (r Rule) Validate() error {
	if r.pattern == nil {
		return fmt.Errorf("%w: missing frequency", ErrInvalidRule)
	}
	switch r.pattern.(type) {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return fmt.Errorf("%w: unsupported pattern %T", ErrInvalidRule, r.pattern)
	}
	if r.pattern.Every() < 1 {
		return fmt.Errorf("%w: interval must be at least 1, got %d", ErrInvalidRule, r.pattern.Every())
	}
	if n, ok := r.maxOccurrences.Get(); ok && n < 1 {
		return fmt.Errorf("%w: maxOccurrences must be at least 1, got %d", ErrInvalidRule, n)
	}
	if end, ok := r.endDate.Get(); ok && end.IsZero() {
		return fmt.Errorf("%w: endDate is zero", ErrInvalidRule)
	}
	return nil
}

func (r Rule) Pattern() Pattern               { return r.pattern }
func (r Rule) EndDate() mo.Option[time.Time]  { return r.endDate }
func (r Rule) MaxOccurrences() mo.Option[int] { return r.maxOccurrences }
func (r Rule) IsZero() bool                   { return r.pattern == nil }

// Frequency returns the rule's frequency, or "" for the zero rule
func (r Rule) Frequency() Frequency {
	if r.pattern == nil {
		return ""
	}
	return r.pattern.Frequency()
}

// Interval returns the rule's interval, or 0 for the zero rule
func (r Rule) Interval() int {
	if r.pattern == nil {
		return 0
	}
	return r.pattern.Every()
}

func (r Rule) String() string {
	if r.pattern == nil {
		return "<invalid rule>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%d", r.pattern.Frequency(), r.pattern.Every())
	if end, ok := r.endDate.Get(); ok {
		fmt.Fprintf(&b, " until %s", end.Format(DateLayout))
	}
	if n, ok := r.maxOccurrences.Get(); ok {
		fmt.Fprintf(&b, " max %d", n)
	}
	return b.String()
}

// Spec is the loosely typed document shape of a rule, as stored alongside a task
type Spec struct {
	Frequency      Frequency  `json:"frequency" yaml:"frequency"`
	Interval       int        `json:"interval" yaml:"interval"`
	EndDate        *time.Time `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	MaxOccurrences *int       `json:"maxOccurrences,omitempty" yaml:"maxOccurrences,omitempty"`
}

// ParseSpec validates a document-shaped rule
func ParseSpec(s Spec) (Rule, error) {
	p, err := PatternFor(s.Frequency, s.Interval)
	if err != nil {
		return Rule{}, err
	}
	var opts []RuleOption
	if s.EndDate != nil {
		opts = append(opts, WithEndDate(*s.EndDate))
	}
	if s.MaxOccurrences != nil {
		opts = append(opts, WithMaxOccurrences(*s.MaxOccurrences))
	}
	return NewRule(p, opts...)
}

// Spec converts the rule back to its document shape
func (r Rule) Spec() Spec {
	s := Spec{
		Frequency: r.Frequency(),
		Interval:  r.Interval(),
	}
	if end, ok := r.endDate.Get(); ok {
		s.EndDate = &end
	}
	if n, ok := r.maxOccurrences.Get(); ok {
		s.MaxOccurrences = &n
	}
	return s
}

func (r Rule) MarshalJSON() ([]byte, error) {
	if r.pattern == nil {
		return nil, fmt.Errorf("%w: cannot marshal zero rule", ErrInvalidRule)
	}
	return json.Marshal(r.Spec())
}

func (r *Rule) UnmarshalJSON(data []byte) error {
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	parsed, err := ParseSpec(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// TimeOfDay is a wall-clock time without a date
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second,omitempty"`
}

// TimeOfDayOf extracts the wall-clock part of t
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// Combine places the time of day on the calendar day of d, in d's location
func Combine(d time.Time, tod TimeOfDay) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, tod.Hour, tod.Minute, tod.Second, 0, d.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}
