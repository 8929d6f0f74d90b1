package recurrence

import (
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// ROption converts the rule to an RRULE option set anchored at dtstart.
// The RRULE expansion is calendar based, so for monthly and yearly rules it
// can disagree with IsOccurrence's bucket test near month ends.
func (r Rule) ROption(dtstart time.Time) (*rrule.ROption, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	opt := &rrule.ROption{
		Interval: r.Interval(),
		Dtstart:  dtstart,
	}
	switch r.pattern.(type) {
	case Daily:
		opt.Freq = rrule.DAILY
	case Weekly:
		opt.Freq = rrule.WEEKLY
	case Monthly:
		opt.Freq = rrule.MONTHLY
	case Yearly:
		opt.Freq = rrule.YEARLY
	}
	if end, ok := r.endDate.Get(); ok {
		opt.Until = end
	}
	if n, ok := r.maxOccurrences.Get(); ok {
		opt.Count = n
	}
	return opt, nil
}

// RuleFromROption builds a rule from a parsed RRULE. Only plain
// FREQ/INTERVAL/UNTIL/COUNT rules are representable; BY* parts are rejected.
func RuleFromROption(opt *rrule.ROption) (Rule, error) {
	if opt == nil {
		return Rule{}, fmt.Errorf("%w: nil RRULE", ErrInvalidRule)
	}
	if len(opt.Bymonth) > 0 || len(opt.Bymonthday) > 0 || len(opt.Byweekday) > 0 ||
		len(opt.Bysetpos) > 0 || len(opt.Byyearday) > 0 || len(opt.Byweekno) > 0 {
		return Rule{}, fmt.Errorf("%w: BY* parts are not supported", ErrInvalidRule)
	}

	interval := opt.Interval
	if interval == 0 {
		// RFC 5545 default
		interval = 1
	}

	var p Pattern
	switch opt.Freq {
	case rrule.DAILY:
		p = Daily{Interval: interval}
	case rrule.WEEKLY:
		p = Weekly{Interval: interval}
	case rrule.MONTHLY:
		p = Monthly{Interval: interval}
	case rrule.YEARLY:
		p = Yearly{Interval: interval}
	default:
		return Rule{}, fmt.Errorf("%w: unsupported RRULE frequency %v", ErrInvalidRule, opt.Freq)
	}

	var opts []RuleOption
	if !opt.Until.IsZero() {
		opts = append(opts, WithEndDate(opt.Until))
	}
	if opt.Count > 0 {
		opts = append(opts, WithMaxOccurrences(opt.Count))
	}
	return NewRule(p, opts...)
}

// ParseRRule parses a bare RRULE value such as "FREQ=WEEKLY;INTERVAL=2"
func ParseRRule(value string) (Rule, error) {
	opt, err := rrule.StrToROption(value)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: failed to parse RRULE '%s': %v", ErrInvalidRule, value, err)
	}
	return RuleFromROption(opt)
}

// RRuleString renders the rule as a bare RRULE value (no DTSTART)
func (r Rule) RRuleString() (string, error) {
	opt, err := r.ROption(time.Time{})
	if err != nil {
		return "", err
	}
	return opt.RRuleString(), nil
}

// ExtractRuleFromComponent reads the RRULE of an iCal component.
// A component without RRULE yields None.
func ExtractRuleFromComponent(comp *ical.Component) (mo.Option[Rule], error) {
	opt, err := comp.Props.RecurrenceRule()
	if err != nil {
		return mo.None[Rule](), fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if opt == nil {
		return mo.None[Rule](), nil
	}
	rule, err := RuleFromROption(opt)
	if err != nil {
		return mo.None[Rule](), err
	}
	return mo.Some(rule), nil
}

// SetComponentRule writes the rule as the component's RRULE
func SetComponentRule(comp *ical.Component, rule Rule) error {
	opt, err := rule.ROption(time.Time{})
	if err != nil {
		return err
	}
	comp.Props.SetRecurrenceRule(opt)
	return nil
}
