package recurrence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRule_Validation(t *testing.T) {
	tests := []struct {
		name    string
		pattern Pattern
		opts    []RuleOption
		wantErr bool
	}{
		{name: "daily ok", pattern: Daily{Interval: 1}},
		{name: "monthly every 6", pattern: Monthly{Interval: 6}},
		{name: "nil pattern", pattern: nil, wantErr: true},
		{name: "zero interval", pattern: Weekly{Interval: 0}, wantErr: true},
		{name: "negative interval", pattern: Yearly{Interval: -2}, wantErr: true},
		{name: "pointer variant", pattern: &Daily{Interval: 1}, wantErr: true},
		{name: "zero max", pattern: Daily{Interval: 1}, opts: []RuleOption{WithMaxOccurrences(0)}, wantErr: true},
		{name: "zero end date", pattern: Daily{Interval: 1}, opts: []RuleOption{WithEndDate(time.Time{})}, wantErr: true},
		{
			name:    "with termination",
			pattern: Daily{Interval: 2},
			opts:    []RuleOption{WithMaxOccurrences(10), WithEndDate(date(2025, 1, 1))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := NewRule(tt.pattern, tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidRule)
				assert.True(t, rule.IsZero())
				return
			}
			require.NoError(t, err)
			assert.NoError(t, rule.Validate())
		})
	}
}

func TestParseSpec(t *testing.T) {
	end := date(2024, 12, 31)
	limit := 5

	rule, err := ParseSpec(Spec{Frequency: "Weekly", Interval: 2, EndDate: &end, MaxOccurrences: &limit})
	require.NoError(t, err)

	assert.Equal(t, FrequencyWeekly, rule.Frequency())
	assert.Equal(t, 2, rule.Interval())
	gotEnd, ok := rule.EndDate().Get()
	require.True(t, ok)
	assert.Equal(t, end, gotEnd)
	assert.Equal(t, 5, rule.MaxOccurrences().OrEmpty())

	_, err = ParseSpec(Spec{Frequency: "hourly", Interval: 1})
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = ParseSpec(Spec{Frequency: FrequencyDaily})
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestRule_JSON(t *testing.T) {
	rule := MustRule(Monthly{Interval: 3}, WithMaxOccurrences(4))

	data, err := json.Marshal(rule)
	require.NoError(t, err)
	assert.JSONEq(t, `{"frequency":"monthly","interval":3,"maxOccurrences":4}`, string(data))

	var decoded Rule
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rule.Spec(), decoded.Spec())

	err = json.Unmarshal([]byte(`{"frequency":"weekly","interval":0}`), &decoded)
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = json.Marshal(Rule{})
	assert.Error(t, err)
}

func TestRule_InTaskDocument(t *testing.T) {
	type doc struct {
		Title      string `json:"title"`
		Recurrence *Rule  `json:"recurrence,omitempty"`
	}

	var d doc
	require.NoError(t, json.Unmarshal([]byte(`{"title":"standup","recurrence":{"frequency":"daily","interval":1}}`), &d))
	require.NotNil(t, d.Recurrence)
	assert.Equal(t, FrequencyDaily, d.Recurrence.Frequency())

	var plain doc
	require.NoError(t, json.Unmarshal([]byte(`{"title":"once"}`), &plain))
	assert.Nil(t, plain.Recurrence)
}

func TestRule_String(t *testing.T) {
	rule := MustRule(Yearly{Interval: 1}, WithEndDate(date(2030, 1, 1)), WithMaxOccurrences(3))
	assert.Equal(t, "yearly/1 until 2030-01-01 max 3", rule.String())
	assert.Equal(t, "<invalid rule>", Rule{}.String())
}

func TestCombine(t *testing.T) {
	day := date(2024, 7, 4)
	got := Combine(day, TimeOfDay{Hour: 9, Minute: 15})
	assert.Equal(t, time.Date(2024, 7, 4, 9, 15, 0, 0, time.UTC), got)
	assert.Equal(t, TimeOfDay{Hour: 9, Minute: 15}, TimeOfDayOf(got))
	assert.Equal(t, "09:15:00", TimeOfDayOf(got).String())
}
