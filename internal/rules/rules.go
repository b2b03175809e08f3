// internal/rules/rules.go
package rules

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/songquiz/internal/clock"
	"github.com/jason-s-yu/songquiz/internal/codes"
	"github.com/jason-s-yu/songquiz/internal/ratelimit"
)

// Type is the declared type of a rule value.
type Type string

const (
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeString  Type = "string"
)

const (
	// MaxChanges rule mutations are accepted per ChangeWindow, per rule set.
	MaxChanges   = 10
	ChangeWindow = time.Second
)

// Rule is one named, typed setting.
type Rule struct {
	Key         string
	Value       interface{}
	Description string
	Type        Type
}

// Info is the wire form of a rule.
type Info struct {
	Key         string      `json:"key"`
	Value       interface{} `json:"value"`
	Description string      `json:"description"`
	Type        Type        `json:"type"`
}

// Checker validates a coerced value against the rest of the set before it is committed.
type Checker func(rs *RuleSet, key string, value interface{}) error

// RuleSet holds rules in declaration order. It is not safe for concurrent use on its own;
// the owning room serializes access.
type RuleSet struct {
	rules   []*Rule
	index   map[string]*Rule
	limiter *ratelimit.Window
	check   Checker
}

// New builds a rule set. check may be nil.
func New(c clock.Clock, check Checker, defs ...Rule) *RuleSet {
	rs := &RuleSet{
		rules:   make([]*Rule, 0, len(defs)),
		index:   make(map[string]*Rule, len(defs)),
		limiter: ratelimit.NewWindow(c, ChangeWindow, MaxChanges),
		check:   check,
	}
	for i := range defs {
		r := defs[i]
		rs.rules = append(rs.rules, &r)
		rs.index[r.Key] = &r
	}
	return rs
}

// Info lists every rule for clients.
func (rs *RuleSet) Info() []Info {
	out := make([]Info, 0, len(rs.rules))
	for _, r := range rs.rules {
		out = append(out, Info{Key: r.Key, Value: r.Value, Description: r.Description, Type: r.Type})
	}
	return out
}

// Change validates and commits a new value for key.
func (rs *RuleSet) Change(key string, value interface{}) error {
	if !rs.limiter.Allow() {
		return codes.DontSpam
	}
	if strings.HasSuffix(key, "_descriptions") || strings.HasSuffix(key, "_type") {
		return codes.MetadataKey
	}
	r, ok := rs.index[key]
	if !ok {
		return codes.RuleNotFound
	}

	coerced, err := coerce(r.Type, value)
	if err != nil {
		return err
	}
	if rs.check != nil {
		if err := rs.check(rs, key, coerced); err != nil {
			return err
		}
	}
	r.Value = coerced
	return nil
}

// Int returns a number rule, or 0 if key is missing or not a number.
func (rs *RuleSet) Int(key string) int {
	if r, ok := rs.index[key]; ok {
		if v, ok := r.Value.(int); ok {
			return v
		}
	}
	return 0
}

// Seconds returns a number rule interpreted as seconds.
func (rs *RuleSet) Seconds(key string) time.Duration {
	return time.Duration(rs.Int(key)) * time.Second
}

// Bool returns a boolean rule, or false.
func (rs *RuleSet) Bool(key string) bool {
	if r, ok := rs.index[key]; ok {
		v, _ := r.Value.(bool)
		return v
	}
	return false
}

// String returns a string rule, or "".
func (rs *RuleSet) String(key string) string {
	if r, ok := rs.index[key]; ok {
		v, _ := r.Value.(string)
		return v
	}
	return ""
}

func coerce(t Type, value interface{}) (interface{}, error) {
	switch t {
	case TypeNumber:
		f, ok := toNumber(value)
		if !ok {
			return nil, codes.NotANumber
		}
		if f < 1 {
			return nil, codes.ValueTooLow
		}
		return int(math.Floor(f)), nil
	case TypeBoolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
		s, _ := value.(string)
		return s == "true", nil
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, codes.NotAString
		}
		return s, nil
	default:
		return nil, codes.UnknownType
	}
}

// toNumber accepts JSON numbers and numeric strings.
func toNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
