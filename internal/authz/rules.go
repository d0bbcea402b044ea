// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package authz

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"
)

// resolveAttribute walks a dotted attribute path against the request
// context. Recognized prefixes are subject., resource. and environment.;
// a bare path is shorthand for subject. Built-in fields resolve ahead of
// the free-form attribute maps so subject.id always means the subject id.
// An unknown path resolves to the absent Value, never an error.
func resolveAttribute(path string, sub *Subject, res Resource, env Environment) Value {
	scope := "subject"
	rest := path
	if i := strings.IndexByte(path, '.'); i >= 0 {
		switch path[:i] {
		case "subject", "resource", "environment":
			scope = path[:i]
			rest = path[i+1:]
		}
	}

	switch scope {
	case "subject":
		switch rest {
		case "id":
			return StringValue(sub.ID)
		case "mfa_enabled":
			return BoolValue(sub.MFAEnabled)
		case "trust_level":
			return StringValue(string(sub.TrustLevel))
		}
		if v, ok := sub.Attributes[rest]; ok {
			return v
		}
	case "resource":
		switch rest {
		case "type":
			return StringValue(res.Type)
		case "id":
			return StringValue(res.ID)
		}
		if v, ok := res.Attributes[rest]; ok {
			return v
		}
	case "environment":
		switch rest {
		case "time":
			return TimeValue(env.Time)
		case "ip":
			if env.IP.IsValid() {
				return IPValue(env.IP)
			}
			return Value{}
		case "request_id":
			return StringValue(env.RequestID)
		}
		if v, ok := env.Attributes[rest]; ok {
			return v
		}
	}
	return Value{}
}

// evalRule evaluates one rule against the request context.
//
// A missing attribute makes the rule false without error. A type mismatch
// between the attribute and the operator, or an unparseable operand,
// returns false plus an error the caller logs; the rule still counts as
// false so a malformed rule can never widen access.
func evalRule(r Rule, sub *Subject, res Resource, env Environment) (bool, error) {
	v := resolveAttribute(r.Attribute, sub, res, env)
	if v.Kind == KindAbsent {
		return false, nil
	}

	switch r.Operator {
	case OpEquals:
		return evalEquals(r, v)
	case OpContains:
		s, err := requireString(r, v)
		if err != nil {
			return false, err
		}
		return strings.Contains(s, r.operand()), nil
	case OpStartsWith:
		s, err := requireString(r, v)
		if err != nil {
			return false, err
		}
		return strings.HasPrefix(s, r.operand()), nil
	case OpEndsWith:
		s, err := requireString(r, v)
		if err != nil {
			return false, err
		}
		return strings.HasSuffix(s, r.operand()), nil
	case OpGreaterThan, OpLessThan:
		return evalOrdered(r, v)
	case OpInRange:
		return evalInRange(r, v)
	case OpTimeWindow:
		return evalTimeWindow(r, v)
	case OpIPRange:
		return evalIPRange(r, v)
	default:
		return false, fmt.Errorf("rule %s: unsupported operator %q", r.Attribute, r.Operator)
	}
}

func requireString(r Rule, v Value) (string, error) {
	if v.Kind != KindString {
		return "", fmt.Errorf("rule %s: operator %s needs a string attribute, got %s",
			r.Attribute, r.Operator, v.Kind)
	}
	return v.Str, nil
}

// evalEquals compares according to the attribute's kind, parsing the
// operand into that kind first.
func evalEquals(r Rule, v Value) (bool, error) {
	op := r.operand()
	switch v.Kind {
	case KindString:
		return v.Str == op, nil
	case KindNumber:
		n, err := strconv.ParseFloat(op, 64)
		if err != nil {
			return false, fmt.Errorf("rule %s: operand %q is not a number", r.Attribute, op)
		}
		return v.Num == n, nil
	case KindBool:
		b, err := strconv.ParseBool(op)
		if err != nil {
			return false, fmt.Errorf("rule %s: operand %q is not a bool", r.Attribute, op)
		}
		return v.Bool == b, nil
	case KindIP:
		ip, err := netip.ParseAddr(op)
		if err != nil {
			return false, fmt.Errorf("rule %s: operand %q is not an IP address", r.Attribute, op)
		}
		return v.IP == ip, nil
	case KindTime:
		t, err := time.Parse(time.RFC3339, op)
		if err != nil {
			return false, fmt.Errorf("rule %s: operand %q is not an RFC 3339 time", r.Attribute, op)
		}
		return v.Time.Equal(t), nil
	default:
		return false, nil
	}
}

// evalOrdered handles greaterThan and lessThan over numbers and times.
func evalOrdered(r Rule, v Value) (bool, error) {
	op := r.operand()
	switch v.Kind {
	case KindNumber:
		n, err := strconv.ParseFloat(op, 64)
		if err != nil {
			return false, fmt.Errorf("rule %s: operand %q is not a number", r.Attribute, op)
		}
		if r.Operator == OpGreaterThan {
			return v.Num > n, nil
		}
		return v.Num < n, nil
	case KindTime:
		t, err := time.Parse(time.RFC3339, op)
		if err != nil {
			return false, fmt.Errorf("rule %s: operand %q is not an RFC 3339 time", r.Attribute, op)
		}
		if r.Operator == OpGreaterThan {
			return v.Time.After(t), nil
		}
		return v.Time.Before(t), nil
	default:
		return false, fmt.Errorf("rule %s: operator %s needs a number or time attribute, got %s",
			r.Attribute, r.Operator, v.Kind)
	}
}

// evalInRange checks low <= attribute <= high, both bounds inclusive.
func evalInRange(r Rule, v Value) (bool, error) {
	if len(r.Values) != 2 {
		return false, fmt.Errorf("rule %s: inRange needs two operands, got %d", r.Attribute, len(r.Values))
	}
	lo, hi := r.Values[0], r.Values[1]
	switch v.Kind {
	case KindNumber:
		nlo, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return false, fmt.Errorf("rule %s: operand %q is not a number", r.Attribute, lo)
		}
		nhi, err := strconv.ParseFloat(hi, 64)
		if err != nil {
			return false, fmt.Errorf("rule %s: operand %q is not a number", r.Attribute, hi)
		}
		return v.Num >= nlo && v.Num <= nhi, nil
	case KindTime:
		tlo, err := time.Parse(time.RFC3339, lo)
		if err != nil {
			return false, fmt.Errorf("rule %s: operand %q is not an RFC 3339 time", r.Attribute, lo)
		}
		thi, err := time.Parse(time.RFC3339, hi)
		if err != nil {
			return false, fmt.Errorf("rule %s: operand %q is not an RFC 3339 time", r.Attribute, hi)
		}
		return !v.Time.Before(tlo) && !v.Time.After(thi), nil
	default:
		return false, fmt.Errorf("rule %s: inRange needs a number or time attribute, got %s",
			r.Attribute, v.Kind)
	}
}

// evalTimeWindow checks a time attribute against a daily HH:MM-HH:MM
// window. Windows that cross midnight (22:00-06:00) wrap; both bounds are
// inclusive. The comparison uses the attribute's own location.
func evalTimeWindow(r Rule, v Value) (bool, error) {
	if v.Kind != KindTime {
		return false, fmt.Errorf("rule %s: timeWindow needs a time attribute, got %s",
			r.Attribute, v.Kind)
	}
	start, end, err := parseWindow(r.operand())
	if err != nil {
		return false, fmt.Errorf("rule %s: %w", r.Attribute, err)
	}
	minute := v.Time.Hour()*60 + v.Time.Minute()
	if start <= end {
		return minute >= start && minute <= end, nil
	}
	return minute >= start || minute <= end, nil
}

// parseWindow parses HH:MM-HH:MM into minutes since midnight.
func parseWindow(s string) (start, end int, err error) {
	a, b, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("operand %q is not a HH:MM-HH:MM window", s)
	}
	start, err = parseClock(a)
	if err != nil {
		return 0, 0, fmt.Errorf("operand %q is not a HH:MM-HH:MM window", s)
	}
	end, err = parseClock(b)
	if err != nil {
		return 0, 0, fmt.Errorf("operand %q is not a HH:MM-HH:MM window", s)
	}
	return start, end, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// evalIPRange checks an IP attribute against a CIDR operand.
func evalIPRange(r Rule, v Value) (bool, error) {
	if v.Kind != KindIP {
		return false, fmt.Errorf("rule %s: ipRange needs an IP attribute, got %s",
			r.Attribute, v.Kind)
	}
	prefix, err := netip.ParsePrefix(r.operand())
	if err != nil {
		return false, fmt.Errorf("rule %s: operand %q is not a CIDR prefix", r.Attribute, r.operand())
	}
	return prefix.Contains(v.IP.Unmap()), nil
}

// ValidateRule rejects malformed rules at write time so evaluation only
// ever sees structurally sound ones. Operand values are checked for the
// operators whose operand grammar is fixed (inRange arity, timeWindow
// clock form, ipRange CIDR form); typed operand parsing for the remaining
// operators depends on the attribute kind and is deferred to evaluation.
func ValidateRule(field string, r Rule) error {
	if strings.TrimSpace(r.Attribute) == "" {
		return NewValidationError(field+".attribute", "must not be empty")
	}
	if !r.Operator.Valid() {
		return NewValidationError(field+".operator", fmt.Sprintf("unknown operator %q", r.Operator))
	}
	switch r.Operator {
	case OpInRange:
		if len(r.Values) != 2 {
			return NewValidationError(field+".values", "inRange requires exactly two values")
		}
	case OpTimeWindow:
		if len(r.Values) != 1 {
			return NewValidationError(field+".values", "timeWindow requires exactly one value")
		}
		if _, _, err := parseWindow(r.Values[0]); err != nil {
			return NewValidationError(field+".values", err.Error())
		}
	case OpIPRange:
		if len(r.Values) != 1 {
			return NewValidationError(field+".values", "ipRange requires exactly one value")
		}
		if _, err := netip.ParsePrefix(r.Values[0]); err != nil {
			return NewValidationError(field+".values", fmt.Sprintf("value %q is not a CIDR prefix", r.Values[0]))
		}
	default:
		if len(r.Values) != 1 {
			return NewValidationError(field+".values", string(r.Operator)+" requires exactly one value")
		}
	}
	return nil
}
