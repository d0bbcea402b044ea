// Aegis - Identity and Access Management Decision Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aegis

package authz

import (
	"net/netip"
	"testing"
	"time"
)

func testContext() (*Subject, Resource, Environment) {
	sub := &Subject{
		ID:         "user-1",
		TrustLevel: TrustMFA,
		MFAEnabled: true,
		Attributes: map[string]Value{
			"department":      StringValue("engineering"),
			"clearance_level": NumberValue(3),
			"contractor":      BoolValue(false),
			"email":           StringValue("dev@example.com"),
		},
	}
	res := Resource{
		Type: "document",
		ID:   "doc-9",
		Attributes: map[string]Value{
			"owner_id":       StringValue("user-1"),
			"classification": StringValue("internal"),
			"size_mb":        NumberValue(12.5),
		},
	}
	env := Environment{
		Time: time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		IP:   netip.MustParseAddr("10.1.2.3"),
		Attributes: map[string]Value{
			"channel": StringValue("web"),
		},
	}
	return sub, res, env
}

func TestResolveAttribute(t *testing.T) {
	sub, res, env := testContext()

	tests := []struct {
		name string
		path string
		want Value
	}{
		{"subject builtin id", "subject.id", StringValue("user-1")},
		{"subject builtin trust level", "subject.trust_level", StringValue("mfa")},
		{"subject builtin mfa", "subject.mfa_enabled", BoolValue(true)},
		{"subject attribute", "subject.department", StringValue("engineering")},
		{"bare path defaults to subject", "department", StringValue("engineering")},
		{"resource builtin type", "resource.type", StringValue("document")},
		{"resource attribute", "resource.classification", StringValue("internal")},
		{"environment builtin ip", "environment.ip", IPValue(netip.MustParseAddr("10.1.2.3"))},
		{"environment attribute", "environment.channel", StringValue("web")},
		{"unknown attribute is absent", "subject.badge_color", Value{}},
		{"unknown scope treated as subject attribute", "device.os", Value{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveAttribute(tt.path, sub, res, env)
			if got != tt.want {
				t.Errorf("resolveAttribute(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
		})
	}
}

func TestEvalRuleOperators(t *testing.T) {
	sub, res, env := testContext()

	tests := []struct {
		name    string
		rule    Rule
		want    bool
		wantErr bool
	}{
		{
			name: "equals string match",
			rule: Rule{Attribute: "subject.department", Operator: OpEquals, Values: []string{"engineering"}},
			want: true,
		},
		{
			name: "equals string miss",
			rule: Rule{Attribute: "subject.department", Operator: OpEquals, Values: []string{"sales"}},
			want: false,
		},
		{
			name: "equals number match",
			rule: Rule{Attribute: "subject.clearance_level", Operator: OpEquals, Values: []string{"3"}},
			want: true,
		},
		{
			name: "equals bool match",
			rule: Rule{Attribute: "subject.contractor", Operator: OpEquals, Values: []string{"false"}},
			want: true,
		},
		{
			name: "equals ip match",
			rule: Rule{Attribute: "environment.ip", Operator: OpEquals, Values: []string{"10.1.2.3"}},
			want: true,
		},
		{
			name:    "equals number with bad operand",
			rule:    Rule{Attribute: "subject.clearance_level", Operator: OpEquals, Values: []string{"high"}},
			want:    false,
			wantErr: true,
		},
		{
			name: "missing attribute is false without error",
			rule: Rule{Attribute: "subject.badge_color", Operator: OpEquals, Values: []string{"blue"}},
			want: false,
		},
		{
			name: "contains match",
			rule: Rule{Attribute: "subject.email", Operator: OpContains, Values: []string{"@example."}},
			want: true,
		},
		{
			name:    "contains on number is a type mismatch",
			rule:    Rule{Attribute: "subject.clearance_level", Operator: OpContains, Values: []string{"3"}},
			want:    false,
			wantErr: true,
		},
		{
			name: "startsWith match",
			rule: Rule{Attribute: "subject.email", Operator: OpStartsWith, Values: []string{"dev@"}},
			want: true,
		},
		{
			name: "endsWith match",
			rule: Rule{Attribute: "subject.email", Operator: OpEndsWith, Values: []string{".com"}},
			want: true,
		},
		{
			name: "greaterThan number true",
			rule: Rule{Attribute: "subject.clearance_level", Operator: OpGreaterThan, Values: []string{"2"}},
			want: true,
		},
		{
			name: "greaterThan number false on equal",
			rule: Rule{Attribute: "subject.clearance_level", Operator: OpGreaterThan, Values: []string{"3"}},
			want: false,
		},
		{
			name: "lessThan time true",
			rule: Rule{Attribute: "environment.time", Operator: OpLessThan, Values: []string{"2026-03-14T11:00:00Z"}},
			want: true,
		},
		{
			name:    "greaterThan on string is a type mismatch",
			rule:    Rule{Attribute: "subject.department", Operator: OpGreaterThan, Values: []string{"5"}},
			want:    false,
			wantErr: true,
		},
		{
			name: "inRange number inclusive low bound",
			rule: Rule{Attribute: "subject.clearance_level", Operator: OpInRange, Values: []string{"3", "5"}},
			want: true,
		},
		{
			name: "inRange number inclusive high bound",
			rule: Rule{Attribute: "subject.clearance_level", Operator: OpInRange, Values: []string{"1", "3"}},
			want: true,
		},
		{
			name: "inRange number outside",
			rule: Rule{Attribute: "subject.clearance_level", Operator: OpInRange, Values: []string{"4", "9"}},
			want: false,
		},
		{
			name: "inRange time inside",
			rule: Rule{Attribute: "environment.time", Operator: OpInRange, Values: []string{"2026-03-14T00:00:00Z", "2026-03-15T00:00:00Z"}},
			want: true,
		},
		{
			name:    "inRange with one operand",
			rule:    Rule{Attribute: "subject.clearance_level", Operator: OpInRange, Values: []string{"1"}},
			want:    false,
			wantErr: true,
		},
		{
			name: "timeWindow inside",
			rule: Rule{Attribute: "environment.time", Operator: OpTimeWindow, Values: []string{"09:00-17:00"}},
			want: true,
		},
		{
			name: "timeWindow outside",
			rule: Rule{Attribute: "environment.time", Operator: OpTimeWindow, Values: []string{"12:00-13:00"}},
			want: false,
		},
		{
			name: "timeWindow inclusive start",
			rule: Rule{Attribute: "environment.time", Operator: OpTimeWindow, Values: []string{"10:30-11:00"}},
			want: true,
		},
		{
			name: "timeWindow wraps midnight inside",
			rule: Rule{Attribute: "environment.time", Operator: OpTimeWindow, Values: []string{"22:00-11:00"}},
			want: true,
		},
		{
			name: "timeWindow wraps midnight outside",
			rule: Rule{Attribute: "environment.time", Operator: OpTimeWindow, Values: []string{"22:00-06:00"}},
			want: false,
		},
		{
			name:    "timeWindow on string is a type mismatch",
			rule:    Rule{Attribute: "subject.department", Operator: OpTimeWindow, Values: []string{"09:00-17:00"}},
			want:    false,
			wantErr: true,
		},
		{
			name: "ipRange inside",
			rule: Rule{Attribute: "environment.ip", Operator: OpIPRange, Values: []string{"10.1.0.0/16"}},
			want: true,
		},
		{
			name: "ipRange outside",
			rule: Rule{Attribute: "environment.ip", Operator: OpIPRange, Values: []string{"192.168.0.0/16"}},
			want: false,
		},
		{
			name:    "ipRange bad prefix",
			rule:    Rule{Attribute: "environment.ip", Operator: OpIPRange, Values: []string{"10.1.0.0/33"}},
			want:    false,
			wantErr: true,
		},
		{
			name:    "unknown operator",
			rule:    Rule{Attribute: "subject.department", Operator: Operator("regex"), Values: []string{".*"}},
			want:    false,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalRule(tt.rule, sub, res, env)
			if (err != nil) != tt.wantErr {
				t.Fatalf("evalRule() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("evalRule() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvalRuleIPv6InRange(t *testing.T) {
	sub, res, env := testContext()
	env.IP = netip.MustParseAddr("2001:db8::42")

	rule := Rule{Attribute: "environment.ip", Operator: OpIPRange, Values: []string{"2001:db8::/32"}}
	got, err := evalRule(rule, sub, res, env)
	if err != nil {
		t.Fatalf("evalRule() error = %v", err)
	}
	if !got {
		t.Error("expected IPv6 address inside its prefix to match")
	}
}

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{"valid equals", Rule{Attribute: "subject.department", Operator: OpEquals, Values: []string{"eng"}}, false},
		{"valid inRange", Rule{Attribute: "subject.level", Operator: OpInRange, Values: []string{"1", "5"}}, false},
		{"valid timeWindow", Rule{Attribute: "environment.time", Operator: OpTimeWindow, Values: []string{"09:00-17:00"}}, false},
		{"valid ipRange", Rule{Attribute: "environment.ip", Operator: OpIPRange, Values: []string{"10.0.0.0/8"}}, false},
		{"empty attribute", Rule{Attribute: "  ", Operator: OpEquals, Values: []string{"x"}}, true},
		{"unknown operator", Rule{Attribute: "subject.a", Operator: Operator("not_equals"), Values: []string{"x"}}, true},
		{"equals missing operand", Rule{Attribute: "subject.a", Operator: OpEquals}, true},
		{"equals extra operands", Rule{Attribute: "subject.a", Operator: OpEquals, Values: []string{"x", "y"}}, true},
		{"inRange single operand", Rule{Attribute: "subject.a", Operator: OpInRange, Values: []string{"1"}}, true},
		{"timeWindow malformed", Rule{Attribute: "environment.time", Operator: OpTimeWindow, Values: []string{"9am-5pm"}}, true},
		{"timeWindow out of range hour", Rule{Attribute: "environment.time", Operator: OpTimeWindow, Values: []string{"25:00-26:00"}}, true},
		{"ipRange not cidr", Rule{Attribute: "environment.ip", Operator: OpIPRange, Values: []string{"10.0.0.1"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRule("rule", tt.rule)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRule() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsValidation(err) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"string", StringValue("x"), "x"},
		{"number trims zeroes", NumberValue(2.5), "2.5"},
		{"integer number", NumberValue(3), "3"},
		{"bool", BoolValue(true), "true"},
		{"ip", IPValue(netip.MustParseAddr("10.0.0.1")), "10.0.0.1"},
		{"absent", Value{}, "<absent>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
