package ast

import "testing"

func TestTypeFromString(t *testing.T) {
	cases := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"int", Int, false},
		{"string", String, false},
		{"double", Double, false},
		{"nope", "", true},
	}
	for _, c := range cases {
		got, err := TypeFromString(c.in)
		if (err != nil) != c.wantErr {
			t.Fatalf("TypeFromString(%q) error = %v, wantErr %v", c.in, err, c.wantErr)
		}
		if got != c.want {
			t.Fatalf("TypeFromString(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTypeIsNumericAndIntegral(t *testing.T) {
	cases := []struct {
		t             Type
		numeric, int_ bool
	}{
		{Byte, true, true},
		{Int, true, true},
		{Long, true, true},
		{Float, true, false},
		{Double, true, false},
		{Char, false, false},
		{Bool, false, false},
		{String, false, false},
	}
	for _, c := range cases {
		if got := c.t.IsNumeric(); got != c.numeric {
			t.Errorf("%s.IsNumeric() = %v, want %v", c.t, got, c.numeric)
		}
		if got := c.t.IsIntegral(); got != c.int_ {
			t.Errorf("%s.IsIntegral() = %v, want %v", c.t, got, c.int_)
		}
	}
}

// BinaryOperatorFromString preserves the inverted shift-operator mapping exactly: '<<'
// yields RightShiftLogical, '>>' yields LeftShiftLogical, '>>>' yields RightShiftArithmetic.
func TestBinaryOperatorFromStringShiftInversion(t *testing.T) {
	cases := []struct {
		token string
		want  Operator
	}{
		{"<<", RightShiftLogical},
		{">>", LeftShiftLogical},
		{">>>", RightShiftArithmetic},
		{"+", Addition},
		{"&", BitAnd},
	}
	for _, c := range cases {
		got, err := BinaryOperatorFromString(c.token)
		if err != nil {
			t.Fatalf("BinaryOperatorFromString(%q) unexpected error: %v", c.token, err)
		}
		if got != c.want {
			t.Errorf("BinaryOperatorFromString(%q) = %q, want %q", c.token, got, c.want)
		}
	}

	if _, err := BinaryOperatorFromString("%"); err == nil {
		t.Error("expected an error for an unknown binary operator token")
	}
}

func TestUnaryOperatorFromString(t *testing.T) {
	cases := []struct {
		token string
		want  Operator
	}{
		{"!", NegateLogical},
		{"-", NegateNumerical},
		{"~", Complement},
	}
	for _, c := range cases {
		got, err := UnaryOperatorFromString(c.token)
		if err != nil {
			t.Fatalf("UnaryOperatorFromString(%q) unexpected error: %v", c.token, err)
		}
		if got != c.want {
			t.Errorf("UnaryOperatorFromString(%q) = %q, want %q", c.token, got, c.want)
		}
	}
}

func TestIntFromLiteral(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0b1010", 10},
		{"0x05", 5},
		{"15", 15},
		{"42l", 42},
		{"7b", 7},
		{"0b1010l", 10},
	}
	for _, c := range cases {
		got, err := IntFromLiteral(c.in)
		if err != nil {
			t.Fatalf("IntFromLiteral(%q) unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("IntFromLiteral(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestIntFromLiteralSumMatchesSpecExample(t *testing.T) {
	a, err := IntFromLiteral("0b1010")
	if err != nil {
		t.Fatal(err)
	}
	b, err := IntFromLiteral("0x05")
	if err != nil {
		t.Fatal(err)
	}
	if a+b != 15 {
		t.Errorf("0b1010 + 0x05 = %d, want 15", a+b)
	}
}

func TestBoolFromLiteral(t *testing.T) {
	if v, err := BoolFromLiteral("true"); err != nil || !v {
		t.Errorf("BoolFromLiteral(true) = %v, %v", v, err)
	}
	if v, err := BoolFromLiteral("false"); err != nil || v {
		t.Errorf("BoolFromLiteral(false) = %v, %v", v, err)
	}
	if _, err := BoolFromLiteral("maybe"); err == nil {
		t.Error("expected an error for a non-boolean literal")
	}
}

func TestMutabilityFromString(t *testing.T) {
	if m, err := MutabilityFromString("mut"); err != nil || m != Mutable {
		t.Errorf("MutabilityFromString(mut) = %v, %v", m, err)
	}
	if m, err := MutabilityFromString("const"); err != nil || m != Constant {
		t.Errorf("MutabilityFromString(const) = %v, %v", m, err)
	}
	if _, err := MutabilityFromString(""); err == nil {
		t.Error("expected an error for an empty mutability modifier")
	}
}
