package mips

import "testing"

func TestLookupPlainOpcode(t *testing.T) {
	lines, ok := Lookup("mips", "jump")
	if !ok {
		t.Fatal("expected a template for the \"jump\" opcode")
	}
	if len(lines) == 0 {
		t.Fatal("expected at least one line in the \"jump\" template")
	}
}

func TestLookupTypedOpcode(t *testing.T) {
	lines, ok := LookupTyped("mips", "push", "int")
	if !ok {
		t.Fatal("expected a template for push/int")
	}
	if len(lines) == 0 {
		t.Fatal("expected at least one line in the push/int template")
	}
}

func TestLookupTypedMissingOperandType(t *testing.T) {
	if _, ok := LookupTyped("mips", "bitwise_and", "float"); ok {
		t.Fatal("bitwise_and has no float template; LookupTyped should report not found")
	}
}

func TestLookupCast(t *testing.T) {
	lines, ok := LookupCast("mips", "byte", "int")
	if !ok {
		t.Fatal("expected a byte->int cast template")
	}
	if len(lines) == 0 {
		t.Fatal("expected at least one line in the byte->int cast template")
	}
}

func TestLookupCastUnsupportedPair(t *testing.T) {
	if _, ok := LookupCast("mips", "bool", "int"); ok {
		t.Fatal("bool->int has no cast template; LookupCast should report not found")
	}
}

func TestLookupUnknownArch(t *testing.T) {
	if _, ok := Lookup("x64", "jump"); ok {
		t.Fatal("expected no templates for an unimplemented architecture")
	}
}
