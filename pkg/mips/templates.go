// Package mips lowers IR produced by pkg/ir into MIPS assembly text. The opcode-to-template
// mapping is loaded and parsed once at package init and kept as an in-memory map, rather
// than re-read and re-parsed on every instruction emission.
package mips

import (
	_ "embed"
	"encoding/json"

	"github.com/pkg/errors"
)

//go:embed target_code.json
var targetCodeJSON string

//go:embed runtime.s
var RuntimeSnippet string

// OpcodeEntry is one opcode's row in the template table. Lines is used for opcodes with
// no operand-type distinction (Label, Jump, Call, ...); ByType is used for opcodes whose
// emitted assembly depends on the operand type popped off the typed operand stack.
type OpcodeEntry struct {
	Lines  []string            `json:"lines,omitempty"`
	ByType map[string][]string `json:"by_type,omitempty"`
}

// ArchTemplates holds one target architecture's full opcode table plus its cast table, a
// two-level from_type -> into_type layer (the one opcode family with a nested shape).
type ArchTemplates struct {
	Opcodes map[string]OpcodeEntry         `json:"opcodes"`
	Cast    map[string]map[string][]string `json:"cast"`
}

// TargetCode is the whole architecture -> opcode -> operand_type? -> lines mapping,
// decoded once at package init from the embedded target_code.json.
var TargetCode = map[string]ArchTemplates{}

// loadErr holds the wrapped error if target_code.json failed to parse at init. Lower
// checks it before lowering any instruction, so a malformed template file surfaces as an
// ordinary returned error rather than a panic.
var loadErr error

func init() {
	if err := json.Unmarshal([]byte(targetCodeJSON), &TargetCode); err != nil {
		loadErr = errors.Wrap(err, "mips: parsing target_code.json")
	}
}

// Lookup returns the plain (operand-type-independent) template for opcode under arch.
func Lookup(arch, opcode string) ([]string, bool) {
	entry, ok := TargetCode[arch].Opcodes[opcode]
	if !ok || entry.Lines == nil {
		return nil, false
	}
	return entry.Lines, true
}

// LookupTyped returns the template for opcode under arch, selected by operandType.
func LookupTyped(arch, opcode, operandType string) ([]string, bool) {
	entry, ok := TargetCode[arch].Opcodes[opcode]
	if !ok {
		return nil, false
	}
	lines, ok := entry.ByType[operandType]
	return lines, ok
}

// LookupCast returns the template performing the (from, into) conversion under arch.
func LookupCast(arch, from, into string) ([]string, bool) {
	byFrom, ok := TargetCode[arch].Cast[from]
	if !ok {
		return nil, false
	}
	lines, ok := byFrom[into]
	return lines, ok
}
