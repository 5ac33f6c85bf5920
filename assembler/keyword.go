package assembler

import "strings"

// KeywordCategory partitions the static keyword table by the kind of
// grammar production a keyword can start: a directive, a register
// sub-view, a status flag, a branch condition, or an instruction
// mnemonic.
type KeywordCategory int

const (
	KeywordNone KeywordCategory = iota
	KeywordDirective
	KeywordRegister
	KeywordFlag
	KeywordCondition
	KeywordInstruction
)

// Keyword is one entry of the static TMM keyword table: a lowercase
// spelling, the category it belongs to, a sub-id specific to that
// category (directive id / register id / flag id / condition id /
// instruction opcode), and — for instructions only — the number of
// comma-separated operands the mnemonic expects.
type Keyword struct {
	Name     string
	Category KeywordCategory
	SubID    byte
	Operands int
}

// Directive sub-ids, assigned in the order they appear in the keyword
// table.
const (
	DirectiveOrg byte = iota
	DirectiveInclude
	DirectiveIncbin
	DirectiveDefine
	DirectiveUndef
	DirectiveIf
	DirectiveElse
	DirectiveEndif
	DirectiveByte
	DirectiveWord
	DirectiveLong
)

// Flag sub-ids mirror the CPU's packed status byte, §3.1.
const (
	FlagZ byte = iota
	FlagN
	FlagH
	FlagC
	FlagO
	FlagU
	FlagL
	FlagS
)

// keywordTable is the static TMM keyword table, reproduced from
// original_source/projects/tmm/src/tmm.keyword.c. Order matches the
// ground truth; notably the condition named "always" (TM_CONDITION_N)
// spells as "nc" in source text, not "n" — "n" is reserved for the
// negative-flag keyword.
var keywordTable = []Keyword{
	{"org", KeywordDirective, DirectiveOrg, 0},
	{"include", KeywordDirective, DirectiveInclude, 0},
	{"incbin", KeywordDirective, DirectiveIncbin, 0},
	{"define", KeywordDirective, DirectiveDefine, 0},
	{"undef", KeywordDirective, DirectiveUndef, 0},
	{"if", KeywordDirective, DirectiveIf, 0},
	{"else", KeywordDirective, DirectiveElse, 0},
	{"endif", KeywordDirective, DirectiveEndif, 0},
	{"byte", KeywordDirective, DirectiveByte, 0},
	{"word", KeywordDirective, DirectiveWord, 0},
	{"long", KeywordDirective, DirectiveLong, 0},

	{"a", KeywordRegister, 0b0000, 0},
	{"aw", KeywordRegister, 0b0001, 0},
	{"ah", KeywordRegister, 0b0010, 0},
	{"al", KeywordRegister, 0b0011, 0},
	{"b", KeywordRegister, 0b0100, 0},
	{"bw", KeywordRegister, 0b0101, 0},
	{"bh", KeywordRegister, 0b0110, 0},
	{"bl", KeywordRegister, 0b0111, 0},
	{"c", KeywordRegister, 0b1000, 0},
	{"cw", KeywordRegister, 0b1001, 0},
	{"ch", KeywordRegister, 0b1010, 0},
	{"cl", KeywordRegister, 0b1011, 0},
	{"d", KeywordRegister, 0b1100, 0},
	{"dw", KeywordRegister, 0b1101, 0},
	{"dh", KeywordRegister, 0b1110, 0},
	{"dl", KeywordRegister, 0b1111, 0},

	{"z", KeywordFlag, FlagZ, 0},
	{"n", KeywordFlag, FlagN, 0},
	{"h", KeywordFlag, FlagH, 0},
	// NOTE: "c" is shadowed by the register-C keyword above. The lexer and
	// parser look keywords up with KeywordNone, so "c" always resolves to
	// the register entry there; this flag entry is reached only by a
	// KeywordFlag-scoped lookup, matching tmm_lookup_keyword's
	// type-filtered linear scan.
	{"c", KeywordFlag, FlagC, 0},
	{"o", KeywordFlag, FlagO, 0},
	{"u", KeywordFlag, FlagU, 0},
	{"l", KeywordFlag, FlagL, 0},
	{"s", KeywordFlag, FlagS, 0},

	{"nc", KeywordCondition, byte(ConditionAlways), 0},
	{"cs", KeywordCondition, byte(ConditionCarrySet), 0},
	{"cc", KeywordCondition, byte(ConditionCarryClear), 0},
	{"zs", KeywordCondition, byte(ConditionZeroSet), 0},
	{"zc", KeywordCondition, byte(ConditionZeroClear), 0},
	{"os", KeywordCondition, byte(ConditionOverflowSet), 0},
	{"us", KeywordCondition, byte(ConditionUnderflowSet), 0},

	{"nop", KeywordInstruction, 0x00, 0},
	{"stop", KeywordInstruction, 0x01, 0},
	{"halt", KeywordInstruction, 0x02, 0},
	{"sec", KeywordInstruction, 0x03, 1},
	{"cec", KeywordInstruction, 0x04, 0},
	{"di", KeywordInstruction, 0x05, 0},
	{"ei", KeywordInstruction, 0x06, 0},
	{"daa", KeywordInstruction, 0x07, 0},
	{"cpl", KeywordInstruction, 0x08, 0},
	{"cpw", KeywordInstruction, 0x09, 0},
	{"cpb", KeywordInstruction, 0x0A, 0},
	{"scf", KeywordInstruction, 0x0B, 0},
	{"ccf", KeywordInstruction, 0x0C, 0},
	{"ld", KeywordInstruction, 0x10, 2},
	{"ldq", KeywordInstruction, 0x13, 2},
	{"ldh", KeywordInstruction, 0x15, 2},
	{"st", KeywordInstruction, 0x17, 2},
	{"stq", KeywordInstruction, 0x19, 2},
	{"sth", KeywordInstruction, 0x1B, 2},
	{"mv", KeywordInstruction, 0x1D, 2},
	{"push", KeywordInstruction, 0x1E, 1},
	{"pop", KeywordInstruction, 0x1F, 1},
	{"jmp", KeywordInstruction, 0x20, 2},
	{"jpb", KeywordInstruction, 0x22, 2},
	{"call", KeywordInstruction, 0x23, 2},
	{"rst", KeywordInstruction, 0x24, 1},
	{"ret", KeywordInstruction, 0x25, 1},
	{"reti", KeywordInstruction, 0x26, 0},
	{"inc", KeywordInstruction, 0x30, 1},
	{"dec", KeywordInstruction, 0x32, 1},
	{"add", KeywordInstruction, 0x34, 2},
	{"adc", KeywordInstruction, 0x37, 2},
	{"sub", KeywordInstruction, 0x3A, 2},
	{"sbc", KeywordInstruction, 0x3D, 2},
	{"and", KeywordInstruction, 0x40, 2},
	{"or", KeywordInstruction, 0x43, 2},
	{"xor", KeywordInstruction, 0x46, 2},
	{"cmp", KeywordInstruction, 0x49, 2},
	{"sla", KeywordInstruction, 0x50, 1},
	{"sra", KeywordInstruction, 0x52, 1},
	{"srl", KeywordInstruction, 0x54, 1},
	{"rl", KeywordInstruction, 0x56, 1},
	{"rlc", KeywordInstruction, 0x58, 1},
	{"rr", KeywordInstruction, 0x5A, 1},
	{"rrc", KeywordInstruction, 0x5C, 1},
	{"bit", KeywordInstruction, 0x60, 2},
	{"set", KeywordInstruction, 0x62, 2},
	{"res", KeywordInstruction, 0x64, 2},
	{"swap", KeywordInstruction, 0x66, 1},
	{"jps", KeywordInstruction, 0xFF, 0},
}

// conditionID mirrors common.Condition without importing the root
// package (assembler must not depend on package main); the numeric
// values are kept in lockstep with common.go's Condition enumeration.
type conditionID byte

const (
	ConditionAlways conditionID = iota
	ConditionCarrySet
	ConditionCarryClear
	ConditionZeroSet
	ConditionZeroClear
	ConditionOverflowSet
	ConditionUnderflowSet
)

// LookupKeyword finds the keyword table entry named name (case-sensitive;
// callers are expected to have already lowercased identifiers per §4.3) in
// the given category, or every category when category is KeywordNone. It
// returns nil when no entry matches, mirroring tmm_lookup_keyword's
// sentinel-returning linear scan but as an idiomatic nil.
func LookupKeyword(name string, category KeywordCategory) *Keyword {
	for i := range keywordTable {
		kw := &keywordTable[i]
		if category != KeywordNone && kw.Category != category {
			continue
		}
		if kw.Name == name {
			return kw
		}
	}
	return nil
}

// LookupKeywordFold is LookupKeyword case-folded to lowercase, for callers
// that have not already normalized an identifier's case.
func LookupKeywordFold(name string, category KeywordCategory) *Keyword {
	return LookupKeyword(strings.ToLower(name), category)
}

func (c KeywordCategory) String() string {
	switch c {
	case KeywordNone:
		return "none"
	case KeywordDirective:
		return "directive"
	case KeywordRegister:
		return "register"
	case KeywordFlag:
		return "flag"
	case KeywordCondition:
		return "condition"
	case KeywordInstruction:
		return "instruction"
	default:
		return "unknown"
	}
}
