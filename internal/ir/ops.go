package ir

import "strings"

// DialectFHE is the dialect prefix of the encrypted-arithmetic operator family.
const DialectFHE = "fhe"

// OpKind is the closed enumeration of operators the analysis understands.
// Operations whose name maps to no kind are OpUnknown.
type OpKind int

const (
	OpUnknown OpKind = iota
	OpConstant
	OpZero
	OpAddEint
	OpAddEintInt
	OpSubIntEint
	OpMulEintInt
	OpDotEintInt
	OpApplyLookupTable
)

// Operator names, dialect-qualified.
const (
	NameConstant         = "arith.constant"
	NameZero             = "fhe.zero"
	NameAddEint          = "fhe.add_eint"
	NameAddEintInt       = "fhe.add_eint_int"
	NameSubIntEint       = "fhe.sub_int_eint"
	NameMulEintInt       = "fhe.mul_eint_int"
	NameDotEintInt       = "fhe.dot_eint_int"
	NameApplyLookupTable = "fhe.apply_lookup_table"
)

var kindByName = map[string]OpKind{
	NameConstant:         OpConstant,
	NameZero:             OpZero,
	NameAddEint:          OpAddEint,
	NameAddEintInt:       OpAddEintInt,
	NameSubIntEint:       OpSubIntEint,
	NameMulEintInt:       OpMulEintInt,
	NameDotEintInt:       OpDotEintInt,
	NameApplyLookupTable: OpApplyLookupTable,
}

var nameByKind = func() map[OpKind]string {
	m := make(map[OpKind]string, len(kindByName))
	for name, k := range kindByName {
		m[k] = name
	}
	return m
}()

// KindOf returns the OpKind for a dialect-qualified operator name.
func KindOf(name string) OpKind {
	return kindByName[name]
}

// String returns the operator name of k, or "unknown".
func (k OpKind) String() string {
	if name, ok := nameByKind[k]; ok {
		return name
	}
	return "unknown"
}

// FHEKinds returns every kind of the encrypted-arithmetic family in
// declaration order.
func FHEKinds() []OpKind {
	return []OpKind{
		OpZero,
		OpAddEint,
		OpAddEintInt,
		OpSubIntEint,
		OpMulEintInt,
		OpDotEintInt,
		OpApplyLookupTable,
	}
}

// Dialect returns the dialect prefix of an operator name ("fhe" for
// "fhe.add_eint"), or "" if the name is unqualified.
func Dialect(name string) string {
	i := strings.IndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[:i]
}

// IsFHE reports whether name belongs to the encrypted-arithmetic family.
func IsFHE(name string) bool {
	return Dialect(name) == DialectFHE
}
