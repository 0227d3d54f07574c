package hser

import "sync"

const (
	stringHashSeed       = 23
	stringHashMultiplier = 31

	// nullTypeName replaces the type name when hashing a slot that stands
	// for a nil value, so that a nil never shadows a real value's slot.
	nullTypeName = "null"
)

var stringHashCache sync.Map // string -> int32

// StringHash is the polynomial rolling hash used to address slots. Arithmetic
// wraps at 32 bits. The empty string hashes to 0.
func StringHash(s string) int32 {
	if s == "" {
		return 0
	}
	if v, ok := stringHashCache.Load(s); ok {
		return v.(int32)
	}
	h := stringHashUncached(s)
	actual, _ := stringHashCache.LoadOrStore(s, h)
	return actual.(int32)
}

func stringHashUncached(s string) int32 {
	h := int32(stringHashSeed)
	for _, c := range s {
		h = h*stringHashMultiplier + int32(c)
	}
	return h
}

// Hash computes the structural address of a member: the hash of its
// enclosing composite (0 at the root) plus the hashes of its type and name.
//
// Distinct members are not guaranteed to get distinct hashes. A collision
// makes the deserializer read the first matching slot for both members.
func Hash(prefix int32, typeName, memberName string) int32 {
	return prefix + StringHash(typeName) + StringHash(memberName)
}

// elementPrefix is the prefix handed to the i-th element of a list whose
// count slot has the given hash. Dividing by i+2 spreads siblings apart; it
// does not make them unique.
func elementPrefix(listHash int32, i int) int32 {
	return listHash / int32(i+2)
}

func nullHash(prefix int32, memberName string) int32 {
	return Hash(prefix, nullTypeName, memberName)
}
