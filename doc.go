/*
Package hser serializes object graphs into hash-indexed binary records and
back, using reflection instead of a declared wire schema.

A Record is four parallel pieces: slot hashes, slot byte positions, a byte
blob holding the slot payloads, and a table of external references (assets
whose identity lives elsewhere). The format version string is stored and
never interpreted.

# Addressing

Every slot is addressed by a structural hash:

	Hash(prefix, typeName, memberName) = prefix + StringHash(typeName) + StringHash(memberName)

StringHash is a polynomial rolling hash (seed 23, multiplier 31, wrapping at
32 bits). Root members use prefix 0. Members of a nested struct use the
struct's own hash as prefix. Element i of a list uses listHash / (i+2) as
prefix and the list member's name. Type names are reflect type strings with
one pointer level removed, so a field of type *T and a field of type T hash
the same. Arrays are named like slices of the same element type.

Hashes are not unique. On a collision, decoding reads the first slot with the
matching hash.

# Slots

A member produces, in catalog order:

 1. Leaf (numbers, bools, strings, byte slices, time.Time, math value types,
    Curve, BinaryMarshaler types): one slot with the encoded payload.
 2. External reference (pointer or interface type implementing Asset): one
    slot, a 4-byte index into Record.External, or -1 for nil.
 3. List (slice or array): a slot holding the 4-byte element count, then
    every element's slots.
 4. Struct: a marker slot with an empty payload, then the slots of its
    members.
 5. Nil pointer, or nil list element: a single empty slot hashed with type
    name "null".

All numbers are little-endian. Floats keep their exact bit patterns.

# Schema evolution

Decoding looks every member up by hash. Members missing from the record keep
their defaults, and slots no member asks for are ignored, so fields can be
added, removed, or renamed (with a tag) without migrating stored records.

# Live editing

RemoveMember and AddMember edit a top-level member of an encoded record
without decoding it, compacting and renumbering the external table as
needed.
*/
package hser
