// Package nanbox implements the 64-bit NaN-boxed value encoding shared by the
// compiler and the code it emits. A Box either holds an IEEE-754 double
// verbatim, or hides a (tag, payload) pair inside the reserved quiet-NaN bit
// pattern:
//
//	[ 1 sign ][ 11 exponent ][ 1 quiet ][ 3 tag ][ 48 payload ]
//
// Floats are stored as-is. Integers carry a sign-extended 48-bit payload,
// booleans a 0/1 payload, strings and lists a 48-bit pointer payload. The
// code generator in pkg/codegen emits the same masks and shifts, so this
// package is the single definition of the format.
package nanbox

import "math"

const (
	// QNaN is the reserved quiet-NaN pattern marking a boxed value. A word is
	// a genuine double exactly when masking with QNaN does not yield QNaN.
	QNaN uint64 = 0x7FF8_0000_0000_0000

	// TagMask selects the 3-bit type tag (bits 48-50).
	TagMask uint64 = 0x0007_0000_0000_0000

	// PayloadMask selects the 48-bit payload.
	PayloadMask uint64 = 0x0000_FFFF_FFFF_FFFF

	// TagShift is the bit offset of the tag field.
	TagShift = 48

	// payloadSignBit is the sign bit of the 48-bit integer payload.
	payloadSignBit uint64 = 1 << 47
)

// Boxed type tags. Only non-float values carry one.
const (
	TagInt uint64 = iota
	TagBool
	TagString
	TagList
)

// Runtime type tags as handed to generated code (print dispatch, rebuild).
// Unlike the boxed tags above, this numbering includes FLOAT.
const (
	RuntimeInt int64 = iota
	RuntimeFloat
	RuntimeBool
	RuntimeString
	RuntimeList
)

// Box is one NaN-boxed 64-bit value.
type Box uint64

// FromInt boxes a signed integer, truncated to 48 bits.
func FromInt(v int64) Box {
	return Box(QNaN | TagInt<<TagShift | uint64(v)&PayloadMask)
}

// FromFloat boxes a double verbatim.
func FromFloat(v float64) Box {
	return Box(math.Float64bits(v))
}

// FromBool boxes a boolean as a 0/1 payload.
func FromBool(v bool) Box {
	var payload uint64
	if v {
		payload = 1
	}
	return Box(QNaN | TagBool<<TagShift | payload)
}

// FromStringPtr boxes a pointer to a NUL-terminated byte buffer. The pointer
// must fit in 48 bits, which holds for user-space addresses on the supported
// 64-bit targets.
func FromStringPtr(ptr uint64) Box {
	return Box(QNaN | TagString<<TagShift | ptr&PayloadMask)
}

// FromListPtr boxes a pointer to a list block laid out as an 8-byte element
// count followed by the elements, each itself a Box.
func FromListPtr(ptr uint64) Box {
	return Box(QNaN | TagList<<TagShift | ptr&PayloadMask)
}

// FromBits reinterprets a raw 64-bit word as a Box.
func FromBits(bits uint64) Box { return Box(bits) }

// Bits returns the raw 64-bit word.
func (b Box) Bits() uint64 { return uint64(b) }

// IsFloat reports whether b holds a genuine double rather than a boxed value.
func (b Box) IsFloat() bool { return uint64(b)&QNaN != QNaN }

// Tag returns the 3-bit type tag. Meaningful only when !IsFloat().
func (b Box) Tag() uint64 { return (uint64(b) & TagMask) >> TagShift }

// Payload returns the raw 48-bit payload. Meaningful only when !IsFloat().
func (b Box) Payload() uint64 { return uint64(b) & PayloadMask }

func (b Box) IsInt() bool    { return !b.IsFloat() && b.Tag() == TagInt }
func (b Box) IsBool() bool   { return !b.IsFloat() && b.Tag() == TagBool }
func (b Box) IsString() bool { return !b.IsFloat() && b.Tag() == TagString }
func (b Box) IsList() bool   { return !b.IsFloat() && b.Tag() == TagList }

// Int extracts the integer value, sign-extending the 48-bit payload.
func (b Box) Int() int64 {
	payload := b.Payload()
	if payload&payloadSignBit != 0 {
		payload |= ^PayloadMask
	}
	return int64(payload)
}

// Float extracts the double value. Meaningful only when IsFloat(), except
// that the raw bit pattern is always preserved exactly.
func (b Box) Float() float64 { return math.Float64frombits(uint64(b)) }

// Bool extracts the boolean value.
func (b Box) Bool() bool { return b.Payload() != 0 }

// StringPtr extracts the string buffer address.
func (b Box) StringPtr() uint64 { return b.Payload() }

// ListPtr extracts the list block address.
func (b Box) ListPtr() uint64 { return b.Payload() }

// RuntimeTag maps b onto the runtime tag numbering used by generated code.
func (b Box) RuntimeTag() int64 {
	if b.IsFloat() {
		return RuntimeFloat
	}
	switch b.Tag() {
	case TagBool:
		return RuntimeBool
	case TagString:
		return RuntimeString
	case TagList:
		return RuntimeList
	default:
		return RuntimeInt
	}
}

// FloatPayload converts b to the float domain, the form binary operators in
// generated code compute over: doubles pass through, integers and pointers
// convert numerically, booleans become 0.0 or 1.0.
func (b Box) FloatPayload() float64 {
	switch {
	case b.IsFloat():
		return b.Float()
	case b.IsInt():
		return float64(b.Int())
	case b.IsBool():
		if b.Bool() {
			return 1.0
		}
		return 0.0
	default:
		return float64(b.Payload())
	}
}
