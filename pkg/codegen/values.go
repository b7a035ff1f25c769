package codegen

import (
	"math"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"pylc/pkg/nanbox"
)

// Emission of the NaN-boxed value format defined in pkg/nanbox. At the
// generated-code level every value is an i64: doubles are bitcast in
// verbatim, everything else carries the quiet-NaN pattern, a 3-bit tag and a
// 48-bit payload. All encoding and decoding in emitted code goes through the
// helpers here, so no other file touches the bit format.

func i64Const(v uint64) *constant.Int {
	return constant.NewInt(types.I64, int64(v))
}

func f64Const(v float64) *constant.Float {
	return constant.NewFloat(types.Double, v)
}

// constInt emits the boxed form of an integer literal as a constant.
func (c *Compiler) constInt(v int64) value.Value {
	return i64Const(nanbox.FromInt(v).Bits())
}

// constFloat emits the boxed form of a float literal as a constant.
func (c *Compiler) constFloat(v float64) value.Value {
	return i64Const(math.Float64bits(v))
}

// constBool emits the boxed form of a boolean literal as a constant.
func (c *Compiler) constBool(v bool) value.Value {
	return i64Const(nanbox.FromBool(v).Bits())
}

// boxFloat boxes a double: the bits are the value.
func (c *Compiler) boxFloat(v value.Value) value.Value {
	return c.cur.NewBitCast(v, types.I64)
}

// boxInt boxes an i64, truncating the payload to 48 bits.
func (c *Compiler) boxInt(v value.Value) value.Value {
	payload := c.cur.NewAnd(v, i64Const(nanbox.PayloadMask))
	return c.cur.NewOr(i64Const(nanbox.QNaN|nanbox.TagInt<<nanbox.TagShift), payload)
}

// boxBool boxes an i1.
func (c *Compiler) boxBool(v value.Value) value.Value {
	payload := c.cur.NewZExt(v, types.I64)
	return c.cur.NewOr(i64Const(nanbox.QNaN|nanbox.TagBool<<nanbox.TagShift), payload)
}

// boxPtr boxes a pointer under the given tag (TagString or TagList).
func (c *Compiler) boxPtr(tag uint64, ptr value.Value) value.Value {
	asInt := c.cur.NewPtrToInt(ptr, types.I64)
	payload := c.cur.NewAnd(asInt, i64Const(nanbox.PayloadMask))
	return c.cur.NewOr(i64Const(nanbox.QNaN|tag<<nanbox.TagShift), payload)
}

// stringPtr extracts the byte-buffer pointer from a STRING-tagged value.
func (c *Compiler) stringPtr(obj value.Value) value.Value {
	payload := c.cur.NewAnd(obj, i64Const(nanbox.PayloadMask))
	return c.cur.NewIntToPtr(payload, i8Ptr)
}

// listPtr extracts the block pointer and stored element count from a
// LIST-tagged value. The block layout is [count: i64][elem 0]...[elem n-1].
func (c *Compiler) listPtr(obj value.Value) (ptr, count value.Value) {
	payload := c.cur.NewAnd(obj, i64Const(nanbox.PayloadMask))
	p := c.cur.NewIntToPtr(payload, i64Ptr)
	head := c.cur.NewGetElementPtr(types.I64, p, i64Const(0))
	head.InBounds = true
	n := c.cur.NewLoad(types.I64, head)
	return p, n
}

// isFloat emits the float test: (bits & QNaN) != QNaN.
func (c *Compiler) isFloat(obj value.Value) value.Value {
	masked := c.cur.NewAnd(obj, i64Const(nanbox.QNaN))
	return c.cur.NewICmp(enum.IPredNE, masked, i64Const(nanbox.QNaN))
}

// extractTag emits the runtime tag of a value in the external numbering
// (0=INT, 1=FLOAT, 2=BOOL, 3=STRING, 4=LIST).
func (c *Compiler) extractTag(obj value.Value) value.Value {
	isF := c.isFloat(obj)

	bits := c.cur.NewAnd(obj, i64Const(nanbox.TagMask))
	raw := c.cur.NewLShr(bits, i64Const(nanbox.TagShift))

	// Remap the boxed tag onto the external numbering; INT stays 0.
	isBool := c.cur.NewICmp(enum.IPredEQ, raw, i64Const(nanbox.TagBool))
	isStr := c.cur.NewICmp(enum.IPredEQ, raw, i64Const(nanbox.TagString))
	isList := c.cur.NewICmp(enum.IPredEQ, raw, i64Const(nanbox.TagList))

	mapped := c.cur.NewSelect(isBool, constant.NewInt(types.I64, nanbox.RuntimeBool), raw)
	mapped = c.cur.NewSelect(isStr, constant.NewInt(types.I64, nanbox.RuntimeString), mapped)
	mapped = c.cur.NewSelect(isList, constant.NewInt(types.I64, nanbox.RuntimeList), mapped)

	return c.cur.NewSelect(isF, constant.NewInt(types.I64, nanbox.RuntimeFloat), mapped)
}

// extractPayload emits the value in the float domain: doubles pass through,
// boxed payloads are sign-extended from 48 bits and converted.
func (c *Compiler) extractPayload(obj value.Value) value.Value {
	isF := c.isFloat(obj)
	asFloat := c.cur.NewBitCast(obj, types.Double)

	payload := c.cur.NewAnd(obj, i64Const(nanbox.PayloadMask))
	signBit := c.cur.NewLShr(payload, i64Const(47))
	isNeg := c.cur.NewICmp(enum.IPredEQ, signBit, i64Const(1))
	extended := c.cur.NewOr(payload, i64Const(^nanbox.PayloadMask))
	signed := c.cur.NewSelect(isNeg, extended, payload)
	asInt := c.cur.NewSIToFP(signed, types.Double)

	return c.cur.NewSelect(isF, asFloat, asInt)
}

// rebuild re-boxes a float-domain result under a runtime-selected tag. It is
// the inverse of extractTag/extractPayload: binary operators compute in the
// float domain and must then restore the kind their operands dictate.
func (c *Compiler) rebuild(tag, payload value.Value) value.Value {
	isF := c.cur.NewICmp(enum.IPredEQ, tag, constant.NewInt(types.I64, nanbox.RuntimeFloat))
	floatBits := c.cur.NewBitCast(payload, types.I64)

	// Map the external tag back onto the boxed numbering.
	isBool := c.cur.NewICmp(enum.IPredEQ, tag, constant.NewInt(types.I64, nanbox.RuntimeBool))
	isStr := c.cur.NewICmp(enum.IPredEQ, tag, constant.NewInt(types.I64, nanbox.RuntimeString))
	isList := c.cur.NewICmp(enum.IPredEQ, tag, constant.NewInt(types.I64, nanbox.RuntimeList))

	boxed := c.cur.NewSelect(isBool, i64Const(nanbox.TagBool), i64Const(nanbox.TagInt))
	boxed = c.cur.NewSelect(isStr, i64Const(nanbox.TagString), boxed)
	boxed = c.cur.NewSelect(isList, i64Const(nanbox.TagList), boxed)

	asInt := c.cur.NewFPToSI(payload, types.I64)
	masked := c.cur.NewAnd(asInt, i64Const(nanbox.PayloadMask))
	shifted := c.cur.NewShl(boxed, i64Const(nanbox.TagShift))
	withQNaN := c.cur.NewOr(i64Const(nanbox.QNaN), shifted)
	reboxed := c.cur.NewOr(withQNaN, masked)

	return c.cur.NewSelect(isF, floatBits, reboxed)
}

// truth emits the boolean test used by conditionals: payload != 0.0.
func (c *Compiler) truth(obj value.Value) value.Value {
	payload := c.extractPayload(obj)
	return c.cur.NewFCmp(enum.FPredONE, payload, f64Const(0))
}
