// Package witness turns machine execution into proof witness data.
//
// For every instruction it produces the new register state plus the
// exact set of rows the constraint system will later verify: one CPU
// row per cycle, one memory row per logged access, one logic row per
// bitwise operation. Values an opcode consumes or produces cannot be
// reconstructed afterwards; they are recorded exactly once, in a
// fixed channel slot, at generation time. A mismatch between what is
// recorded here and what the constraints expect is a soundness bug,
// so the emission order and channel assignment of every handler are
// part of its contract, not an implementation detail.
package witness
