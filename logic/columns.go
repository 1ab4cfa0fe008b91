package logic

// Column layout of the bitwise-logic table. The first three columns
// are a one-hot operation selector, followed by the full boolean
// decomposition of both 256-bit inputs and the result packed as eight
// 32-bit limbs.
const (
	IsAnd = 0
	IsOr  = 1
	IsXor = 2

	Input0 = 3
	Input1 = Input0 + 256
	Result = Input1 + 256

	NumColumns = Result + 8
)
