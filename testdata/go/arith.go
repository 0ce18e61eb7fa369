package arith

func inc(x int32) int32 {
	return x + 1
}

func isSmall(x uint8) bool {
	limit := uint8(10)
	return x < limit
}

func seven() int64 {
	var a int64 = 3
	a += 4
	return a
}

func below(a, b int16) bool {
	return a+1 < b
}

func clamp(x int) int {
	if x < 0 {
		return 0
	}
	return x
}

func divmod(a, b uint32) (uint32, uint32) {
	return a / b, a % b
}

func scale(x float64) float64 {
	return x
}

type counter struct{ n int }

func (c *counter) bump(by int) int {
	return by
}
