// Package chunking assigns primary-key tuples to chunk ids (C3).
package chunking

// ID computes chunk_id = |fasthash64(pk_bytes)| / max(width, 1) (§4.3).
//
// fastHash64PK is the caller-supplied fasthash64(pk_bytes), taken as the
// bit pattern of a signed 64-bit integer (matching Postgres's
// hashtextextended, which is what the reference implementation takes the
// absolute value of). The result is in [0, 2^63/width] for every input
// but one: with width 1 and the bit pattern of math.MinInt64, the
// magnitude 2^63 does not fit in an int64 and the result wraps to
// math.MinInt64.
func ID(fastHash64PK uint64, width uint32) int64 {
	w := uint64(width)
	if w == 0 {
		w = 1
	}
	signed := int64(fastHash64PK)
	var abs uint64
	if signed < 0 {
		// Two's complement negation-then-reinterpret is correct even
		// at math.MinInt64, where -signed overflows back to itself
		// but the uint64 reinterpretation yields 2^63, the true
		// magnitude.
		abs = uint64(-signed)
	} else {
		abs = uint64(signed)
	}
	return int64(abs / w)
}
