// Package rowhash maps serialized row/pk bytes to the two hash families the
// fingerprinting core needs: a fast 64-bit hash for the commutative XOR
// chunk state (C4), and a wide cryptographic digest for the row-hash index
// and every composed root (C2).
package rowhash

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
)

// Algo names the cryptographic digest a database was bootstrapped with.
// spec.md §9 requires picking exactly one per database and recording the
// choice in HashConfig so two databases can only be compared when they
// agree. Blake3 is the default and the only algorithm the XOR derivation
// needs, since that derivation's digest is always computed by this driver,
// never inside Postgres. Sha256 exists because Postgres's pgcrypto
// extension only offers md5/sha*, not BLAKE3; a table configured for the
// sorted-fold derivation (§4.5 derivation 2) needs its per-row digests
// computed by the trigger itself (package trigger), so that table's Algo
// must be Sha256 for the in-database digest(...,'sha256') calls and this
// package's own summing to agree on the same bytes.
type Algo string

const (
	// Blake3 is the default cryptographic digest. A table configured for
	// the XOR derivation may use either Blake3 or Sha256.
	Blake3 Algo = "blake3"
	// Sha256 is required for tables configured for the sorted-fold
	// derivation, so the digests package trigger computes in Postgres
	// via pgcrypto match what this package recomputes when folding.
	Sha256 Algo = "sha256"
)

// ErrUnknownAlgo is returned when a HashConfig row names an algorithm this
// build does not know how to compute.
var ErrUnknownAlgo = errors.New("rowhash: unknown hash algorithm")

// DigestSize is the width, in bytes, of every cryptographic digest this
// package produces (BLAKE3-256 or SHA-256).
const DigestSize = 32

// Digest is a cryptographic digest: pk_hash, row_hash, a chunk/table/
// database root digest, or the §4.9 streaming fingerprint.
type Digest [DigestSize]byte

// Hex returns the lowercase hex encoding used for on-disk storage and for
// every emitted root (§6 Output formats).
func (d Digest) Hex() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether d is the zero value (never a valid digest; used by
// callers to detect "no digest computed").
func (d Digest) IsZero() bool { return d == Digest{} }

// Sum computes the cryptographic digest of b under algo.
func Sum(algo Algo, b []byte) (Digest, error) {
	switch algo {
	case Blake3:
		return Digest(blake3.Sum256(b)), nil
	case Sha256:
		return Digest(sha256.Sum256(b)), nil
	default:
		return Digest{}, errors.Wrapf(ErrUnknownAlgo, "%q", algo)
	}
}

// SumHexConcat digests the concatenation of already hex-encoded digests, in
// the order given by the caller (callers are responsible for ordering by
// chunk_id, or by schema/table, per §4.8). This is the shared core of
// TableRoot and DatabaseRoot: "cryptographic hash of the concatenation of
// each [child]'s hex-encoded digest".
func SumHexConcat(algo Algo, hexParts []string) (Digest, error) {
	total := 0
	for _, p := range hexParts {
		total += len(p)
	}
	buf := make([]byte, 0, total)
	for _, p := range hexParts {
		buf = append(buf, p...)
	}
	return Sum(algo, buf)
}

// EmptyDigest returns the digest of the empty byte string under algo — the
// value used for an empty chunk, empty table, or empty database (§4.5,
// §4.8, §8 property 6).
func EmptyDigest(algo Algo) (Digest, error) {
	return Sum(algo, nil)
}

// FastHash64 computes fasthash64(b): a uniformly distributed, non-
// cryptographic 64-bit hash (§4.2). The XOR operands persisted in
// chunk_state are computed inside Postgres with hashtextextended (package
// trigger, package bootstrap), not with this function.
func FastHash64(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// ChunkIDHash64 is the fast hash used specifically to derive a chunk id
// from pk_bytes (§4.3). It is the same function as FastHash64; the
// separate name documents the two distinct call sites spec.md names
// (row content vs. primary-key content) even though today they share an
// implementation.
func ChunkIDHash64(pkBytes []byte) uint64 {
	return xxhash.Sum64(pkBytes)
}

// PKHash computes pk_hash = cryptographic_digest(pk_bytes) (§4.2).
func PKHash(algo Algo, pkBytes []byte) (Digest, error) {
	return Sum(algo, pkBytes)
}

// RowDigest computes row_digest(row_bytes) (§4.2).
func RowDigest(algo Algo, rowBytes []byte) (Digest, error) {
	return Sum(algo, rowBytes)
}

// XORStateDigest computes the ChunkHash XOR derivation (§4.5 derivation 1):
// cryptographic_hash(decimal_text(xor64)).
func XORStateDigest(algo Algo, xor64 uint64) (Digest, error) {
	return Sum(algo, []byte(strconv.FormatUint(xor64, 10)))
}

// NewHasher returns a streaming hash.Hash for algo, used by package
// streamfp to feed a whole table's row_bytes through a cryptographic hash
// without buffering the table in memory (§4.9).
func NewHasher(algo Algo) (hash.Hash, error) {
	switch algo {
	case Blake3:
		return blake3.New(), nil
	case Sha256:
		return sha256.New(), nil
	default:
		return nil, errors.Wrapf(ErrUnknownAlgo, "%q", algo)
	}
}
