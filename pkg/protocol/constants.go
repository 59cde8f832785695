// Package protocol holds the fixed numeric constants and chain-configurable
// parameters shared by every component of the JAM core: the compact-nat
// codec, the PVM, the erasure-coded availability layer, the service-account
// model, and the accumulation engine.
package protocol

// Erasure-coding constants (spec §4.2, §6).
const (
	// DataSegments is K, the number of systematic (data) segments a work
	// package is split into.
	DataSegments = 342
	// TotalSegments is N, the total number of segments (data + parity)
	// published for a work package.
	TotalSegments = 1023
	// SegmentSize is the fixed size in bytes of a single segment.
	SegmentSize = 4096
)

// Account accounting constants (spec §3, min-balance formula).
const (
	// BalanceStorageBase (BS) is the fixed per-account balance overhead.
	BalanceStorageBase uint64 = 100
	// BalanceStorageItem (BI) is the per-item (request/storage-entry) cost.
	BalanceStorageItem uint64 = 10
	// BalanceStorageByte (BL) is the per-octet storage cost.
	BalanceStorageByte uint64 = 1
)

// Preimage and transfer constants (spec §4.7, §3).
const (
	// PreimageExpiry (D) is the minimum number of timeslots that must elapse
	// after a preimage becomes available before it may be forgotten.
	PreimageExpiry uint32 = 19_200
	// MemoSize is the fixed byte length of a deferred-transfer memo.
	MemoSize = 128
	// MinPublicServiceID is the smallest service id reserved for
	// non-privileged, publicly registrable services (2^16).
	MinPublicServiceID uint32 = 1 << 16
)

// Params bundles the handful of constants that are chain-configurable
// rather than protocol-fixed (spec §6's "protocol constants" that vary by
// deployment, e.g. core count).
type Params struct {
	// CoreCount (C) is the number of parallel refinement cores.
	CoreCount uint16
	// PreimageExpiry overrides the default D for this chain, if non-zero.
	PreimageExpiry uint32
}

// DefaultParams returns the parameter set used by the reference JAM test
// vectors (the "tiny" protocol configuration used throughout spec §8's
// scenarios).
func DefaultParams() Params {
	return Params{
		CoreCount:      341,
		PreimageExpiry: PreimageExpiry,
	}
}

// Expiry returns the effective preimage-expiry threshold for these params,
// falling back to the protocol default when unset.
func (p Params) Expiry() uint32 {
	if p.PreimageExpiry == 0 {
		return PreimageExpiry
	}
	return p.PreimageExpiry
}
