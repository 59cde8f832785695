package account

import "errors"

// ErrHuh is the sentinel failure for preimage-request transitions the
// state machine does not allow (spec §4.7, mirroring the host-call HUH
// return code -- see pkg/hostcall).
var ErrHuh = errors.New("account: huh")

// RequestState is the preimage request's 4-state machine (spec §3
// "Preimage request").
type RequestState uint8

const (
	StateEmpty RequestState = iota
	StatePartial
	StatePending
	StateAvailable
)

func (s RequestState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePartial:
		return "partial"
	case StatePending:
		return "pending"
	case StateAvailable:
		return "available"
	default:
		return "unknown"
	}
}

// RequestKey identifies a preimage request by content hash and declared
// length (spec §3: "mapping from (hash, length) to a preimage request").
type RequestKey struct {
	Hash   Hash
	Length uint32
}

// PreimageRequest is the 0-3 timeslot vector encoding the state machine:
// [] empty, [x] partial, [x,y] pending, [x,y,z] available (spec §3).
type PreimageRequest struct {
	Length uint32
	slots  []uint64
}

// State derives the logical state from the slot-vector length.
func (r *PreimageRequest) State() RequestState {
	switch len(r.slots) {
	case 0:
		return StateEmpty
	case 1:
		return StatePartial
	case 2:
		return StatePending
	default:
		return StateAvailable
	}
}

// Slots returns a copy of the underlying timeslot vector.
func (r *PreimageRequest) Slots() []uint64 {
	return append([]uint64(nil), r.slots...)
}

// Solicit implements the `solicit` host call (spec §4.7):
//   - absent key -> insert a fresh empty request
//   - present and in available -> re-request: drop the oldest slot and
//     append currentSlot, keeping the 3-element vector (spec.md does not
//     further specify which element is dropped when a 4th arrives; this
//     implementation keeps the two most recent prior slots plus the new
//     one -- recorded as an Open Question resolution in DESIGN.md)
//   - anything else -> huh
func (a *Account) Solicit(h Hash, length uint32, currentSlot uint64) error {
	key := RequestKey{Hash: h, Length: length}
	req, exists := a.Requests[key]
	if !exists {
		a.Requests[key] = &PreimageRequest{Length: length}
		return nil
	}
	if req.State() != StateAvailable {
		return ErrHuh
	}
	req.slots = append(append([]uint64(nil), req.slots[1:]...), currentSlot)
	return nil
}

// Forget implements the `forget` host call (spec §4.7):
//   - empty -> remove
//   - partial with slot-x >= D since the provide timestamp -> remove fully
//     (this is the path Provide actually reaches: empty -> partial on a
//     successful provision, spec §3's state table; S3's "forget before D
//     slots -> huh, after D slots -> removed" is exercised from here, not
//     from pending/available, since nothing else in this implementation
//     grows the slot vector past 1 -- see DESIGN.md)
//   - pending -> drop (revert to empty... here: remove the request entirely,
//     since "drop" has no partial-progress state to fall back to below pending)
//   - available with slot-y >= D since the available timestamp -> remove fully
//   - otherwise -> huh
func (a *Account) Forget(h Hash, length uint32, currentSlot uint64, expiry uint32) error {
	key := RequestKey{Hash: h, Length: length}
	req, exists := a.Requests[key]
	if !exists {
		return ErrHuh
	}
	switch req.State() {
	case StateEmpty:
		delete(a.Requests, key)
		return nil
	case StatePartial:
		x := req.slots[0]
		if currentSlot-x < uint64(expiry) {
			return ErrHuh
		}
		delete(a.Requests, key)
		delete(a.Preimages, h)
		return nil
	case StatePending:
		delete(a.Requests, key)
		return nil
	case StateAvailable:
		y := req.slots[1]
		if currentSlot-y < uint64(expiry) {
			return ErrHuh
		}
		delete(a.Requests, key)
		delete(a.Preimages, h)
		return nil
	default:
		return ErrHuh
	}
}

// Provide implements successful preimage provision (spec §4.7):
//   - empty -> the single currentSlot is appended (empty to partial, per
//     the state table in spec §3; the mutator prose calls the result
//     "pending" loosely, but the vector-length/state-name table is
//     treated as authoritative here -- see DESIGN.md)
//   - available -> rejected, already have it
//   - partial/pending already mid-flight -> huh (nothing to provide against)
func (a *Account) Provide(h Hash, blob []byte, currentSlot uint64) error {
	length := uint32(len(blob))
	key := RequestKey{Hash: h, Length: length}
	req, exists := a.Requests[key]
	if !exists {
		return ErrHuh
	}
	switch req.State() {
	case StateEmpty:
		req.slots = append(req.slots, currentSlot)
		a.Preimages[h] = append([]byte(nil), blob...)
		return nil
	case StateAvailable:
		return ErrHuh
	default:
		return ErrHuh
	}
}
