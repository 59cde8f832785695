// Package workpackage implements the canonical work package / work item /
// segment model and its codec (spec §3, §9's "Deserialization of work
// packages" open question): a signed authorization token, an auth
// service/code pair, a refinement context, and an ordered sequence of
// work items, content-addressed by Blake2b-256 of the canonical
// encoding.
//
// The source this was distilled from contained a decoder stub that
// fabricated fields rather than parsing them; this package replaces that
// stub with a full declaration-order decoder built on pkg/codec, per
// spec §9's "Encoding determinism" requirement that field order be
// normative rather than left to a reflective encoder.
package workpackage

import (
	"golang.org/x/crypto/blake2b"

	"github.com/rotkonetworks/romio-sub004/pkg/codec"
)

// Hash is a Blake2b-256 content address.
type Hash [32]byte

// Context is the refinement context a work package is anchored to (spec
// §3): the parent block it refines against, the state and accumulation
// roots it claims, the lookup anchor it resolves preimages against, and
// any prerequisite package hashes that must already be available.
type Context struct {
	Anchor           Hash
	StateRoot        Hash
	AccumulationRoot Hash
	LookupAnchor     Hash
	LookupAnchorSlot uint64
	Prerequisites    []Hash
}

// WorkItem is one unit of refinement work within a package: the service
// it targets, its payload, and the resource limits the refinement host
// must enforce (spec §3).
type WorkItem struct {
	ServiceID       uint32
	Payload         []byte
	GasLimit        int64
	OutputSizeLimit uint32
	StorageLimit    uint32
}

// Package is a full work package (spec §3): a signed authorization
// token, the auth service/code pair that must validate it, a refinement
// context, and its ordered work items.
type Package struct {
	AuthToken   []byte
	AuthService uint32
	AuthCode    Hash
	Context     Context
	Items       []WorkItem
}

// Segment is one fixed-size erasure-coded chunk of a package's canonical
// encoding, addressed by (core, package hash, index) (spec §4.2).
type Segment struct {
	CoreID  uint16
	Package Hash
	Index   int
	Data    []byte
}

// Hash returns the package's content address: Blake2b-256 of its
// canonical encoding (spec §3 "Packages are content-addressed by
// Blake2b-256 of their canonical encoding").
func (p *Package) Hash() Hash {
	return blake2b.Sum256(p.Encode())
}

// Encode produces the canonical declaration-order encoding of p (spec
// §9): every field in struct declaration order, compact-nat or
// fixed-width exactly as declared.
func (p *Package) Encode() []byte {
	w := codec.NewWriter()
	w.Blob(p.AuthToken)
	w.Nat(uint64(p.AuthService))
	w.Fixed(p.AuthCode[:])
	encodeContext(w, &p.Context)
	w.Seq(len(p.Items), func(w *codec.Writer, i int) {
		encodeItem(w, &p.Items[i])
	})
	return w.Bytes()
}

func encodeContext(w *codec.Writer, c *Context) {
	w.Fixed(c.Anchor[:])
	w.Fixed(c.StateRoot[:])
	w.Fixed(c.AccumulationRoot[:])
	w.Fixed(c.LookupAnchor[:])
	w.Nat(c.LookupAnchorSlot)
	w.Seq(len(c.Prerequisites), func(w *codec.Writer, i int) {
		w.Fixed(c.Prerequisites[i][:])
	})
}

func encodeItem(w *codec.Writer, it *WorkItem) {
	w.Nat(uint64(it.ServiceID))
	w.Blob(it.Payload)
	w.Nat(uint64(it.GasLimit))
	w.Nat(uint64(it.OutputSizeLimit))
	w.Nat(uint64(it.StorageLimit))
}

// Decode parses a canonical work package encoding, rejecting any
// trailing bytes (spec §4.1 "decoders must reject trailing bytes").
func Decode(b []byte) (*Package, error) {
	r := codec.NewReader(b)
	p, err := decodePackage(r)
	if err != nil {
		return nil, err
	}
	if !r.Done() {
		return nil, &codec.ParseError{Kind: codec.ErrTrailing, Offset: r.Offset()}
	}
	return p, nil
}

func decodePackage(r *codec.Reader) (*Package, error) {
	var p Package
	var err error

	if p.AuthToken, err = r.Blob(); err != nil {
		return nil, err
	}
	authService, err := r.Nat()
	if err != nil {
		return nil, err
	}
	p.AuthService = uint32(authService)

	authCode, err := r.Fixed(32)
	if err != nil {
		return nil, err
	}
	copy(p.AuthCode[:], authCode)

	if p.Context, err = decodeContext(r); err != nil {
		return nil, err
	}

	if _, err = r.Seq(func(r *codec.Reader, i int) error {
		item, err := decodeItem(r)
		if err != nil {
			return err
		}
		p.Items = append(p.Items, item)
		return nil
	}); err != nil {
		return nil, err
	}

	return &p, nil
}

func decodeContext(r *codec.Reader) (Context, error) {
	var c Context
	fields := []*Hash{&c.Anchor, &c.StateRoot, &c.AccumulationRoot, &c.LookupAnchor}
	for _, f := range fields {
		b, err := r.Fixed(32)
		if err != nil {
			return Context{}, err
		}
		copy(f[:], b)
	}
	slot, err := r.Nat()
	if err != nil {
		return Context{}, err
	}
	c.LookupAnchorSlot = slot

	_, err = r.Seq(func(r *codec.Reader, i int) error {
		b, err := r.Fixed(32)
		if err != nil {
			return err
		}
		var h Hash
		copy(h[:], b)
		c.Prerequisites = append(c.Prerequisites, h)
		return nil
	})
	if err != nil {
		return Context{}, err
	}
	return c, nil
}

func decodeItem(r *codec.Reader) (WorkItem, error) {
	var it WorkItem
	service, err := r.Nat()
	if err != nil {
		return WorkItem{}, err
	}
	it.ServiceID = uint32(service)

	if it.Payload, err = r.Blob(); err != nil {
		return WorkItem{}, err
	}

	gas, err := r.Nat()
	if err != nil {
		return WorkItem{}, err
	}
	it.GasLimit = int64(gas)

	outLimit, err := r.Nat()
	if err != nil {
		return WorkItem{}, err
	}
	it.OutputSizeLimit = uint32(outLimit)

	storeLimit, err := r.Nat()
	if err != nil {
		return WorkItem{}, err
	}
	it.StorageLimit = uint32(storeLimit)

	return it, nil
}

// Segments splits a package's canonical encoding into segmentSize-byte
// chunks, zero-padding the final chunk, for handoff to the erasure coder
// (spec §4.2 "Work package segment").
func (p *Package) Segments(segmentSize int) [][]byte {
	data := p.Encode()
	var out [][]byte
	for off := 0; off < len(data); off += segmentSize {
		end := off + segmentSize
		if end > len(data) {
			chunk := make([]byte, segmentSize)
			copy(chunk, data[off:])
			out = append(out, chunk)
			break
		}
		out = append(out, data[off:end])
	}
	return out
}
