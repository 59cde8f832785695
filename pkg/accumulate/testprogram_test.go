package accumulate

import (
	"golang.org/x/crypto/blake2b"

	"github.com/rotkonetworks/romio-sub004/pkg/codec"
	"github.com/rotkonetworks/romio-sub004/pkg/pvm"
)

// buildProgram assembles a minimal valid PVM program blob (spec §6's
// wire format) around a single one-byte instruction, for tests that
// exercise invokeEntry end-to-end without a real compiler.
func buildProgram(op pvm.OpCode) []byte {
	code := []byte{byte(op)}
	mask := []byte{0x80} // bit 0 set, MSB-first: byte 0 begins an instruction

	w := codec.NewWriter()
	w.Nat(0) // ro_len
	w.Nat(0) // rw_len
	w.Nat(uint64(pvm.PageSize)) // heap_size
	w.Nat(uint64(pvm.PageSize)) // stack_size
	w.Nat(0)                    // jump_table_count
	w.Nat(uint64(len(code)))    // code_len
	w.Fixed(mask)
	w.Fixed(code)

	return append([]byte("PVM\x00"), w.Bytes()...)
}

func buildHaltProgram() []byte { return buildProgram(pvm.OpHalt) }
func buildTrapProgram() []byte { return buildProgram(pvm.OpTrap) }

func codeHashOf(blob []byte) [32]byte { return blake2b.Sum256(blob) }
