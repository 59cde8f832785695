package hostcall

import (
	"errors"
	"testing"

	"github.com/rotkonetworks/romio-sub004/pkg/pvm"
)

var errHuhForTest = errors.New("huh")

type fakeContext struct {
	gas      int64
	storage  map[string][]byte
	solicitErr error
}

func newFakeContext() *fakeContext {
	return &fakeContext{gas: 42, storage: make(map[string][]byte)}
}

func (f *fakeContext) Gas() int64 { return f.gas }
func (f *fakeContext) Lookup(service uint32, key []byte) ([]byte, bool) { return nil, false }
func (f *fakeContext) ReadSelf(key []byte) ([]byte, bool) {
	v, ok := f.storage[string(key)]
	return v, ok
}
func (f *fakeContext) WriteSelf(key, value []byte) error {
	f.storage[string(key)] = append([]byte(nil), value...)
	return nil
}
func (f *fakeContext) Info(service uint32) ([32]byte, uint64, bool) { return [32]byte{}, 0, false }
func (f *fakeContext) Solicit(hash [32]byte, length uint32) error   { return f.solicitErr }
func (f *fakeContext) Forget(hash [32]byte, length uint32) error    { return nil }
func (f *fakeContext) Provide(service uint32, blob []byte) error    { return nil }
func (f *fakeContext) Transfer(dest uint32, amount uint64, gas int64, memo [128]byte) error {
	return nil
}
func (f *fakeContext) Eject(target uint32) error                         { return nil }
func (f *fakeContext) New(codeHash [32]byte, endowment uint64) (uint32, error) { return 9, nil }
func (f *fakeContext) Upgrade(codeHash [32]byte) error                    { return nil }
func (f *fakeContext) Fetch(discriminator, arg uint32) ([]byte, bool)     { return nil, false }
func (f *fakeContext) Bless(manager uint32) error                        { return nil }
func (f *fakeContext) Designate(delegator uint32) error                  { return nil }
func (f *fakeContext) Assign(core uint16, queue [][32]byte) error        { return nil }
func (f *fakeContext) AutoAccumulate(service uint32, gas int64) error     { return nil }
func (f *fakeContext) Checkpoint()                                       {}
func (f *fakeContext) Yield(hash [32]byte)                               {}
func (f *fakeContext) Export(data []byte) (uint32, error)                { return 3, nil }
func (f *fakeContext) Machine(program []byte) (uint32, error)            { return 1, nil }
func (f *fakeContext) Invoke(handle uint32, gas int64) (uint8, error)     { return 0, nil }
func (f *fakeContext) Expunge(handle uint32) error                       { return nil }

func newTestInterpreter(t *testing.T) *pvm.Interpreter {
	t.Helper()
	prog := &pvm.Program{HeapSize: pvm.PageSize, StackSize: pvm.PageSize}
	return pvm.New(prog, 1000)
}

func TestGasHandler(t *testing.T) {
	ctx := newFakeContext()
	it := newTestInterpreter(t)
	it.HostCallID = uint64(IDGas)
	Dispatch(ctx, it)
	if it.Regs[pvm.A0] != 42 {
		t.Fatalf("A0 = %d, want 42", it.Regs[pvm.A0])
	}
}

func TestUnknownHostCallReturnsWhat(t *testing.T) {
	ctx := newFakeContext()
	it := newTestInterpreter(t)
	it.HostCallID = 9999
	Dispatch(ctx, it)
	if it.Regs[pvm.A0] != uint64(WHAT) {
		t.Fatalf("A0 = %#x, want WHAT", it.Regs[pvm.A0])
	}
}

func TestSolicitPropagatesHuh(t *testing.T) {
	ctx := newFakeContext()
	ctx.solicitErr = errHuhForTest
	it := newTestInterpreter(t)
	it.HostCallID = uint64(IDSolicit)
	it.Regs[pvm.A0] = it.Regs[pvm.SP] - 32 // readable hash pointer, so the OOB check passes
	Dispatch(ctx, it)
	if it.Regs[pvm.A0] != uint64(HUH) {
		t.Fatalf("A0 = %#x, want HUH", it.Regs[pvm.A0])
	}
}
