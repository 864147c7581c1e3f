package bridge

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/suborbital/e2bridge/api"
	"github.com/suborbital/e2bridge/dispatch"
	"github.com/suborbital/e2bridge/heap"
	"github.com/suborbital/e2bridge/marshal"
	"github.com/suborbital/e2bridge/options"
	"github.com/suborbital/e2bridge/post"
	"github.com/suborbital/e2bridge/wire"
)

type BridgeSuite struct {
	suite.Suite

	b      *Bridge
	posts  chan post.Message
	faults chan interface{}
}

func TestBridgeSuite(t *testing.T) {
	suite.Run(t, &BridgeSuite{})
}

func testOptions(t require.TestingT) *options.Options {
	opts, err := options.Load(context.Background(), envconfig.MapLookuper(map[string]string{}),
		options.HeapBackend("slice"),
		options.HeapPages(1, 64),
		options.PoolSize(2),
		options.UseLogger(zerolog.Nop()),
	)
	require.NoError(t, err)

	return opts
}

func (s *BridgeSuite) SetupTest() {
	s.posts = make(chan post.Message, 64)
	s.faults = make(chan interface{}, 4)

	b, err := New(testOptions(s.T()), WithFaultHandler(func(_ string, recovered interface{}) {
		s.faults <- recovered
	}))
	s.Require().NoError(err)

	s.b = b
	s.b.StorePostFunc(func(_ post.Port, msg *post.Message) bool {
		s.posts <- *msg
		return true
	})
}

func (s *BridgeSuite) TearDownTest() {
	stats := s.b.Heap().(heap.Stater).Stats()
	s.Zero(stats.LiveAllocations, "heap leaked allocations")

	s.NoError(s.b.Close())
}

// sync runs a sync entry, decodes its payload into v and releases it
func (s *BridgeSuite) sync(sr dispatch.SyncReturn, v interface{}) error {
	defer s.b.FreeSyncReturn(sr)

	return s.b.Dispatcher().ReadSyncReturn(sr, v)
}

func (s *BridgeSuite) async(call func(post.Port), v interface{}) bool {
	call(1)

	select {
	case msg := <-s.posts:
		s.Require().NoError(marshal.DecodePayload(msg.Payload, v))
		return msg.Success
	case <-time.After(5 * time.Second):
		s.FailNow("timed out waiting for completion")
	}

	return false
}

func (s *BridgeSuite) tree() heap.Ptr {
	return s.b.Marshaler().PutTreeNode(marshal.TreeNode{
		Name: "root",
		Children: []marshal.TreeNode{
			{Name: "a"},
			{Name: "b", Children: []marshal.TreeNode{{Name: "c"}}},
		},
	})
}

func (s *BridgeSuite) TestRun() {
	var greeting string
	s.Require().NoError(s.sync(s.b.SyncRun(), &greeting))
	s.NotEmpty(greeting)

	var async string
	s.True(s.async(s.b.WireRun, &async))
	s.Equal(greeting, async)
}

func (s *BridgeSuite) TestPassingComplexStructs() {
	var desc string
	s.Require().NoError(s.sync(s.b.SyncPassingComplexStructs(s.tree()), &desc))
	s.Equal("root(a, b(c))", desc)

	root := s.tree()
	s.True(s.async(func(p post.Port) { s.b.WirePassingComplexStructs(p, root) }, &desc))
	s.Equal("root(a, b(c))", desc)
}

func (s *BridgeSuite) TestReturningStructsWithBoxedFields() {
	boxed := api.BoxedPoint{}
	s.Require().NoError(s.sync(s.b.SyncReturningStructsWithBoxedFields(), &boxed))
	s.Require().NotNil(boxed.Point)
	s.Equal(api.Point{X: 1, Y: 2}, *boxed.Point)
}

func (s *BridgeSuite) TestInputArray() {
	var n int32
	s.Require().NoError(s.sync(s.b.SyncInputArray(s.b.Marshaler().PutBytes([]byte("12345"))), &n))
	s.Equal(int32(5), n)

	input := s.b.NewUint8List(0)
	s.True(s.async(func(p post.Port) { s.b.WireInputArray(p, input) }, &n))
	s.Equal(int32(0), n)
}

func (s *BridgeSuite) TestOutputBuffers() {
	var b []byte
	s.Require().NoError(s.sync(s.b.SyncOutputZeroCopyBuffer(10), &b))
	s.Len(b, 10)

	s.Require().NoError(s.sync(s.b.SyncOutputVecU8(0), &b))
	s.Empty(b)

	s.True(s.async(func(p post.Port) { s.b.WireOutputVecU8(p, 3) }, &b))
	s.Equal([]byte{0, 1, 2}, b)

	s.True(s.async(func(p post.Port) { s.b.WireOutputZeroCopyBuffer(p, 2) }, &b))
	s.Len(b, 2)
}

func (s *BridgeSuite) TestNegativeLengthIsAFailure() {
	failure := dispatch.ErrorPayload{}
	s.False(s.async(func(p post.Port) { s.b.WireOutputVecU8(p, -1) }, &failure))
	s.Contains(failure.Message, "invalid length")

	s.Error(s.sync(s.b.SyncOutputComplexStruct(-1), nil))
}

func (s *BridgeSuite) TestVecOfObject() {
	sizes := []marshal.Size{}
	s.Require().NoError(s.sync(s.b.SyncOutputVecOfObject(2), &sizes))
	s.Equal([]marshal.Size{{Width: 42, Height: 42}, {Width: 42, Height: 42}}, sizes)

	var n int32
	s.Require().NoError(s.sync(s.b.SyncInputVecOfObject(s.b.Marshaler().PutSizes(sizes)), &n))
	s.Equal(int32(2), n)

	input := s.b.NewListSize(4)
	s.True(s.async(func(p post.Port) { s.b.WireInputVecOfObject(p, input) }, &n))
	s.Equal(int32(4), n)

	s.True(s.async(func(p post.Port) { s.b.WireOutputVecOfObject(p, 1) }, &sizes))
	s.Len(sizes, 1)
}

func (s *BridgeSuite) TestComplexStruct() {
	root := marshal.TreeNode{}
	s.Require().NoError(s.sync(s.b.SyncOutputComplexStruct(3), &root))
	s.Equal("root", root.Name)
	s.Len(root.Children, 3)

	var n int32
	s.Require().NoError(s.sync(s.b.SyncInputComplexStruct(s.b.Marshaler().PutTreeNode(root)), &n))
	s.Equal(int32(3), n)

	input := s.tree()
	s.True(s.async(func(p post.Port) { s.b.WireInputComplexStruct(p, input) }, &n))
	s.Equal(int32(2), n)

	s.True(s.async(func(p post.Port) { s.b.WireOutputComplexStruct(p, 0) }, &root))
	s.Empty(root.Children)
}

func (s *BridgeSuite) TestUnfilledTreeNodeIsAFailure() {
	err := s.sync(s.b.SyncInputComplexStruct(s.b.NewBoxAutoaddTreeNode()), nil)
	s.Contains(err.Error(), marshal.ErrNullPointer.Error())
}

func (s *BridgeSuite) TestListTreeNodeFilledByHand() {
	// build root(x) the way generated host bindings do
	root := s.b.NewBoxAutoaddTreeNode()
	children := s.b.NewListTreeNode(1)

	codec := s.b.Marshaler().Codec()
	elems, _ := codec.List(wire.ListTreeNode, children)
	codec.SetTreeNode(codec.Elem(wire.ListTreeNode, elems, 0), s.b.Marshaler().PutString("x"), s.b.NewListTreeNode(0))
	codec.SetTreeNode(root, s.b.Marshaler().PutString("root"), children)

	var desc string
	s.Require().NoError(s.sync(s.b.SyncPassingComplexStructs(root), &desc))
	s.Equal("root(x)", desc)
}

func (s *BridgeSuite) TestDeliberatelyReturnError() {
	err := s.sync(s.b.SyncDeliberatelyReturnError(), nil)
	s.EqualError(err, api.ErrDeliberate.Error())

	failure := dispatch.ErrorPayload{}
	s.False(s.async(s.b.WireDeliberatelyReturnError, &failure))
	s.Equal(api.ErrDeliberate.Error(), failure.Message)
}

func (s *BridgeSuite) TestDeliberatelyPanic() {
	s.PanicsWithValue(api.DeliberatePanic, func() {
		s.b.SyncDeliberatelyPanic()
	})

	s.b.WireDeliberatelyPanic(1)

	select {
	case recovered := <-s.faults:
		s.Equal(api.DeliberatePanic, recovered)
	case <-time.After(5 * time.Second):
		s.FailNow("fault handler was not called")
	}

	select {
	case <-s.posts:
		s.Fail("a faulted call must not post")
	case <-time.After(200 * time.Millisecond):
	}
}

func (s *BridgeSuite) TestAllocatorsRejectNegativeLengths() {
	s.Panics(func() { s.b.NewListSize(-1) })
	s.Panics(func() { s.b.NewListTreeNode(-1) })
	s.Panics(func() { s.b.NewUint8List(-1) })
}

func TestAsyncBeforeRegistration(t *testing.T) {
	b, err := New(testOptions(t))
	require.NoError(t, err)

	defer b.Close()

	assert.PanicsWithError(t, post.ErrNotRegistered.Error(), func() {
		b.WireRun(1)
	})
}

func TestSharedRegistry(t *testing.T) {
	registry := post.NewRegistry(zerolog.Nop())

	b, err := New(testOptions(t), WithRegistry(registry))
	require.NoError(t, err)

	defer b.Close()

	assert.Same(t, registry, b.Registry())
	assert.NotEmpty(t, b.ID())
}

func TestEntryPoints(t *testing.T) {
	entries := EntryPoints(false)
	assert.Len(t, entries, 18)

	withSync := EntryPoints(true)
	assert.Len(t, withSync, 30)

	buf := &bytes.Buffer{}
	require.NoError(t, wire.Header(buf, entries, wire.HeaderOptions{}))

	out := buf.String()

	assert.Contains(t, out, "void wire_run(int64_t port_);\n")
	assert.Contains(t, out, "void wire_passing_complex_structs(int64_t port_, struct wire_TreeNode *root);\n")
	assert.Contains(t, out, "void wire_off_topic_memory_test_input_vec_of_object(int64_t port_, struct wire_list_size *input);\n")
	assert.Contains(t, out, "void wire_off_topic_memory_test_output_complex_struct(int64_t port_, int32_t len);\n")
	assert.Contains(t, out, "struct wire_list_tree_node *new_list_tree_node_0(int32_t len);\n")
	assert.Contains(t, out, "void free_WireSyncReturnStruct(struct WireSyncReturnStruct val);\n")
	assert.NotContains(t, out, "_sync")

	buf.Reset()
	require.NoError(t, wire.Header(buf, withSync, wire.HeaderOptions{}))
	assert.Contains(t, buf.String(), "struct WireSyncReturnStruct wire_off_topic_memory_test_input_array_sync(struct wire_uint_8_list *input);\n")
	assert.Contains(t, buf.String(), "struct WireSyncReturnStruct wire_run_sync(void);\n")
}

// deliberatePanicEnv names the mode a re-executed test binary runs in
const deliberatePanicEnv = "E2BRIDGE_DELIBERATE_PANIC_MODE"

// With the default fault handler a deliberate panic must take the process
// down in both variants, so each variant runs in a child test binary.
func TestDeliberatePanicTerminatesProcess(t *testing.T) {
	for _, mode := range []string{"sync", "async"} {
		mode := mode

		t.Run(mode, func(t *testing.T) {
			if os.Getenv(deliberatePanicEnv) == mode {
				deliberatelyPanic(t, mode)
				return
			}

			cmd := exec.Command(os.Args[0], "-test.run=^TestDeliberatePanicTerminatesProcess$/^"+mode+"$")
			cmd.Env = append(os.Environ(), deliberatePanicEnv+"="+mode)

			output := &bytes.Buffer{}
			cmd.Stdout = output
			cmd.Stderr = output

			err := cmd.Run()

			exitErr := &exec.ExitError{}
			require.ErrorAs(t, err, &exitErr, "child exited cleanly:\n%s", output.String())
			assert.NotZero(t, exitErr.ExitCode())
			assert.Contains(t, output.String(), "panic: "+api.DeliberatePanic)
		})
	}
}

// deliberatelyPanic runs in the child; returning from it means the panic was swallowed
func deliberatelyPanic(t *testing.T, mode string) {
	b, err := New(testOptions(t))
	require.NoError(t, err)

	b.StorePostFunc(func(post.Port, *post.Message) bool {
		return true
	})

	if mode == "sync" {
		b.SyncDeliberatelyPanic()
		return
	}

	b.WireDeliberatelyPanic(1)

	// the worker's panic ends the process well before this
	time.Sleep(5 * time.Second)
}
