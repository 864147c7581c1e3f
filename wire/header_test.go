package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader(t *testing.T) {
	entries := []EntryPoint{
		{Name: "store_dart_post_cobject", Returns: "void", Params: []Param{{Type: "DartPostCObjectFnType", Name: "ptr"}}},
		{Name: "wire_passing_complex_structs", Returns: "void", Params: []Param{{Type: "int64_t", Name: "port_"}, {Type: "struct wire_TreeNode *", Name: "root"}}},
		{Name: "new_box_autoadd_tree_node_0", Returns: "struct wire_TreeNode *"},
	}

	buf := &bytes.Buffer{}
	require.NoError(t, Header(buf, entries, HeaderOptions{}))

	out := buf.String()

	assert.Contains(t, out, "typedef struct wire_TreeNode {\n  struct wire_uint_8_list *name;\n  struct wire_list_tree_node *children;\n} wire_TreeNode;\n")
	assert.Contains(t, out, "typedef struct WireSyncReturnStruct {\n  uint8_t *ptr;\n  int32_t len;\n  bool success;\n} WireSyncReturnStruct;\n")
	assert.Contains(t, out, "void store_dart_post_cobject(DartPostCObjectFnType ptr);\n")
	assert.Contains(t, out, "void wire_passing_complex_structs(int64_t port_, struct wire_TreeNode *root);\n")
	assert.Contains(t, out, "struct wire_TreeNode *new_box_autoadd_tree_node_0(void);\n")
	assert.Contains(t, out, "    dummy_var ^= ((int64_t) (void*) new_box_autoadd_tree_node_0);\n")
	assert.NotContains(t, out, "_Static_assert")
}

func TestHeaderAsserts(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Header(buf, nil, HeaderOptions{AssertPtrSize: 8}))

	out := buf.String()

	assert.Contains(t, out, "#include <stddef.h>\n")
	assert.Contains(t, out, `_Static_assert(sizeof(void *) == 8, "pointer width");`)
	assert.Contains(t, out, `_Static_assert(sizeof(wire_TreeNode) == 16, "wire_TreeNode size");`)
	assert.Contains(t, out, `_Static_assert(offsetof(WireSyncReturnStruct, success) == 12, "WireSyncReturnStruct.success offset");`)
}

func TestHeaderTypesOnly(t *testing.T) {
	entries := []EntryPoint{{Name: "wire_run", Returns: "void"}}

	buf := &bytes.Buffer{}
	require.NoError(t, Header(buf, entries, HeaderOptions{TypesOnly: true}))

	out := buf.String()

	assert.Contains(t, out, "typedef int64_t DartPort;\n")
	assert.NotContains(t, out, "wire_run")
	assert.NotContains(t, out, "dummy_method_to_enforce_bundling")
}
