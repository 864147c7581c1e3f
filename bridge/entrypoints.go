package bridge

import (
	"github.com/suborbital/e2bridge/api"
	"github.com/suborbital/e2bridge/wire"
)

const (
	portParamType = "int64_t"
	portParamName = "port_"
	syncSuffix    = "_sync"
)

// exports lists every operation in export order with its argument, if any
var exports = []struct {
	op    string
	param *wire.Param
}{
	{op: api.OpRun},
	{op: api.OpPassingComplexStructs, param: &wire.Param{Type: "struct " + wire.TreeNode + " *", Name: "root"}},
	{op: api.OpReturningStructsWithBoxedFields},
	{op: api.OpInputArray, param: &wire.Param{Type: "struct " + wire.Uint8List + " *", Name: "input"}},
	{op: api.OpOutputZeroCopyBuffer, param: &wire.Param{Type: "int32_t", Name: "len"}},
	{op: api.OpOutputVecU8, param: &wire.Param{Type: "int32_t", Name: "len"}},
	{op: api.OpInputVecOfObject, param: &wire.Param{Type: "struct " + wire.ListSize + " *", Name: "input"}},
	{op: api.OpOutputVecOfObject, param: &wire.Param{Type: "int32_t", Name: "len"}},
	{op: api.OpInputComplexStruct, param: &wire.Param{Type: "struct " + wire.TreeNode + " *", Name: "input"}},
	{op: api.OpOutputComplexStruct, param: &wire.Param{Type: "int32_t", Name: "len"}},
	{op: api.OpDeliberatelyReturnError},
	{op: api.OpDeliberatelyPanic},
}

// EntryPoints enumerates the C call table: registration, one asynchronous
// and one synchronous entry per operation, the allocators and the release
// function. The synchronous entries are only included when withSync is set.
func EntryPoints(withSync bool) []wire.EntryPoint {
	entries := []wire.EntryPoint{
		{Name: "store_dart_post_cobject", Returns: "void", Params: []wire.Param{{Type: "DartPostCObjectFnType", Name: "ptr"}}},
	}

	for _, e := range exports {
		params := []wire.Param{{Type: portParamType, Name: portParamName}}
		if e.param != nil {
			params = append(params, *e.param)
		}

		entries = append(entries, wire.EntryPoint{Name: "wire_" + e.op, Returns: "void", Params: params})
	}

	if withSync {
		for _, e := range exports {
			var params []wire.Param
			if e.param != nil {
				params = []wire.Param{*e.param}
			}

			entries = append(entries, wire.EntryPoint{Name: "wire_" + e.op + syncSuffix, Returns: "struct " + wire.SyncReturn, Params: params})
		}
	}

	entries = append(entries,
		wire.EntryPoint{Name: "new_box_autoadd_tree_node_0", Returns: "struct " + wire.TreeNode + " *"},
		wire.EntryPoint{Name: "new_list_size_0", Returns: "struct " + wire.ListSize + " *", Params: []wire.Param{{Type: "int32_t", Name: "len"}}},
		wire.EntryPoint{Name: "new_list_tree_node_0", Returns: "struct " + wire.ListTreeNode + " *", Params: []wire.Param{{Type: "int32_t", Name: "len"}}},
		wire.EntryPoint{Name: "new_uint_8_list_0", Returns: "struct " + wire.Uint8List + " *", Params: []wire.Param{{Type: "int32_t", Name: "len"}}},
		wire.EntryPoint{Name: "free_WireSyncReturnStruct", Returns: "void", Params: []wire.Param{{Type: "struct " + wire.SyncReturn, Name: "val"}}},
	)

	return entries
}
