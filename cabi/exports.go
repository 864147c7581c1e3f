package cabi

// #include "bridge_types.h"
import "C"

import (
	"unsafe"

	"github.com/suborbital/e2bridge/dispatch"
	"github.com/suborbital/e2bridge/heap"
	"github.com/suborbital/e2bridge/post"
)

//export store_dart_post_cobject
func store_dart_post_cobject(ptr C.DartPostCObjectFnType) {
	Instance().StorePostFunc(post.FromFunctionPointer(uintptr(unsafe.Pointer(ptr))))
}

//export wire_run
func wire_run(port_ C.int64_t) {
	Instance().WireRun(post.Port(port_))
}

//export wire_passing_complex_structs
func wire_passing_complex_structs(port_ C.int64_t, root *C.struct_wire_TreeNode) {
	Instance().WirePassingComplexStructs(post.Port(port_), ptrOf(unsafe.Pointer(root)))
}

//export wire_returning_structs_with_boxed_fields
func wire_returning_structs_with_boxed_fields(port_ C.int64_t) {
	Instance().WireReturningStructsWithBoxedFields(post.Port(port_))
}

//export wire_off_topic_memory_test_input_array
func wire_off_topic_memory_test_input_array(port_ C.int64_t, input *C.struct_wire_uint_8_list) {
	Instance().WireInputArray(post.Port(port_), ptrOf(unsafe.Pointer(input)))
}

//export wire_off_topic_memory_test_output_zero_copy_buffer
func wire_off_topic_memory_test_output_zero_copy_buffer(port_ C.int64_t, len C.int32_t) {
	Instance().WireOutputZeroCopyBuffer(post.Port(port_), int32(len))
}

//export wire_off_topic_memory_test_output_vec_u8
func wire_off_topic_memory_test_output_vec_u8(port_ C.int64_t, len C.int32_t) {
	Instance().WireOutputVecU8(post.Port(port_), int32(len))
}

//export wire_off_topic_memory_test_input_vec_of_object
func wire_off_topic_memory_test_input_vec_of_object(port_ C.int64_t, input *C.struct_wire_list_size) {
	Instance().WireInputVecOfObject(post.Port(port_), ptrOf(unsafe.Pointer(input)))
}

//export wire_off_topic_memory_test_output_vec_of_object
func wire_off_topic_memory_test_output_vec_of_object(port_ C.int64_t, len C.int32_t) {
	Instance().WireOutputVecOfObject(post.Port(port_), int32(len))
}

//export wire_off_topic_memory_test_input_complex_struct
func wire_off_topic_memory_test_input_complex_struct(port_ C.int64_t, input *C.struct_wire_TreeNode) {
	Instance().WireInputComplexStruct(post.Port(port_), ptrOf(unsafe.Pointer(input)))
}

//export wire_off_topic_memory_test_output_complex_struct
func wire_off_topic_memory_test_output_complex_struct(port_ C.int64_t, len C.int32_t) {
	Instance().WireOutputComplexStruct(post.Port(port_), int32(len))
}

//export wire_off_topic_deliberately_return_error
func wire_off_topic_deliberately_return_error(port_ C.int64_t) {
	Instance().WireDeliberatelyReturnError(post.Port(port_))
}

//export wire_off_topic_deliberately_panic
func wire_off_topic_deliberately_panic(port_ C.int64_t) {
	Instance().WireDeliberatelyPanic(post.Port(port_))
}

//export wire_run_sync
func wire_run_sync() C.struct_WireSyncReturnStruct {
	return toC(Instance().SyncRun())
}

//export wire_passing_complex_structs_sync
func wire_passing_complex_structs_sync(root *C.struct_wire_TreeNode) C.struct_WireSyncReturnStruct {
	return toC(Instance().SyncPassingComplexStructs(ptrOf(unsafe.Pointer(root))))
}

//export wire_returning_structs_with_boxed_fields_sync
func wire_returning_structs_with_boxed_fields_sync() C.struct_WireSyncReturnStruct {
	return toC(Instance().SyncReturningStructsWithBoxedFields())
}

//export wire_off_topic_memory_test_input_array_sync
func wire_off_topic_memory_test_input_array_sync(input *C.struct_wire_uint_8_list) C.struct_WireSyncReturnStruct {
	return toC(Instance().SyncInputArray(ptrOf(unsafe.Pointer(input))))
}

//export wire_off_topic_memory_test_output_zero_copy_buffer_sync
func wire_off_topic_memory_test_output_zero_copy_buffer_sync(len C.int32_t) C.struct_WireSyncReturnStruct {
	return toC(Instance().SyncOutputZeroCopyBuffer(int32(len)))
}

//export wire_off_topic_memory_test_output_vec_u8_sync
func wire_off_topic_memory_test_output_vec_u8_sync(len C.int32_t) C.struct_WireSyncReturnStruct {
	return toC(Instance().SyncOutputVecU8(int32(len)))
}

//export wire_off_topic_memory_test_input_vec_of_object_sync
func wire_off_topic_memory_test_input_vec_of_object_sync(input *C.struct_wire_list_size) C.struct_WireSyncReturnStruct {
	return toC(Instance().SyncInputVecOfObject(ptrOf(unsafe.Pointer(input))))
}

//export wire_off_topic_memory_test_output_vec_of_object_sync
func wire_off_topic_memory_test_output_vec_of_object_sync(len C.int32_t) C.struct_WireSyncReturnStruct {
	return toC(Instance().SyncOutputVecOfObject(int32(len)))
}

//export wire_off_topic_memory_test_input_complex_struct_sync
func wire_off_topic_memory_test_input_complex_struct_sync(input *C.struct_wire_TreeNode) C.struct_WireSyncReturnStruct {
	return toC(Instance().SyncInputComplexStruct(ptrOf(unsafe.Pointer(input))))
}

//export wire_off_topic_memory_test_output_complex_struct_sync
func wire_off_topic_memory_test_output_complex_struct_sync(len C.int32_t) C.struct_WireSyncReturnStruct {
	return toC(Instance().SyncOutputComplexStruct(int32(len)))
}

//export wire_off_topic_deliberately_return_error_sync
func wire_off_topic_deliberately_return_error_sync() C.struct_WireSyncReturnStruct {
	return toC(Instance().SyncDeliberatelyReturnError())
}

//export wire_off_topic_deliberately_panic_sync
func wire_off_topic_deliberately_panic_sync() C.struct_WireSyncReturnStruct {
	return toC(Instance().SyncDeliberatelyPanic())
}

//export new_box_autoadd_tree_node_0
func new_box_autoadd_tree_node_0() *C.struct_wire_TreeNode {
	return (*C.struct_wire_TreeNode)(pointer(Instance().NewBoxAutoaddTreeNode()))
}

//export new_list_size_0
func new_list_size_0(len C.int32_t) *C.struct_wire_list_size {
	return (*C.struct_wire_list_size)(pointer(Instance().NewListSize(int32(len))))
}

//export new_list_tree_node_0
func new_list_tree_node_0(len C.int32_t) *C.struct_wire_list_tree_node {
	return (*C.struct_wire_list_tree_node)(pointer(Instance().NewListTreeNode(int32(len))))
}

//export new_uint_8_list_0
func new_uint_8_list_0(len C.int32_t) *C.struct_wire_uint_8_list {
	return (*C.struct_wire_uint_8_list)(pointer(Instance().NewUint8List(int32(len))))
}

//export free_WireSyncReturnStruct
func free_WireSyncReturnStruct(val C.struct_WireSyncReturnStruct) {
	Instance().FreeSyncReturn(dispatch.SyncReturn{
		Ptr:     ptrOf(unsafe.Pointer(val.ptr)),
		Len:     int32(val.len),
		Success: bool(val.success),
	})
}

func toC(sr dispatch.SyncReturn) C.struct_WireSyncReturnStruct {
	return C.struct_WireSyncReturnStruct{
		ptr:     (*C.uint8_t)(pointer(sr.Ptr)),
		len:     C.int32_t(sr.Len),
		success: C.bool(sr.Success),
	}
}

func ptrOf(p unsafe.Pointer) heap.Ptr {
	return heap.Ptr(uintptr(p))
}
