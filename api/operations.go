package api

import (
	"context"

	"github.com/suborbital/e2bridge/dispatch"
)

// OpRun and others are the operation names, as they appear after the
// wire_ prefix of the exported entry points
const (
	OpRun                             = "run"
	OpPassingComplexStructs           = "passing_complex_structs"
	OpReturningStructsWithBoxedFields = "returning_structs_with_boxed_fields"
	OpInputArray                      = "off_topic_memory_test_input_array"
	OpOutputZeroCopyBuffer            = "off_topic_memory_test_output_zero_copy_buffer"
	OpOutputVecU8                     = "off_topic_memory_test_output_vec_u8"
	OpInputVecOfObject                = "off_topic_memory_test_input_vec_of_object"
	OpOutputVecOfObject               = "off_topic_memory_test_output_vec_of_object"
	OpInputComplexStruct              = "off_topic_memory_test_input_complex_struct"
	OpOutputComplexStruct             = "off_topic_memory_test_output_complex_struct"
	OpDeliberatelyReturnError         = "off_topic_deliberately_return_error"
	OpDeliberatelyPanic               = "off_topic_deliberately_panic"
)

// Operations returns the operation table, in export order
func Operations() []dispatch.Operation {
	return []dispatch.Operation{
		{
			Name: OpRun,
			Exec: func(ctx context.Context, _ interface{}) (interface{}, error) {
				return Run(ctx), nil
			},
		},
		{
			Name: OpPassingComplexStructs,
			Take: takeTreeNode,
			Exec: func(ctx context.Context, args interface{}) (interface{}, error) {
				return PassingComplexStructs(ctx, args.(treeNode)), nil
			},
		},
		{
			Name: OpReturningStructsWithBoxedFields,
			Exec: func(ctx context.Context, _ interface{}) (interface{}, error) {
				return ReturningStructsWithBoxedFields(ctx), nil
			},
		},
		{
			Name: OpInputArray,
			Take: takeBytes,
			Exec: func(ctx context.Context, args interface{}) (interface{}, error) {
				return InputArray(ctx, args.([]byte)), nil
			},
		},
		{
			Name: OpOutputZeroCopyBuffer,
			Take: takeLen,
			Exec: func(ctx context.Context, args interface{}) (interface{}, error) {
				return OutputZeroCopyBuffer(ctx, args.(int32))
			},
		},
		{
			Name: OpOutputVecU8,
			Take: takeLen,
			Exec: func(ctx context.Context, args interface{}) (interface{}, error) {
				return OutputVecU8(ctx, args.(int32))
			},
		},
		{
			Name: OpInputVecOfObject,
			Take: takeSizes,
			Exec: func(ctx context.Context, args interface{}) (interface{}, error) {
				return InputVecOfObject(ctx, args.(sizes)), nil
			},
		},
		{
			Name: OpOutputVecOfObject,
			Take: takeLen,
			Exec: func(ctx context.Context, args interface{}) (interface{}, error) {
				return OutputVecOfObject(ctx, args.(int32))
			},
		},
		{
			Name: OpInputComplexStruct,
			Take: takeTreeNode,
			Exec: func(ctx context.Context, args interface{}) (interface{}, error) {
				return InputComplexStruct(ctx, args.(treeNode)), nil
			},
		},
		{
			Name: OpOutputComplexStruct,
			Take: takeLen,
			Exec: func(ctx context.Context, args interface{}) (interface{}, error) {
				return OutputComplexStruct(ctx, args.(int32))
			},
		},
		{
			Name: OpDeliberatelyReturnError,
			Exec: func(ctx context.Context, _ interface{}) (interface{}, error) {
				return nil, DeliberatelyReturnError(ctx)
			},
		},
		{
			Name: OpDeliberatelyPanic,
			Exec: func(ctx context.Context, _ interface{}) (interface{}, error) {
				DeliberatelyPanic(ctx)
				return nil, nil
			},
		},
	}
}
