package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperation_RequiresPrefix(t *testing.T) {
	_, ok := ParseOperation("call_say")
	assert.False(t, ok, "entries without the cvg_ prefix are not operations")

	_, ok = ParseOperation("ignore")
	assert.False(t, ok)

	op, ok := ParseOperation("cvg_call_say")
	require.True(t, ok)
	assert.Equal(t, "call_say", op.Name)
}

func TestParseOperation_Classification(t *testing.T) {
	cases := []struct {
		key    string
		class  OperationClass
		result ResultHandling
	}{
		{"cvg_call_say", OperationClassCall, ResultNone},
		{"cvg_call_drop", OperationClassCall, ResultNone},
		{"cvg_call_recording_start", OperationClassCall, ResultNone},
		{"cvg_call_bridge", OperationClassCall, ResultOutboundCall},
		{"cvg_call_forward", OperationClassCall, ResultOutboundCall},
		{"cvg_call_refer", OperationClassCall, ResultRefer},
		{"cvg_dialog_delete", OperationClassDialog, ResultNone},
		{"cvg_dialog_data", OperationClassDialog, ResultNone},
		{"cvg_something_else", OperationClassUnknown, ResultNone},
	}

	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			op, ok := ParseOperation(tc.key)
			require.True(t, ok)
			assert.Equal(t, tc.class, op.Class)
			assert.Equal(t, tc.result, op.Result)
		})
	}
}

func TestOperation_Path(t *testing.T) {
	op, _ := ParseOperation("cvg_call_recording_start")
	assert.Equal(t, "/call/recording/start", op.Path())

	op, _ = ParseOperation("cvg_call_say")
	assert.Equal(t, "/call/say", op.Path())
}
