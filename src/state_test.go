package ascs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitToState(t *testing.T) {
	tests := []struct {
		state   State
		role    Role
		opcode  Opcode
		target  State
		allowed bool
	}{
		{StateIdle, RoleSink, OpcodeConfigCodec, StateCodecConfigured, true},
		{StateIdle, RoleSource, OpcodeConfigCodec, StateCodecConfigured, true},
		{StateIdle, RoleSink, OpcodeConfigQoS, StateQoSConfigured, false},
		{StateIdle, RoleSink, OpcodeRelease, StateReleasing, false},

		{StateCodecConfigured, RoleSink, OpcodeConfigCodec, StateCodecConfigured, true},
		{StateCodecConfigured, RoleSink, OpcodeConfigQoS, StateQoSConfigured, true},
		{StateCodecConfigured, RoleSink, OpcodeRelease, StateReleasing, true},
		{StateCodecConfigured, RoleSink, OpcodeEnable, StateEnabling, false},

		{StateQoSConfigured, RoleSink, OpcodeConfigCodec, StateCodecConfigured, true},
		{StateQoSConfigured, RoleSink, OpcodeConfigQoS, StateQoSConfigured, true},
		{StateQoSConfigured, RoleSink, OpcodeEnable, StateEnabling, true},
		{StateQoSConfigured, RoleSink, OpcodeRelease, StateReleasing, true},
		{StateQoSConfigured, RoleSink, OpcodeDisable, StateQoSConfigured, false},

		{StateEnabling, RoleSink, OpcodeUpdateMetadata, StateEnabling, true},
		{StateEnabling, RoleSource, OpcodeReceiverStartReady, StateStreaming, true},
		{StateEnabling, RoleSource, OpcodeDisable, StateDisabling, true},
		{StateEnabling, RoleSource, OpcodeDisable, StateQoSConfigured, false},
		{StateEnabling, RoleSink, OpcodeDisable, StateQoSConfigured, true},
		{StateEnabling, RoleSink, OpcodeDisable, StateDisabling, false},
		{StateEnabling, RoleSink, OpcodeRelease, StateReleasing, true},
		{StateEnabling, RoleSink, OpcodeConfigCodec, StateCodecConfigured, false},

		{StateStreaming, RoleSink, OpcodeUpdateMetadata, StateStreaming, true},
		{StateStreaming, RoleSource, OpcodeDisable, StateDisabling, true},
		{StateStreaming, RoleSink, OpcodeDisable, StateQoSConfigured, true},
		{StateStreaming, RoleSink, OpcodeRelease, StateReleasing, true},
		{StateStreaming, RoleSource, OpcodeReceiverStopReady, StateQoSConfigured, false},

		{StateDisabling, RoleSource, OpcodeReceiverStopReady, StateQoSConfigured, true},
		{StateDisabling, RoleSource, OpcodeRelease, StateReleasing, true},
		{StateDisabling, RoleSink, OpcodeReceiverStopReady, StateQoSConfigured, false},
		{StateDisabling, RoleSource, OpcodeUpdateMetadata, StateDisabling, false},

		{StateReleasing, RoleSink, OpcodeReleased, StateIdle, true},
		{StateReleasing, RoleSink, OpcodeReleased, StateCodecConfigured, true},
		{StateReleasing, RoleSink, OpcodeReleased, StateQoSConfigured, false},
		{StateReleasing, RoleSink, OpcodeRelease, StateReleasing, false},
		{StateReleasing, RoleSink, OpcodeConfigCodec, StateCodecConfigured, false},
	}

	for _, test := range tests {
		name := fmt.Sprintf("%v_%s_op%02x_to_%v", test.state, test.role, uint8(test.opcode), test.target)
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.allowed, canTransitToState(test.state, test.role, test.opcode, test.target))
		})
	}
}

func TestCanTransitToState_NoOpcodeEscapesIdle(t *testing.T) {
	for opcode := OpcodeConfigQoS; opcode <= OpcodeReleased; opcode++ {
		for target := StateIdle; target < StateRFU; target++ {
			assert.False(t, canTransitToState(StateIdle, RoleSource, opcode, target),
				"opcode %#02x target %v", uint8(opcode), target)
		}
	}
}
