package ascs

/*------------------------------------------------------------------
 *
 * Purpose:	ASE state machine: states, control point opcodes,
 *		response and reason codes, and the transition check
 *		used by both the request validator and the apply API.
 *
 *---------------------------------------------------------------*/

// State of an audio stream endpoint, as exposed in the ASE
// characteristic value.
type State uint8

const (
	StateIdle            State = 0x00
	StateCodecConfigured State = 0x01
	StateQoSConfigured   State = 0x02
	StateEnabling        State = 0x03
	StateStreaming       State = 0x04
	StateDisabling       State = 0x05
	StateReleasing       State = 0x06
	StateRFU             State = 0x07
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCodecConfigured:
		return "codec-configured"
	case StateQoSConfigured:
		return "qos-configured"
	case StateEnabling:
		return "enabling"
	case StateStreaming:
		return "streaming"
	case StateDisabling:
		return "disabling"
	case StateReleasing:
		return "releasing"
	}
	return "rfu"
}

// Opcode of an ASE control point operation.
type Opcode uint8

const (
	OpcodeUnsupported        Opcode = 0x00
	OpcodeConfigCodec        Opcode = 0x01
	OpcodeConfigQoS          Opcode = 0x02
	OpcodeEnable             Opcode = 0x03
	OpcodeReceiverStartReady Opcode = 0x04
	OpcodeDisable            Opcode = 0x05
	OpcodeReceiverStopReady  Opcode = 0x06
	OpcodeUpdateMetadata     Opcode = 0x07
	OpcodeRelease            Opcode = 0x08
	OpcodeReleased           Opcode = 0x09
)

// ResponseCode reported per sub-request in the control point response.
type ResponseCode uint8

const (
	ResponseCodeSuccess                                ResponseCode = 0x00
	ResponseCodeUnsupportedOpcode                      ResponseCode = 0x01
	ResponseCodeInvalidLength                          ResponseCode = 0x02
	ResponseCodeInvalidASEID                           ResponseCode = 0x03
	ResponseCodeInvalidASE                             ResponseCode = 0x04
	ResponseCodeInvalidASEStateMachineTransition       ResponseCode = 0x05
	ResponseCodeInvalidASEDirection                    ResponseCode = 0x06
	ResponseCodeUnsupportedAudioCapabilities           ResponseCode = 0x07
	ResponseCodeUnsupportedConfigurationParameterValue ResponseCode = 0x08
	ResponseCodeRejectedConfigurationParameterValue    ResponseCode = 0x09
	ResponseCodeInvalidConfigurationParameterValue     ResponseCode = 0x0A
	ResponseCodeUnsupportedMetadata                    ResponseCode = 0x0B
	ResponseCodeRejectedMetadata                       ResponseCode = 0x0C
	ResponseCodeInvalidMetadata                        ResponseCode = 0x0D
	ResponseCodeInsufficientResources                  ResponseCode = 0x0E
	ResponseCodeUnspecifiedError                       ResponseCode = 0x0F
)

// RejectReason qualifies a rejected or invalid configuration parameter.
type RejectReason uint8

const (
	RejectReasonUnspecified                RejectReason = 0x00
	RejectReasonCodecID                    RejectReason = 0x01
	RejectReasonCodecSpecificConfiguration RejectReason = 0x02
	RejectReasonSDUInterval                RejectReason = 0x03
	RejectReasonFraming                    RejectReason = 0x04
	RejectReasonPHY                        RejectReason = 0x05
	RejectReasonMaximumSDUSize             RejectReason = 0x06
	RejectReasonRetransmissionNumber       RejectReason = 0x07
	RejectReasonMaxTransportLatency        RejectReason = 0x08
	RejectReasonPresentationDelay          RejectReason = 0x09
	RejectReasonInvalidASECISMapping       RejectReason = 0x0A
)

// canTransitToState reports whether an endpoint in the given state and
// role may move to targetState when driven by opcode. Both the control
// point validator and the apply entry points go through this check, so
// the externally observable state sequence is always a path in this
// table.
func canTransitToState(state State, role Role, opcode Opcode, targetState State) bool {
	switch state {
	case StateIdle:
		return opcode == OpcodeConfigCodec && targetState == StateCodecConfigured

	case StateCodecConfigured:
		switch opcode {
		case OpcodeConfigCodec:
			return targetState == StateCodecConfigured
		case OpcodeConfigQoS:
			return targetState == StateQoSConfigured
		case OpcodeRelease:
			return targetState == StateReleasing
		}
		return false

	case StateQoSConfigured:
		switch opcode {
		case OpcodeConfigCodec:
			return targetState == StateCodecConfigured
		case OpcodeConfigQoS:
			return targetState == StateQoSConfigured
		case OpcodeEnable:
			return targetState == StateEnabling
		case OpcodeRelease:
			return targetState == StateReleasing
		}
		return false

	case StateEnabling:
		switch opcode {
		case OpcodeUpdateMetadata:
			return targetState == StateEnabling
		case OpcodeReceiverStartReady:
			return targetState == StateStreaming
		case OpcodeDisable:
			if role == RoleSource {
				return targetState == StateDisabling
			}
			return targetState == StateQoSConfigured
		case OpcodeRelease:
			return targetState == StateReleasing
		}
		return false

	case StateStreaming:
		switch opcode {
		case OpcodeUpdateMetadata:
			return targetState == StateStreaming
		case OpcodeDisable:
			if role == RoleSource {
				return targetState == StateDisabling
			}
			return targetState == StateQoSConfigured
		case OpcodeRelease:
			return targetState == StateReleasing
		}
		return false

	case StateDisabling:
		// Only source endpoints pass through the disabling state.
		if role != RoleSource {
			return false
		}
		switch opcode {
		case OpcodeReceiverStopReady:
			return targetState == StateQoSConfigured
		case OpcodeRelease:
			return targetState == StateReleasing
		}
		return false

	case StateReleasing:
		if opcode != OpcodeReleased {
			return false
		}
		// Idle when the codec configuration is discarded, codec
		// configured when the server caches it. The released()
		// caller picks; the peer-visible RELEASED opcode carries no
		// caching flag.
		return targetState == StateIdle || targetState == StateCodecConfigured
	}

	return false
}
