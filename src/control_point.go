package ascs

/*------------------------------------------------------------------
 *
 * Purpose:	ASE control point request pipeline. A control point
 *		write is parsed in three passes: frame length check,
 *		per-sub-request semantic validation into the response
 *		vector, then a second parse of the same buffer that
 *		raises one event per accepted sub-request. The response
 *		notification is scheduled before the events fire, so the
 *		peer always sees the operation response before any value
 *		change the application causes from an event handler.
 *
 *---------------------------------------------------------------*/

// invalidLengthResponse is the Number_of_ASEs sentinel that collapses
// the response to the two-byte (opcode, 0xFF) form.
const invalidLengthResponse uint8 = 0xFF

// cisClaim tracks a (cig, cis) pair accepted for a direction earlier in
// the same control point write, before the application has applied it.
type cisClaim struct {
	role  Role
	cigID uint8
	cisID uint8
}

// HandleWrite dispatches GATT writes: control point operations, the
// control point CCCD and the per-ASE CCCDs. Control point writes are
// only honored for already attached clients; CCCD writes attach.
func (s *Server) HandleWrite(con ConHandle, attributeHandle uint16, data []byte) {
	if attributeHandle == s.controlPointHandle {
		if len(data) < 1 {
			return
		}
		connection := s.clientForConHandle(con)
		if connection == nil {
			return
		}
		s.handleControlPointWrite(connection, data)
		return
	}

	connection := s.getOrAttachClient(con)
	if connection == nil {
		return
	}

	if attributeHandle == s.controlPointClientConfigurationHandle {
		if len(data) >= 2 {
			connection.controlPointClientConfiguration = littleEndianRead16(data, 0)
		}
		return
	}

	for i := range connection.streamendpoints {
		sep := &connection.streamendpoints[i]
		if attributeHandle == sep.characteristic.ClientConfigurationHandle {
			if len(data) >= 2 {
				sep.clientConfiguration = littleEndianRead16(data, 0)
			}
			return
		}
	}
}

// controlPointOperationHasValidLength re-scans the sub-requests with
// opcode-specific sizing and verifies they consume the buffer exactly.
// Unknown opcodes pass so the dispatch can answer with the unsupported
// opcode sentinel.
func controlPointOperationHasValidLength(opcode Opcode, asesNum uint8, data []byte) bool {
	pos := 0
	switch opcode {
	case OpcodeConfigCodec:
		for i := 0; i < int(asesNum); i++ {
			// ase_id(1), latency(1), phy(1), codec_id(5), config_len(1)
			if len(data)-pos < 9 {
				return false
			}
			pos += 8
			codecConfigLen := int(data[pos])
			pos++
			if len(data)-pos < codecConfigLen {
				return false
			}
			pos += codecConfigLen
		}

	case OpcodeConfigQoS:
		// ase_id(1), cig_id(1), cis_id(1), sdu_interval(3), framing(1),
		// phy(1), max_sdu(2), retransmission_number(1),
		// max_transport_latency(2), presentation_delay(3)
		for i := 0; i < int(asesNum); i++ {
			if len(data)-pos < 16 {
				return false
			}
			pos += 16
		}

	case OpcodeEnable, OpcodeUpdateMetadata:
		for i := 0; i < int(asesNum); i++ {
			// ase_id(1), metadata_length(1), metadata
			if len(data)-pos < 2 {
				return false
			}
			pos++
			metadataLen := int(data[pos])
			pos++
			if len(data)-pos < metadataLen {
				return false
			}
			pos += metadataLen
		}

	case OpcodeReceiverStartReady, OpcodeDisable, OpcodeReceiverStopReady, OpcodeRelease, OpcodeReleased:
		// ases_num * ase_id(1)
		pos += int(asesNum)

	default:
		return true
	}

	return pos == len(data)
}

func (s *Server) updateResponse(connection *ServerConnection, index int, code ResponseCode, reason RejectReason) {
	connection.response[index].responseCode = code
	connection.response[index].reason = reason
}

// requestSuccessfullyProcessed reports whether sub-request index was
// accepted and, if so, marks the endpoint's next value change as client
// initiated.
func (s *Server) requestSuccessfullyProcessed(connection *ServerConnection, index int) bool {
	if connection.response[index].responseCode != ResponseCodeSuccess {
		return false
	}
	sep := s.streamendpointForASEID(connection, connection.response[index].aseID)
	if sep == nil {
		return false
	}
	sep.valueChangeInitiatedByClient = true
	return true
}

func (s *Server) prepareResponseForCodecConfiguration(connection *ServerConnection, index int, aseID uint8, request *CodecConfigurationRequest) {
	connection.response[index].aseID = aseID

	sep := s.streamendpointForASEID(connection, aseID)
	if sep == nil {
		s.updateResponse(connection, index, ResponseCodeInvalidASEID, 0)
		return
	}

	if !canTransitToState(sep.state, sep.characteristic.Role, OpcodeConfigCodec, StateCodecConfigured) {
		s.updateResponse(connection, index, ResponseCodeInvalidASEStateMachineTransition, 0)
		return
	}

	if request.TargetLatency >= TargetLatencyRFU {
		s.updateResponse(connection, index, ResponseCodeInvalidConfigurationParameterValue, RejectReasonMaxTransportLatency)
		return
	}

	if request.TargetPHY >= TargetPHYRFU {
		s.updateResponse(connection, index, ResponseCodeInvalidConfigurationParameterValue, RejectReasonPHY)
		return
	}

	if request.CodingFormat >= CodingFormatRFU && request.CodingFormat != CodingFormatVendorSpecific {
		s.updateResponse(connection, index, ResponseCodeInvalidConfigurationParameterValue, RejectReasonCodecID)
		return
	}

	switch request.CodingFormat {
	case CodingFormatLC3:
		if request.CompanyID != 0 {
			s.updateResponse(connection, index, ResponseCodeInvalidConfigurationParameterValue, RejectReasonCodecID)
			return
		}
		if request.VendorSpecificCodecID != 0 {
			s.updateResponse(connection, index, ResponseCodeInvalidConfigurationParameterValue, RejectReasonCodecID)
			return
		}
	case CodingFormatVendorSpecific:
		// Any company / vendor codec id goes.
	default:
		s.updateResponse(connection, index, ResponseCodeRejectedConfigurationParameterValue, RejectReasonCodecSpecificConfiguration)
		return
	}

	specific := &request.SpecificCodecConfiguration
	if specific.Mask&(1<<CodecConfigurationTypeSamplingFrequency) != 0 {
		if specific.SamplingFrequencyIndex == SamplingFrequencyIndexInvalid ||
			specific.SamplingFrequencyIndex >= SamplingFrequencyIndexRFU {
			s.updateResponse(connection, index, ResponseCodeInvalidConfigurationParameterValue, RejectReasonCodecSpecificConfiguration)
			return
		}
	}
	if specific.Mask&(1<<CodecConfigurationTypeFrameDuration) != 0 {
		if specific.FrameDurationIndex >= FrameDurationIndexRFU {
			s.updateResponse(connection, index, ResponseCodeInvalidConfigurationParameterValue, RejectReasonCodecSpecificConfiguration)
			return
		}
	}
	if specific.Mask&(1<<CodecConfigurationTypeAudioChannelAllocation) != 0 {
		if specific.AudioChannelAllocationMask >= AudioLocationMaskRFU {
			s.updateResponse(connection, index, ResponseCodeInvalidConfigurationParameterValue, RejectReasonCodecSpecificConfiguration)
			return
		}
	}
}

func (s *Server) prepareResponseForQoSConfiguration(connection *ServerConnection, index int, aseID uint8, qos *QoSConfiguration, claims *[]cisClaim) {
	connection.response[index].aseID = aseID

	sep := s.streamendpointForASEID(connection, aseID)
	if sep == nil {
		s.updateResponse(connection, index, ResponseCodeInvalidASEID, 0)
		return
	}

	if !canTransitToState(sep.state, sep.characteristic.Role, OpcodeConfigQoS, StateQoSConfigured) {
		s.updateResponse(connection, index, ResponseCodeInvalidASEStateMachineTransition, 0)
		return
	}

	// No two ASEs of the same direction may share a (cig, cis) pair on
	// one connection: neither with a pair already applied to another
	// endpoint, nor with a pair accepted earlier in this same write.
	role := sep.characteristic.Role
	for i := range connection.streamendpoints {
		other := &connection.streamendpoints[i]
		if other.characteristic.ASEID == aseID || other.characteristic.Role != role {
			continue
		}
		switch other.state {
		case StateQoSConfigured, StateEnabling, StateStreaming, StateDisabling:
			if qos.CIGID == other.qosConfiguration.CIGID && qos.CISID == other.qosConfiguration.CISID {
				s.updateResponse(connection, index, ResponseCodeInvalidConfigurationParameterValue, RejectReasonInvalidASECISMapping)
				return
			}
		}
	}
	for _, claim := range *claims {
		if claim.role == role && claim.cigID == qos.CIGID && claim.cisID == qos.CISID {
			s.updateResponse(connection, index, ResponseCodeInvalidConfigurationParameterValue, RejectReasonInvalidASECISMapping)
			return
		}
	}

	if qos.SDUInterval < 0x0000FF || qos.SDUInterval > 0x0FFFFF {
		s.updateResponse(connection, index, ResponseCodeInvalidConfigurationParameterValue, RejectReasonSDUInterval)
		return
	}

	if qos.Framing != sep.codecConfiguration.Framing {
		s.updateResponse(connection, index, ResponseCodeInvalidConfigurationParameterValue, RejectReasonFraming)
		return
	}

	if qos.PHY > phyMaskAll {
		s.updateResponse(connection, index, ResponseCodeInvalidConfigurationParameterValue, RejectReasonPHY)
		return
	}

	if qos.MaxSDU > 0x0FFF {
		s.updateResponse(connection, index, ResponseCodeInvalidConfigurationParameterValue, RejectReasonMaximumSDUSize)
		return
	}

	if qos.MaxTransportLatencyMs > sep.codecConfiguration.MaxTransportLatencyMs {
		s.updateResponse(connection, index, ResponseCodeInvalidConfigurationParameterValue, RejectReasonMaxTransportLatency)
		return
	}

	if qos.PresentationDelayUs < sep.codecConfiguration.PresentationDelayMinUs ||
		qos.PresentationDelayUs > sep.codecConfiguration.PresentationDelayMaxUs {
		s.updateResponse(connection, index, ResponseCodeInvalidConfigurationParameterValue, RejectReasonPresentationDelay)
		return
	}

	*claims = append(*claims, cisClaim{role: role, cigID: qos.CIGID, cisID: qos.CISID})
}

// prepareResponseForTargetState covers the opcodes whose sub-requests
// carry no parameters to check beyond the transition itself: enable,
// disable, release, released.
func (s *Server) prepareResponseForTargetState(connection *ServerConnection, index int, aseID uint8, targetState State) {
	connection.response[index].aseID = aseID

	sep := s.streamendpointForASEID(connection, aseID)
	if sep == nil {
		s.updateResponse(connection, index, ResponseCodeInvalidASEID, 0)
		return
	}

	if targetState == StateDisabling && sep.characteristic.Role != RoleSource {
		targetState = StateQoSConfigured
	}

	if !canTransitToState(sep.state, sep.characteristic.Role, connection.responseOpcode, targetState) {
		s.updateResponse(connection, index, ResponseCodeInvalidASEStateMachineTransition, 0)
		return
	}
}

func (s *Server) prepareResponseForMetadataUpdate(connection *ServerConnection, index int, aseID uint8, metadata *Metadata) {
	connection.response[index].aseID = aseID

	sep := s.streamendpointForASEID(connection, aseID)
	if sep == nil {
		s.updateResponse(connection, index, ResponseCodeInvalidASEID, 0)
		return
	}

	switch sep.state {
	case StateEnabling, StateStreaming:
	default:
		s.updateResponse(connection, index, ResponseCodeInvalidASEStateMachineTransition, 0)
		return
	}

	if metadata.Mask&MetadataMaskRFU != 0 {
		s.updateResponse(connection, index, ResponseCodeRejectedMetadata, 0)
		return
	}

	if metadata.Mask&(1<<uint16(MetadataTypePreferredAudioContexts)) != 0 &&
		metadata.PreferredAudioContextsMask >= AudioContextMaskRFU {
		s.updateResponse(connection, index, ResponseCodeInvalidMetadata, 0)
		return
	}
	if metadata.Mask&(1<<uint16(MetadataTypeStreamingAudioContexts)) != 0 &&
		metadata.StreamingAudioContextsMask >= AudioContextMaskRFU {
		s.updateResponse(connection, index, ResponseCodeInvalidMetadata, 0)
		return
	}
	if metadata.Mask&(1<<uint16(MetadataTypeParentalRating)) != 0 &&
		metadata.ParentalRating >= ParentalRatingRFU {
		s.updateResponse(connection, index, ResponseCodeInvalidMetadata, 0)
		return
	}
}

func (s *Server) prepareResponseForStartReady(connection *ServerConnection, index int, aseID uint8) {
	connection.response[index].aseID = aseID

	sep := s.streamendpointForASEID(connection, aseID)
	if sep == nil {
		s.updateResponse(connection, index, ResponseCodeInvalidASEID, 0)
		return
	}

	if sep.characteristic.Role == RoleSink {
		s.updateResponse(connection, index, ResponseCodeInvalidASEDirection, 0)
		return
	}

	if !canTransitToState(sep.state, sep.characteristic.Role, OpcodeReceiverStartReady, StateStreaming) {
		s.updateResponse(connection, index, ResponseCodeInvalidASEStateMachineTransition, 0)
		return
	}
}

func (s *Server) prepareResponseForStopReady(connection *ServerConnection, index int, aseID uint8) {
	connection.response[index].aseID = aseID

	sep := s.streamendpointForASEID(connection, aseID)
	if sep == nil {
		s.updateResponse(connection, index, ResponseCodeInvalidASEID, 0)
		return
	}

	if sep.characteristic.Role == RoleSink {
		s.updateResponse(connection, index, ResponseCodeInvalidASEDirection, 0)
		return
	}

	if !canTransitToState(sep.state, sep.characteristic.Role, OpcodeReceiverStopReady, StateQoSConfigured) {
		s.updateResponse(connection, index, ResponseCodeInvalidASEStateMachineTransition, 0)
		return
	}
}

func (s *Server) handleControlPointWrite(connection *ServerConnection, data []byte) {
	s.resetClientResponse(connection)

	pos := 0
	connection.responseOpcode = Opcode(data[pos])
	pos++
	if len(data) < 2 {
		connection.responseASEsNum = invalidLengthResponse
		s.scheduleTask(connection, taskSendControlPointResponse)
		return
	}

	connection.responseASEsNum = data[pos]
	pos++
	if connection.responseASEsNum == 0 || int(connection.responseASEsNum) > len(s.characteristics) {
		connection.responseASEsNum = invalidLengthResponse
		s.scheduleTask(connection, taskSendControlPointResponse)
		return
	}

	if !controlPointOperationHasValidLength(connection.responseOpcode, connection.responseASEsNum, data[pos:]) {
		connection.responseASEsNum = invalidLengthResponse
		s.scheduleTask(connection, taskSendControlPointResponse)
		return
	}

	// The buffer is parsed twice on purpose: the first pass builds the
	// operation response and schedules its notification, the second
	// raises the events for accepted sub-requests. An application that
	// applies a change from inside an event handler therefore arms its
	// value notification behind the already scheduled response.
	asesNum := int(connection.responseASEsNum)
	dataOffset := pos

	switch connection.responseOpcode {
	case OpcodeConfigCodec:
		for i := 0; i < asesNum; i++ {
			aseID := data[pos]
			pos++
			request, consumed := parseCodecConfigurationRequest(data[pos:])
			pos += consumed
			s.prepareResponseForCodecConfiguration(connection, i, aseID, &request)
		}
		s.scheduleTask(connection, taskSendControlPointResponse)

		for i := 0; i < asesNum; i++ {
			aseID := data[dataOffset]
			dataOffset++
			request, consumed := parseCodecConfigurationRequest(data[dataOffset:])
			dataOffset += consumed
			if s.requestSuccessfullyProcessed(connection, i) {
				s.emitCodecConfigurationRequest(connection.conHandle, aseID, &request)
			}
		}

	case OpcodeConfigQoS:
		claims := make([]cisClaim, 0, asesNum)
		for i := 0; i < asesNum; i++ {
			aseID := data[pos]
			pos++
			qos, consumed := parseQoSConfiguration(data[pos:])
			pos += consumed
			s.prepareResponseForQoSConfiguration(connection, i, aseID, &qos, &claims)
		}
		s.scheduleTask(connection, taskSendControlPointResponse)

		for i := 0; i < asesNum; i++ {
			aseID := data[dataOffset]
			dataOffset++
			qos, consumed := parseQoSConfiguration(data[dataOffset:])
			dataOffset += consumed
			if s.requestSuccessfullyProcessed(connection, i) {
				s.emitQoSConfigurationRequest(connection.conHandle, aseID, &qos)
			}
		}

	case OpcodeEnable:
		for i := 0; i < asesNum; i++ {
			aseID := data[pos]
			pos++
			_, consumed := parseMetadata(data[pos:])
			pos += consumed
			s.prepareResponseForTargetState(connection, i, aseID, StateEnabling)
		}
		s.scheduleTask(connection, taskSendControlPointResponse)

		for i := 0; i < asesNum; i++ {
			aseID := data[dataOffset]
			dataOffset++
			metadata, consumed := parseMetadata(data[dataOffset:])
			dataOffset += consumed
			if s.requestSuccessfullyProcessed(connection, i) {
				s.emitMetadataRequest(connection.conHandle, aseID, &metadata)
			}
		}

	case OpcodeReceiverStartReady:
		for i := 0; i < asesNum; i++ {
			s.prepareResponseForStartReady(connection, i, data[pos])
			pos++
		}
		s.scheduleTask(connection, taskSendControlPointResponse)

		for i := 0; i < asesNum; i++ {
			aseID := data[dataOffset]
			dataOffset++
			if s.requestSuccessfullyProcessed(connection, i) {
				s.emitClientRequest(SubeventStartReady, connection.conHandle, aseID)
			}
		}

	case OpcodeDisable:
		for i := 0; i < asesNum; i++ {
			s.prepareResponseForTargetState(connection, i, data[pos], StateDisabling)
			pos++
		}
		s.scheduleTask(connection, taskSendControlPointResponse)

		for i := 0; i < asesNum; i++ {
			aseID := data[dataOffset]
			dataOffset++
			if s.requestSuccessfullyProcessed(connection, i) {
				s.emitClientRequest(SubeventDisable, connection.conHandle, aseID)
			}
		}

	case OpcodeReceiverStopReady:
		for i := 0; i < asesNum; i++ {
			s.prepareResponseForStopReady(connection, i, data[pos])
			pos++
		}
		s.scheduleTask(connection, taskSendControlPointResponse)

		for i := 0; i < asesNum; i++ {
			aseID := data[dataOffset]
			dataOffset++
			if s.requestSuccessfullyProcessed(connection, i) {
				s.emitClientRequest(SubeventStopReady, connection.conHandle, aseID)
			}
		}

	case OpcodeUpdateMetadata:
		for i := 0; i < asesNum; i++ {
			aseID := data[pos]
			pos++
			metadata, consumed := parseMetadata(data[pos:])
			pos += consumed
			s.prepareResponseForMetadataUpdate(connection, i, aseID, &metadata)
		}
		s.scheduleTask(connection, taskSendControlPointResponse)

		for i := 0; i < asesNum; i++ {
			aseID := data[dataOffset]
			dataOffset++
			metadata, consumed := parseMetadata(data[dataOffset:])
			dataOffset += consumed
			if s.requestSuccessfullyProcessed(connection, i) {
				s.emitMetadataRequest(connection.conHandle, aseID, &metadata)
			}
		}

	case OpcodeRelease:
		for i := 0; i < asesNum; i++ {
			s.prepareResponseForTargetState(connection, i, data[pos], StateReleasing)
			pos++
		}
		s.scheduleTask(connection, taskSendControlPointResponse)

		for i := 0; i < asesNum; i++ {
			aseID := data[dataOffset]
			dataOffset++
			if s.requestSuccessfullyProcessed(connection, i) {
				s.emitClientRequest(SubeventRelease, connection.conHandle, aseID)
			}
		}

	case OpcodeReleased:
		for i := 0; i < asesNum; i++ {
			s.prepareResponseForTargetState(connection, i, data[pos], StateIdle)
			pos++
		}
		s.scheduleTask(connection, taskSendControlPointResponse)

		for i := 0; i < asesNum; i++ {
			aseID := data[dataOffset]
			dataOffset++
			if s.requestSuccessfullyProcessed(connection, i) {
				s.emitClientRequest(SubeventReleased, connection.conHandle, aseID)
			}
		}

	default:
		connection.responseASEsNum = invalidLengthResponse
		s.scheduleTask(connection, taskSendControlPointResponse)
	}
}
