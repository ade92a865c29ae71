package ascs

/*------------------------------------------------------------------
 *
 * Purpose:	Apply entry points. After the control point pipeline has
 *		raised an event for an accepted sub-request, the
 *		application calls one of these to actually apply the
 *		configuration, advance the endpoint state and arm the
 *		value changed notification.
 *
 *		Misuse (unknown handle, unknown ASE, wrong state) is a
 *		silent no-op: the peer-facing state machine has already
 *		rejected every peer-driven path here, and an internal
 *		mistake must not take the stack down.
 *
 *---------------------------------------------------------------*/

// transitToState resolves the endpoint, re-checks the transition and
// applies it. Returns the connection and endpoint on success.
func (s *Server) transitToState(con ConHandle, aseID uint8, opcode Opcode, targetState State) (*ServerConnection, *streamendpoint, bool) {
	connection := s.clientForConHandle(con)
	if connection == nil {
		logger.Debug("no client", "con_handle", con)
		return nil, nil, false
	}
	sep := s.streamendpointForASEID(connection, aseID)
	if sep == nil {
		logger.Debug("no streamendpoint", "con_handle", con, "ase_id", aseID)
		return nil, nil, false
	}
	if !canTransitToState(sep.state, sep.characteristic.Role, opcode, targetState) {
		logger.Debug("transition rejected", "con_handle", con, "ase_id", aseID,
			"state", sep.state, "opcode", opcode, "target", targetState)
		return nil, nil, false
	}
	logger.Info("transition", "con_handle", con, "ase_id", aseID, "from", sep.state, "to", targetState)
	sep.state = targetState
	return connection, sep, true
}

// ConfigureCodec applies a codec configuration and moves the endpoint to
// the codec configured state.
func (s *Server) ConfigureCodec(con ConHandle, aseID uint8, configuration CodecConfiguration) {
	connection, sep, ok := s.transitToState(con, aseID, OpcodeConfigCodec, StateCodecConfigured)
	if !ok {
		return
	}
	sep.codecConfiguration = configuration
	s.scheduleValueChangedTask(connection, sep)
}

// ConfigureQoS applies a QoS configuration and moves the endpoint to the
// QoS configured state.
func (s *Server) ConfigureQoS(con ConHandle, aseID uint8, configuration QoSConfiguration) {
	connection, sep, ok := s.transitToState(con, aseID, OpcodeConfigQoS, StateQoSConfigured)
	if !ok {
		return
	}
	sep.qosConfiguration = configuration
	s.scheduleValueChangedTask(connection, sep)
}

// Enable moves the endpoint to the enabling state.
func (s *Server) Enable(con ConHandle, aseID uint8) {
	connection, sep, ok := s.transitToState(con, aseID, OpcodeEnable, StateEnabling)
	if !ok {
		return
	}
	s.scheduleValueChangedTask(connection, sep)
}

// ReceiverStartReady moves an enabling endpoint to the streaming state.
// The control point accepts this opcode only for source endpoints; for a
// sink endpoint the application calls it directly.
func (s *Server) ReceiverStartReady(con ConHandle, aseID uint8) {
	connection, sep, ok := s.transitToState(con, aseID, OpcodeReceiverStartReady, StateStreaming)
	if !ok {
		return
	}
	s.scheduleValueChangedTask(connection, sep)
}

// Disable moves a source endpoint to the disabling state and a sink
// endpoint straight back to QoS configured.
func (s *Server) Disable(con ConHandle, aseID uint8) {
	connection := s.clientForConHandle(con)
	if connection == nil {
		return
	}
	sep := s.streamendpointForASEID(connection, aseID)
	if sep == nil {
		return
	}

	targetState := StateQoSConfigured
	if sep.characteristic.Role == RoleSource {
		targetState = StateDisabling
	}

	if !canTransitToState(sep.state, sep.characteristic.Role, OpcodeDisable, targetState) {
		return
	}
	logger.Info("transition", "con_handle", con, "ase_id", aseID, "from", sep.state, "to", targetState)
	sep.state = targetState
	s.scheduleValueChangedTask(connection, sep)
}

// ReceiverStopReady moves a source endpoint from disabling back to QoS
// configured.
func (s *Server) ReceiverStopReady(con ConHandle, aseID uint8) {
	connection, sep, ok := s.transitToState(con, aseID, OpcodeReceiverStopReady, StateQoSConfigured)
	if !ok {
		return
	}
	s.scheduleValueChangedTask(connection, sep)
}

// Release moves the endpoint to the releasing state.
func (s *Server) Release(con ConHandle, aseID uint8) {
	connection, sep, ok := s.transitToState(con, aseID, OpcodeRelease, StateReleasing)
	if !ok {
		return
	}
	s.scheduleValueChangedTask(connection, sep)
}

// Released completes a release: with caching the endpoint keeps its
// codec configuration and returns to codec configured, without it the
// endpoint returns to idle. The peer-visible RELEASED opcode carries no
// caching flag; the choice is the application's.
func (s *Server) Released(con ConHandle, aseID uint8, caching bool) {
	targetState := StateIdle
	if caching {
		targetState = StateCodecConfigured
	}
	connection, sep, ok := s.transitToState(con, aseID, OpcodeReleased, targetState)
	if !ok {
		return
	}
	if !caching {
		sep.codecConfiguration = CodecConfiguration{}
	}
	sep.qosConfiguration = QoSConfiguration{}
	sep.metadata = Metadata{}
	s.scheduleValueChangedTask(connection, sep)
}

// MetadataUpdate replaces the endpoint's metadata. Only endpoints in the
// enabling or streaming state carry metadata.
func (s *Server) MetadataUpdate(con ConHandle, aseID uint8, metadata Metadata) {
	connection := s.clientForConHandle(con)
	if connection == nil {
		return
	}
	sep := s.streamendpointForASEID(connection, aseID)
	if sep == nil {
		return
	}
	switch sep.state {
	case StateEnabling, StateStreaming:
		sep.metadata = metadata
		s.scheduleValueChangedTask(connection, sep)
	}
}
