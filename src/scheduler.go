package ascs

/*------------------------------------------------------------------
 *
 * Purpose:	Per-connection notification scheduler. Work is a bitmap
 *		of tasks; one notification goes out per can-send-now
 *		slot, control point responses before ASE value changes,
 *		ASE value changes in endpoint index order.
 *
 *---------------------------------------------------------------*/

const (
	taskSendASEValueChanged      uint8 = 0x01
	taskSendControlPointResponse uint8 = 0x02
)

// scheduleTask arms a task on the connection. Arming the control point
// response is a no-op while the peer has not enabled control point
// notifications. The can-send-now slot is registered only when the
// bitmap transitions from empty, so at most one registration is
// outstanding per connection.
func (s *Server) scheduleTask(connection *ServerConnection, task uint8) {
	if connection.conHandle == ConHandleInvalid {
		s.resetClient(connection)
		return
	}

	if task == taskSendControlPointResponse && connection.controlPointClientConfiguration == 0 {
		logger.Debug("control point notifications disabled, dropping response", "con_handle", connection.conHandle)
		return
	}

	scheduled := connection.scheduledTasks
	connection.scheduledTasks |= task
	logger.Debug("scheduled tasks", "con_handle", connection.conHandle, "mask", connection.scheduledTasks)

	if scheduled == 0 {
		s.att.RequestCanSendNow(connection.conHandle, func() { s.canSendNow(connection) })
	}
}

// canSendNow drains exactly one task and re-arms itself while work
// remains. A connection whose handle went invalid since arming is reset
// and its pending work dropped.
func (s *Server) canSendNow(connection *ServerConnection) {
	if connection.conHandle == ConHandleInvalid {
		s.resetClient(connection)
		return
	}

	if connection.scheduledTasks&taskSendControlPointResponse != 0 {
		connection.scheduledTasks &^= taskSendControlPointResponse

		value := make([]byte, 0, 2+3*len(connection.response))
		value = append(value, byte(connection.responseOpcode), connection.responseASEsNum)
		if connection.responseASEsNum != 0xFF {
			for i := 0; i < int(connection.responseASEsNum); i++ {
				response := connection.response[i]
				value = append(value, response.aseID, byte(response.responseCode), byte(response.reason))
			}
		}
		s.att.Notify(connection.conHandle, s.controlPointHandle, value)

	} else if connection.scheduledTasks&taskSendASEValueChanged != 0 {
		connection.scheduledTasks &^= taskSendASEValueChanged

		notificationSent := false
		for i := range connection.streamendpoints {
			sep := &connection.streamendpoints[i]
			if !sep.valueChangedW2Notify {
				continue
			}
			if !notificationSent {
				notificationSent = true
				sep.valueChangedW2Notify = false
				sep.valueChangeInitiatedByClient = false
				s.att.Notify(connection.conHandle, sep.characteristic.ValueHandle, serializeASE(sep))
			} else {
				connection.scheduledTasks |= taskSendASEValueChanged
				break
			}
		}
	}

	if connection.scheduledTasks != 0 {
		s.att.RequestCanSendNow(connection.conHandle, func() { s.canSendNow(connection) })
	}
}

// scheduleValueChangedTask marks an endpoint's value as pending
// notification. Nothing is armed while the peer has not subscribed to
// the ASE characteristic.
func (s *Server) scheduleValueChangedTask(connection *ServerConnection, sep *streamendpoint) {
	if sep.valueChangedW2Notify {
		return
	}
	if sep.clientConfiguration == 0 {
		return
	}
	sep.valueChangedW2Notify = true
	s.scheduleTask(connection, taskSendASEValueChanged)
}
