package ascs

/*------------------------------------------------------------------
 *
 * Purpose:	Audio Stream Control Service server: stream endpoint
 *		registry, per-client connection table, ASE value
 *		serialization and the GATT read path.
 *
 *		The service is the GATT-level state engine of an LE Audio
 *		acceptor. Remote initiators read the ASE characteristics
 *		and drive them through the codec/QoS/enable/stream
 *		lifecycle by writing the ASE control point; the
 *		application hears about accepted operations through
 *		event records and applies them via the entry points in
 *		streamendpoint.go.
 *
 *---------------------------------------------------------------*/

import (
	"errors"

	"github.com/charmbracelet/log"
)

var logger = log.WithPrefix("ascs")

// ASECharacteristic is one audio stream endpoint characteristic. The
// registry fills these at init from the attribute table: sink endpoints
// first, then source endpoints, with ASE IDs assigned from a shared
// counter.
type ASECharacteristic struct {
	ASEID                     uint8
	Role                      Role
	ValueHandle               uint16
	ClientConfigurationHandle uint16
}

// streamendpoint is the per-client runtime state of one ASE.
type streamendpoint struct {
	characteristic *ASECharacteristic

	state              State
	codecConfiguration CodecConfiguration
	qosConfiguration   QoSConfiguration
	metadata           Metadata

	clientConfiguration          uint16
	valueChangeInitiatedByClient bool
	valueChangedW2Notify         bool
}

type controlPointResponse struct {
	aseID        uint8
	responseCode ResponseCode
	reason       RejectReason
}

// ServerConnection is one remote client slot. The caller provides the
// slot storage at init; a slot whose con handle is the invalid sentinel
// is free.
type ServerConnection struct {
	conHandle ConHandle

	controlPointClientConfiguration uint16

	responseOpcode  Opcode
	responseASEsNum uint8
	response        []controlPointResponse

	scheduledTasks uint8

	streamendpoints []streamendpoint
}

// Server is the ASCS server instance.
type Server struct {
	att           ATTServer
	packetHandler PacketHandler

	characteristics []ASECharacteristic
	clients         []ServerConnection
	idCounter       uint8

	startHandle uint16
	endHandle   uint16

	controlPointHandle                    uint16
	controlPointClientConfigurationHandle uint16
}

var errServiceNotFound = errors.New("ascs: audio stream control service not present in attribute table")

// NewServer locates the service in the attribute table, fills the
// characteristic templates (sink endpoints first, then source
// endpoints) and prepares the client slots. Both slices are caller
// provided storage, borrowed for the server's lifetime; the
// characteristics slice is truncated to the endpoints actually found.
func NewServer(att ATTServer, characteristics []ASECharacteristic, clients []ServerConnection) (*Server, error) {
	if len(characteristics) == 0 || len(clients) == 0 {
		return nil, errors.New("ascs: need at least one streamendpoint characteristic and one client slot")
	}

	startHandle, endHandle, found := att.ServiceHandleRange(UUIDServiceAudioStreamControl)
	if !found {
		return nil, errServiceNotFound
	}
	logger.Info("found service", "start", startHandle, "end", endHandle)

	s := &Server{
		att:             att,
		characteristics: characteristics[:0],
		clients:         clients,
		startHandle:     startHandle,
		endHandle:       endHandle,
	}

	s.scanStreamendpoints(characteristics, RoleSink, UUIDCharacteristicSinkASE)
	s.scanStreamendpoints(characteristics, RoleSource, UUIDCharacteristicSourceASE)
	if len(s.characteristics) == 0 {
		return nil, errors.New("ascs: no ASE characteristics in service")
	}

	s.controlPointHandle = att.CharacteristicValueHandle(startHandle, endHandle, UUIDCharacteristicASEControl)
	s.controlPointClientConfigurationHandle = att.CharacteristicClientConfigurationHandle(startHandle, endHandle, UUIDCharacteristicASEControl)
	if s.controlPointHandle == 0 {
		return nil, errors.New("ascs: ASE control point characteristic not present")
	}

	for i := range s.clients {
		client := &s.clients[i]
		*client = ServerConnection{
			conHandle:       ConHandleInvalid,
			response:        make([]controlPointResponse, len(s.characteristics)),
			streamendpoints: make([]streamendpoint, len(s.characteristics)),
		}
		for j := range client.streamendpoints {
			client.streamendpoints[j].state = StateIdle
			client.streamendpoints[j].characteristic = &s.characteristics[j]
		}
	}

	return s, nil
}

// RegisterPacketHandler sets the handler that receives the upward event
// records. Must be called before any client traffic.
func (s *Server) RegisterPacketHandler(handler PacketHandler) {
	s.packetHandler = handler
}

// Deinit detaches the event handler. The caller owns the storage passed
// to NewServer and may free it afterwards.
func (s *Server) Deinit() {
	s.packetHandler = nil
}

// nextStreamendpointID assigns ASE IDs from a monotone counter that
// wraps past 0xFF back to 1; ID 0 is reserved and never assigned.
func (s *Server) nextStreamendpointID() uint8 {
	if s.idCounter == 0xFF {
		s.idCounter = 1
	} else {
		s.idCounter++
	}
	return s.idCounter
}

func (s *Server) scanStreamendpoints(storage []ASECharacteristic, role Role, uuid16 uint16) {
	start := s.startHandle
	for start < s.endHandle && len(s.characteristics) < len(storage) {
		valueHandle := s.att.CharacteristicValueHandle(start, s.endHandle, uuid16)
		if valueHandle == 0 {
			break
		}
		cccdHandle := s.att.CharacteristicClientConfigurationHandle(start, s.endHandle, uuid16)

		s.characteristics = append(s.characteristics, ASECharacteristic{
			ASEID:                     s.nextStreamendpointID(),
			Role:                      role,
			ValueHandle:               valueHandle,
			ClientConfigurationHandle: cccdHandle,
		})
		logger.Debug("registered streamendpoint",
			"ase_id", s.characteristics[len(s.characteristics)-1].ASEID,
			"role", role, "value_handle", valueHandle)

		start = cccdHandle + 1
	}
}

func (s *Server) clientForConHandle(con ConHandle) *ServerConnection {
	if con == ConHandleInvalid {
		return nil
	}
	for i := range s.clients {
		if s.clients[i].conHandle == con {
			return &s.clients[i]
		}
	}
	return nil
}

func (s *Server) addClient(con ConHandle) *ServerConnection {
	for i := range s.clients {
		if s.clients[i].conHandle == ConHandleInvalid {
			s.clients[i].conHandle = con
			logger.Info("added client", "con_handle", con, "index", i)
			return &s.clients[i]
		}
	}
	return nil
}

// getOrAttachClient returns the slot for con, attaching a free one when
// none matches. Attachment raises a connected event; slot exhaustion
// raises one with connection-limit status and yields nil.
func (s *Server) getOrAttachClient(con ConHandle) *ServerConnection {
	if connection := s.clientForConHandle(con); connection != nil {
		return connection
	}
	connection := s.addClient(con)
	if connection == nil {
		s.emitConnected(con, StatusConnectionLimitExceeded)
		logger.Info("client slots exhausted", "con_handle", con, "slots", len(s.clients))
		return nil
	}
	s.emitConnected(con, StatusSuccess)
	return connection
}

func (s *Server) streamendpointForASEID(connection *ServerConnection, aseID uint8) *streamendpoint {
	for i := range connection.streamendpoints {
		if connection.streamendpoints[i].characteristic.ASEID == aseID {
			return &connection.streamendpoints[i]
		}
	}
	logger.Debug("no streamendpoint", "ase_id", aseID)
	return nil
}

func (s *Server) resetClientResponse(connection *ServerConnection) {
	connection.responseOpcode = OpcodeUnsupported
	connection.responseASEsNum = 0
	for i := range connection.response {
		connection.response[i] = controlPointResponse{}
	}
}

func (s *Server) resetClientStreamendpoints(connection *ServerConnection) {
	for i := range connection.streamendpoints {
		sep := &connection.streamendpoints[i]
		characteristic := sep.characteristic
		*sep = streamendpoint{characteristic: characteristic, state: StateIdle}
	}
}

func (s *Server) resetClient(connection *ServerConnection) {
	if connection == nil {
		return
	}
	connection.scheduledTasks = 0
	connection.conHandle = ConHandleInvalid
	connection.controlPointClientConfiguration = 0
	s.resetClientResponse(connection)
	s.resetClientStreamendpoints(connection)
}

// HandleDisconnect resets the slot of a disconnected client and raises
// the disconnected event. Pending notifications are dropped with it.
func (s *Server) HandleDisconnect(con ConHandle) {
	connection := s.clientForConHandle(con)
	if connection == nil {
		return
	}
	s.resetClient(connection)
	s.emitDisconnected(con)
	logger.Info("client disconnected", "con_handle", con)
}

// serializeASE encodes the externally visible ASE value: ASE ID, state,
// and the state-dependent body. Reads and notifications share this
// encoding.
func serializeASE(sep *streamendpoint) []byte {
	value := make([]byte, 0, 64)
	value = append(value, sep.characteristic.ASEID, byte(sep.state))

	switch sep.state {
	case StateCodecConfigured:
		value = sep.codecConfiguration.appendValue(value)
	case StateQoSConfigured:
		value = sep.qosConfiguration.appendValue(value)
	case StateEnabling, StateStreaming, StateDisabling:
		value = append(value, sep.qosConfiguration.CIGID, sep.qosConfiguration.CISID)
		value = sep.metadata.appendValue(value)
	}
	return value
}

// HandleRead serves GATT reads of the service's attributes: ASE values,
// per-ASE CCCDs and the control point CCCD. Returns the number of bytes
// written into buf.
func (s *Server) HandleRead(con ConHandle, attributeHandle uint16, offset uint16, buf []byte) uint16 {
	connection := s.getOrAttachClient(con)
	if connection == nil {
		return 0
	}

	if attributeHandle == s.controlPointClientConfigurationHandle {
		return attReadLittleEndian16(connection.controlPointClientConfiguration, offset, buf)
	}

	for i := range connection.streamendpoints {
		sep := &connection.streamendpoints[i]
		if attributeHandle == sep.characteristic.ValueHandle {
			return attReadBlob(serializeASE(sep), offset, buf)
		}
		if attributeHandle == sep.characteristic.ClientConfigurationHandle {
			return attReadLittleEndian16(sep.clientConfiguration, offset, buf)
		}
	}

	// No attribute of this service matched; release the slot again.
	connection.conHandle = ConHandleInvalid
	return 0
}

// StreamendpointState reports the current state of an ASE for a
// connected client.
func (s *Server) StreamendpointState(con ConHandle, aseID uint8) (State, bool) {
	connection := s.clientForConHandle(con)
	if connection == nil {
		return StateIdle, false
	}
	sep := s.streamendpointForASEID(connection, aseID)
	if sep == nil {
		return StateIdle, false
	}
	return sep.state, true
}
