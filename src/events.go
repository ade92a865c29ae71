package ascs

/*------------------------------------------------------------------
 *
 * Purpose:	Binary event records raised to the application: length
 *		prefixed, subevent tagged, con_handle and ASE ID first,
 *		operation payload after. One registered handler receives
 *		them all.
 *
 *---------------------------------------------------------------*/

// PacketHandler receives the service's upward event records.
type PacketHandler func(event []byte)

// eventTypeServiceMeta tags every record emitted by this service.
const eventTypeServiceMeta uint8 = 0xF6

// Subevent identifies an upward event record.
type Subevent uint8

const (
	SubeventConnected                 Subevent = 0x01
	SubeventDisconnected              Subevent = 0x02
	SubeventCodecConfigurationRequest Subevent = 0x03
	SubeventQoSConfigurationRequest   Subevent = 0x04
	SubeventMetadataRequest           Subevent = 0x05
	SubeventStartReady                Subevent = 0x06
	SubeventDisable                   Subevent = 0x07
	SubeventStopReady                 Subevent = 0x08
	SubeventRelease                   Subevent = 0x09
	SubeventReleased                  Subevent = 0x0A
)

// Status values for the connected event.
const (
	StatusSuccess                 uint8 = 0x00
	StatusConnectionLimitExceeded uint8 = 0x09
)

func newEvent(subevent Subevent, con ConHandle, payload ...byte) []byte {
	event := make([]byte, 0, 5+len(payload))
	event = append(event, eventTypeServiceMeta, 0, byte(subevent))
	event = appendLittleEndian16(event, uint16(con))
	return append(event, payload...)
}

// emitEvent stamps the record's length byte once the payload is
// complete and hands it to the registered handler.
func (s *Server) emitEvent(event []byte) {
	if s.packetHandler == nil {
		return
	}
	event[1] = byte(len(event) - 2)
	s.packetHandler(event)
}

func (s *Server) emitConnected(con ConHandle, status uint8) {
	s.emitEvent(newEvent(SubeventConnected, con, status))
}

func (s *Server) emitDisconnected(con ConHandle) {
	s.emitEvent(newEvent(SubeventDisconnected, con))
}

// emitClientRequest raises the payload-free per-ASE request events:
// start ready, disable, stop ready, release, released.
func (s *Server) emitClientRequest(subevent Subevent, con ConHandle, aseID uint8) {
	s.emitEvent(newEvent(subevent, con, aseID))
}

func (s *Server) emitCodecConfigurationRequest(con ConHandle, aseID uint8, request *CodecConfigurationRequest) {
	s.emitEvent(request.appendRequest(newEvent(SubeventCodecConfigurationRequest, con, aseID)))
}

func (s *Server) emitQoSConfigurationRequest(con ConHandle, aseID uint8, qos *QoSConfiguration) {
	s.emitEvent(qos.appendValue(newEvent(SubeventQoSConfigurationRequest, con, aseID)))
}

func (s *Server) emitMetadataRequest(con ConHandle, aseID uint8, metadata *Metadata) {
	s.emitEvent(metadata.appendValue(newEvent(SubeventMetadataRequest, con, aseID)))
}

// Accessors for handler code. They expect a record produced by this
// package; short records yield zero values.

func EventSubevent(event []byte) Subevent {
	if len(event) < 3 || event[0] != eventTypeServiceMeta {
		return 0
	}
	return Subevent(event[2])
}

func EventConHandle(event []byte) ConHandle {
	if len(event) < 5 {
		return ConHandleInvalid
	}
	return ConHandle(littleEndianRead16(event, 3))
}

// EventStatus returns the status byte of a connected event.
func EventStatus(event []byte) uint8 {
	if len(event) < 6 {
		return 0
	}
	return event[5]
}

// EventASEID returns the ASE ID of a per-ASE request event.
func EventASEID(event []byte) uint8 {
	if len(event) < 6 {
		return 0
	}
	return event[5]
}

// EventCodecConfigurationRequest decodes the payload of a codec
// configuration request event.
func EventCodecConfigurationRequest(event []byte) CodecConfigurationRequest {
	if len(event) < 6 {
		return CodecConfigurationRequest{}
	}
	request, _ := parseCodecConfigurationRequest(event[6:])
	return request
}

// EventQoSConfiguration decodes the payload of a QoS configuration
// request event.
func EventQoSConfiguration(event []byte) QoSConfiguration {
	if len(event) < 6 {
		return QoSConfiguration{}
	}
	qos, _ := parseQoSConfiguration(event[6:])
	return qos
}

// EventMetadata decodes the payload of a metadata request event.
func EventMetadata(event []byte) Metadata {
	if len(event) < 6 {
		return Metadata{}
	}
	metadata, _ := parseMetadata(event[6:])
	return metadata
}
