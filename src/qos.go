package ascs

// QoSConfiguration is the 15-byte QoS record: one Config QoS sub-request
// without the leading ASE ID, and the ASE characteristic body in the QoS
// configured state.
type QoSConfiguration struct {
	CIGID                 uint8
	CISID                 uint8
	SDUInterval           uint32 // 24 bit, microseconds
	Framing               uint8
	PHY                   uint8
	MaxSDU                uint16
	RetransmissionNumber  uint8
	MaxTransportLatencyMs uint16
	PresentationDelayUs   uint32 // 24 bit
}

const qosConfigurationLength = 15

// parseQoSConfiguration decodes one QoS record and returns the number of
// bytes consumed.
func parseQoSConfiguration(data []byte) (QoSConfiguration, int) {
	var qos QoSConfiguration
	if len(data) < qosConfigurationLength {
		return qos, len(data)
	}
	qos.CIGID = data[0]
	qos.CISID = data[1]
	qos.SDUInterval = littleEndianRead24(data, 2)
	qos.Framing = data[5]
	qos.PHY = data[6]
	qos.MaxSDU = littleEndianRead16(data, 7)
	qos.RetransmissionNumber = data[9]
	qos.MaxTransportLatencyMs = littleEndianRead16(data, 10)
	qos.PresentationDelayUs = littleEndianRead24(data, 12)
	return qos, qosConfigurationLength
}

func (q *QoSConfiguration) appendValue(buf []byte) []byte {
	buf = append(buf, q.CIGID, q.CISID)
	buf = appendLittleEndian24(buf, q.SDUInterval)
	buf = append(buf, q.Framing, q.PHY)
	buf = appendLittleEndian16(buf, q.MaxSDU)
	buf = append(buf, q.RetransmissionNumber)
	buf = appendLittleEndian16(buf, q.MaxTransportLatencyMs)
	return appendLittleEndian24(buf, q.PresentationDelayUs)
}
