package ascs

/*------------------------------------------------------------------
 *
 * Purpose:	Codec configuration records: the codec-specific
 *		configuration TLV blob, the client's codec configuration
 *		request, and the server codec configuration that the ASE
 *		characteristic exposes in the codec configured state.
 *
 *---------------------------------------------------------------*/

// Codec specific configuration TLV types.
const (
	CodecConfigurationTypeSamplingFrequency      uint8 = 0x01
	CodecConfigurationTypeFrameDuration          uint8 = 0x02
	CodecConfigurationTypeAudioChannelAllocation uint8 = 0x03
	CodecConfigurationTypeOctetsPerCodecFrame    uint8 = 0x04
	CodecConfigurationTypeCodecFrameBlocksPerSDU uint8 = 0x05
	CodecConfigurationTypeRFU                    uint8 = 0x06
)

// SpecificCodecConfiguration is the decoded codec specific configuration
// blob. Mask holds one bit per present TLV type (bit index == type).
type SpecificCodecConfiguration struct {
	Mask                       uint8
	SamplingFrequencyIndex     uint8
	FrameDurationIndex         uint8
	AudioChannelAllocationMask uint32
	OctetsPerCodecFrame        uint16
	CodecFrameBlocksPerSDU     uint8
}

// parseSpecificCodecConfiguration walks the TLV entries of a codec
// specific configuration blob. Each entry is length(1), type(1), value,
// with length covering type and value. Unknown types are skipped.
func parseSpecificCodecConfiguration(data []byte) SpecificCodecConfiguration {
	var config SpecificCodecConfiguration
	pos := 0
	for pos+1 < len(data) {
		entryLen := int(data[pos])
		entryType := data[pos+1]
		if entryLen == 0 || pos+1+entryLen > len(data) {
			break
		}
		value := data[pos+2 : pos+1+entryLen]
		switch entryType {
		case CodecConfigurationTypeSamplingFrequency:
			if len(value) >= 1 {
				config.SamplingFrequencyIndex = value[0]
				config.Mask |= 1 << CodecConfigurationTypeSamplingFrequency
			}
		case CodecConfigurationTypeFrameDuration:
			if len(value) >= 1 {
				config.FrameDurationIndex = value[0]
				config.Mask |= 1 << CodecConfigurationTypeFrameDuration
			}
		case CodecConfigurationTypeAudioChannelAllocation:
			if len(value) >= 4 {
				config.AudioChannelAllocationMask = littleEndianRead32(value, 0)
				config.Mask |= 1 << CodecConfigurationTypeAudioChannelAllocation
			}
		case CodecConfigurationTypeOctetsPerCodecFrame:
			if len(value) >= 2 {
				config.OctetsPerCodecFrame = littleEndianRead16(value, 0)
				config.Mask |= 1 << CodecConfigurationTypeOctetsPerCodecFrame
			}
		case CodecConfigurationTypeCodecFrameBlocksPerSDU:
			if len(value) >= 1 {
				config.CodecFrameBlocksPerSDU = value[0]
				config.Mask |= 1 << CodecConfigurationTypeCodecFrameBlocksPerSDU
			}
		}
		pos += 1 + entryLen
	}
	return config
}

// appendTLV emits one TLV entry per set mask bit, in type order.
func (c *SpecificCodecConfiguration) appendTLV(buf []byte) []byte {
	if c.Mask&(1<<CodecConfigurationTypeSamplingFrequency) != 0 {
		buf = append(buf, 2, CodecConfigurationTypeSamplingFrequency, c.SamplingFrequencyIndex)
	}
	if c.Mask&(1<<CodecConfigurationTypeFrameDuration) != 0 {
		buf = append(buf, 2, CodecConfigurationTypeFrameDuration, c.FrameDurationIndex)
	}
	if c.Mask&(1<<CodecConfigurationTypeAudioChannelAllocation) != 0 {
		buf = append(buf, 5, CodecConfigurationTypeAudioChannelAllocation)
		buf = appendLittleEndian32(buf, c.AudioChannelAllocationMask)
	}
	if c.Mask&(1<<CodecConfigurationTypeOctetsPerCodecFrame) != 0 {
		buf = append(buf, 3, CodecConfigurationTypeOctetsPerCodecFrame)
		buf = appendLittleEndian16(buf, c.OctetsPerCodecFrame)
	}
	if c.Mask&(1<<CodecConfigurationTypeCodecFrameBlocksPerSDU) != 0 {
		buf = append(buf, 2, CodecConfigurationTypeCodecFrameBlocksPerSDU, c.CodecFrameBlocksPerSDU)
	}
	return buf
}

func (c *SpecificCodecConfiguration) tlvLength() int {
	length := 0
	if c.Mask&(1<<CodecConfigurationTypeSamplingFrequency) != 0 {
		length += 3
	}
	if c.Mask&(1<<CodecConfigurationTypeFrameDuration) != 0 {
		length += 3
	}
	if c.Mask&(1<<CodecConfigurationTypeAudioChannelAllocation) != 0 {
		length += 6
	}
	if c.Mask&(1<<CodecConfigurationTypeOctetsPerCodecFrame) != 0 {
		length += 4
	}
	if c.Mask&(1<<CodecConfigurationTypeCodecFrameBlocksPerSDU) != 0 {
		length += 3
	}
	return length
}

// CodecConfigurationRequest is one Config Codec sub-request as written
// by the remote client, without the leading ASE ID.
type CodecConfigurationRequest struct {
	TargetLatency              uint8
	TargetPHY                  uint8
	CodingFormat               uint8
	CompanyID                  uint16
	VendorSpecificCodecID      uint16
	SpecificCodecConfiguration SpecificCodecConfiguration
}

// parseCodecConfigurationRequest decodes target latency(1), target
// phy(1), codec id(5), configuration length(1) and the configuration
// blob. Returns the number of bytes consumed. The frame length pass has
// already verified the sizes.
func parseCodecConfigurationRequest(data []byte) (CodecConfigurationRequest, int) {
	var request CodecConfigurationRequest
	if len(data) < 8 {
		return request, len(data)
	}
	request.TargetLatency = data[0]
	request.TargetPHY = data[1]
	request.CodingFormat = data[2]
	request.CompanyID = littleEndianRead16(data, 3)
	request.VendorSpecificCodecID = littleEndianRead16(data, 5)
	configLen := int(data[7])
	pos := 8
	if pos+configLen > len(data) {
		configLen = len(data) - pos
	}
	request.SpecificCodecConfiguration = parseSpecificCodecConfiguration(data[pos : pos+configLen])
	return request, pos + configLen
}

// appendRequest re-encodes the request, used for the codec configuration
// event payload.
func (r *CodecConfigurationRequest) appendRequest(buf []byte) []byte {
	buf = append(buf, r.TargetLatency, r.TargetPHY, r.CodingFormat)
	buf = appendLittleEndian16(buf, r.CompanyID)
	buf = appendLittleEndian16(buf, r.VendorSpecificCodecID)
	buf = append(buf, byte(r.SpecificCodecConfiguration.tlvLength()))
	return r.SpecificCodecConfiguration.appendTLV(buf)
}

// CodecConfiguration is the server side codec configuration applied by
// the application, exposed in the codec configured ASE state.
type CodecConfiguration struct {
	Framing                         uint8
	PreferredPHY                    uint8
	PreferredRetransmissionNumber   uint8
	MaxTransportLatencyMs           uint16
	PresentationDelayMinUs          uint32
	PresentationDelayMaxUs          uint32
	PreferredPresentationDelayMinUs uint32
	PreferredPresentationDelayMaxUs uint32
	CodingFormat                    uint8
	CompanyID                       uint16
	VendorSpecificCodecID           uint16
	SpecificCodecConfiguration      SpecificCodecConfiguration
}

// appendValue encodes the 22-byte codec configuration header followed by
// the length-prefixed codec specific configuration blob.
func (c *CodecConfiguration) appendValue(buf []byte) []byte {
	buf = append(buf, c.Framing, c.PreferredPHY, c.PreferredRetransmissionNumber)
	buf = appendLittleEndian16(buf, c.MaxTransportLatencyMs)
	buf = appendLittleEndian24(buf, c.PresentationDelayMinUs)
	buf = appendLittleEndian24(buf, c.PresentationDelayMaxUs)
	buf = appendLittleEndian24(buf, c.PreferredPresentationDelayMinUs)
	buf = appendLittleEndian24(buf, c.PreferredPresentationDelayMaxUs)
	buf = append(buf, c.CodingFormat)
	buf = appendLittleEndian16(buf, c.CompanyID)
	buf = appendLittleEndian16(buf, c.VendorSpecificCodecID)
	buf = append(buf, byte(c.SpecificCodecConfiguration.tlvLength()))
	return c.SpecificCodecConfiguration.appendTLV(buf)
}
