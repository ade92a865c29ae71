package ascs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func drawSpecificCodecConfiguration(t *rapid.T) SpecificCodecConfiguration {
	var config SpecificCodecConfiguration
	if rapid.Bool().Draw(t, "has_freq") {
		config.SamplingFrequencyIndex = rapid.Byte().Draw(t, "freq")
		config.Mask |= 1 << CodecConfigurationTypeSamplingFrequency
	}
	if rapid.Bool().Draw(t, "has_duration") {
		config.FrameDurationIndex = rapid.Byte().Draw(t, "duration")
		config.Mask |= 1 << CodecConfigurationTypeFrameDuration
	}
	if rapid.Bool().Draw(t, "has_allocation") {
		config.AudioChannelAllocationMask = rapid.Uint32().Draw(t, "allocation")
		config.Mask |= 1 << CodecConfigurationTypeAudioChannelAllocation
	}
	if rapid.Bool().Draw(t, "has_octets") {
		config.OctetsPerCodecFrame = rapid.Uint16().Draw(t, "octets")
		config.Mask |= 1 << CodecConfigurationTypeOctetsPerCodecFrame
	}
	if rapid.Bool().Draw(t, "has_blocks") {
		config.CodecFrameBlocksPerSDU = rapid.Byte().Draw(t, "blocks")
		config.Mask |= 1 << CodecConfigurationTypeCodecFrameBlocksPerSDU
	}
	return config
}

func TestSpecificCodecConfiguration_TLVRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		config := drawSpecificCodecConfiguration(t)

		tlv := config.appendTLV(nil)
		assert.Equal(t, config.tlvLength(), len(tlv))

		parsed := parseSpecificCodecConfiguration(tlv)
		assert.Equal(t, config, parsed)
	})
}

func TestMetadata_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var metadata Metadata
		if rapid.Bool().Draw(t, "has_preferred") {
			metadata.PreferredAudioContextsMask = rapid.Uint16().Draw(t, "preferred")
			metadata.Mask |= 1 << uint16(MetadataTypePreferredAudioContexts)
		}
		if rapid.Bool().Draw(t, "has_streaming") {
			metadata.StreamingAudioContextsMask = rapid.Uint16().Draw(t, "streaming")
			metadata.Mask |= 1 << uint16(MetadataTypeStreamingAudioContexts)
		}
		if rapid.Bool().Draw(t, "has_program_info") {
			metadata.ProgramInfo = rapid.SliceOfN(rapid.Byte(), 0, 20).Draw(t, "program_info")
			metadata.Mask |= 1 << uint16(MetadataTypeProgramInfo)
		}
		if rapid.Bool().Draw(t, "has_language") {
			copy(metadata.LanguageCode[:], rapid.SliceOfN(rapid.Byte(), 3, 3).Draw(t, "language"))
			metadata.Mask |= 1 << uint16(MetadataTypeLanguage)
		}
		if rapid.Bool().Draw(t, "has_ccids") {
			metadata.CCIDs = rapid.SliceOfN(rapid.Byte(), 0, 8).Draw(t, "ccids")
			metadata.Mask |= 1 << uint16(MetadataTypeCCIDList)
		}
		if rapid.Bool().Draw(t, "has_rating") {
			metadata.ParentalRating = rapid.Byte().Draw(t, "rating")
			metadata.Mask |= 1 << uint16(MetadataTypeParentalRating)
		}
		if rapid.Bool().Draw(t, "has_vendor") {
			metadata.VendorSpecificCompanyID = rapid.Uint16().Draw(t, "company")
			metadata.VendorSpecificMetadata = rapid.SliceOfN(rapid.Byte(), 0, 10).Draw(t, "vendor")
			metadata.Mask |= 1 << metadataMaskBitVendor
		}

		// Byte-level round trip: parse(serialize) re-serializes to the
		// same blob and recovers the same mask.
		blob := metadata.appendValue(nil)
		parsed, consumed := parseMetadata(blob)
		assert.Equal(t, len(blob), consumed)
		assert.Equal(t, metadata.Mask, parsed.Mask)
		assert.Equal(t, blob, parsed.appendValue(nil))
	})
}

func TestQoSConfiguration_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		qos := QoSConfiguration{
			CIGID:                 rapid.Byte().Draw(t, "cig"),
			CISID:                 rapid.Byte().Draw(t, "cis"),
			SDUInterval:           rapid.Uint32Range(0, 0xFFFFFF).Draw(t, "interval"),
			Framing:               rapid.Byte().Draw(t, "framing"),
			PHY:                   rapid.Byte().Draw(t, "phy"),
			MaxSDU:                rapid.Uint16().Draw(t, "max_sdu"),
			RetransmissionNumber:  rapid.Byte().Draw(t, "rtn"),
			MaxTransportLatencyMs: rapid.Uint16().Draw(t, "latency"),
			PresentationDelayUs:   rapid.Uint32Range(0, 0xFFFFFF).Draw(t, "delay"),
		}

		record := qos.appendValue(nil)
		require.Len(t, record, qosConfigurationLength)

		parsed, consumed := parseQoSConfiguration(record)
		assert.Equal(t, qosConfigurationLength, consumed)
		assert.Equal(t, qos, parsed)
	})
}

func TestCodecConfigurationRequest_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		request := CodecConfigurationRequest{
			TargetLatency:              rapid.Byte().Draw(t, "latency"),
			TargetPHY:                  rapid.Byte().Draw(t, "phy"),
			CodingFormat:               rapid.Byte().Draw(t, "format"),
			CompanyID:                  rapid.Uint16().Draw(t, "company"),
			VendorSpecificCodecID:      rapid.Uint16().Draw(t, "vendor"),
			SpecificCodecConfiguration: drawSpecificCodecConfiguration(t),
		}

		record := request.appendRequest(nil)
		parsed, consumed := parseCodecConfigurationRequest(record)
		assert.Equal(t, len(record), consumed)
		assert.Equal(t, request, parsed)
	})
}

func TestSerializeASE_HeaderInEveryState(t *testing.T) {
	server, _ := buildTestService(t, 1, 0, 1)
	subscribeAll(server, 0x0010)
	sep := &server.clients[0].streamendpoints[0]
	sep.codecConfiguration = testCodecConfiguration()
	sep.qosConfiguration = QoSConfiguration{CIGID: 3, CISID: 4}

	for _, state := range []State{
		StateIdle, StateCodecConfigured, StateQoSConfigured,
		StateEnabling, StateStreaming, StateDisabling, StateReleasing,
	} {
		sep.state = state
		value := serializeASE(sep)
		require.GreaterOrEqual(t, len(value), 2)
		assert.Equal(t, uint8(1), value[0], "state %v", state)
		assert.Equal(t, byte(state), value[1], "state %v", state)
	}

	// State-dependent bodies.
	sep.state = StateIdle
	assert.Len(t, serializeASE(sep), 2)
	sep.state = StateReleasing
	assert.Len(t, serializeASE(sep), 2)
	sep.state = StateQoSConfigured
	assert.Len(t, serializeASE(sep), 2+qosConfigurationLength)
	sep.state = StateCodecConfigured
	assert.Len(t, serializeASE(sep), 2+22+1)
	sep.state = StateStreaming
	value := serializeASE(sep)
	assert.Equal(t, []byte{3, 4, 0}, value[2:])
}
