package ascs

/*------------------------------------------------------------------
 *
 * Purpose:	LE Audio metadata blob: length-prefixed TLV list carried
 *		by Enable and Update Metadata sub-requests and by the ASE
 *		characteristic in the enabling/streaming/disabling states.
 *
 *---------------------------------------------------------------*/

// Metadata TLV types.
const (
	MetadataTypePreferredAudioContexts uint8 = 0x01
	MetadataTypeStreamingAudioContexts uint8 = 0x02
	MetadataTypeProgramInfo            uint8 = 0x03
	MetadataTypeLanguage               uint8 = 0x04
	MetadataTypeCCIDList               uint8 = 0x05
	MetadataTypeParentalRating         uint8 = 0x06
	MetadataTypeProgramInfoURI         uint8 = 0x07
	MetadataTypeExtended               uint8 = 0xFE
	MetadataTypeVendorSpecific         uint8 = 0xFF
)

// Bit positions in Metadata.Mask. Standard types map to their own type
// value; the extended and vendor types sit above them, and any TLV with
// an unassigned type sets the RFU bit.
const (
	metadataMaskBitExtended uint16 = 8
	metadataMaskBitVendor   uint16 = 9
	metadataMaskBitRFU      uint16 = 10
)

// MetadataMaskRFU flags that the blob contained a TLV with a reserved
// type. The Update Metadata validator rejects such metadata outright;
// Enable does not check metadata content.
const MetadataMaskRFU uint16 = 1 << metadataMaskBitRFU

// Metadata is the decoded metadata blob. Mask holds one bit per present
// TLV type.
type Metadata struct {
	Mask                       uint16
	PreferredAudioContextsMask uint16
	StreamingAudioContextsMask uint16
	ProgramInfo                []byte
	LanguageCode               [3]byte
	CCIDs                      []byte
	ParentalRating             uint8
	ProgramInfoURI             []byte
	ExtendedMetadataType       uint16
	ExtendedMetadata           []byte
	VendorSpecificCompanyID    uint16
	VendorSpecificMetadata     []byte
}

// parseMetadata decodes a length-prefixed metadata TLV blob and returns
// the number of bytes consumed (length byte included). The frame length
// pass has already verified that the blob fits the buffer.
func parseMetadata(data []byte) (Metadata, int) {
	var metadata Metadata
	if len(data) < 1 {
		return metadata, 0
	}
	blobLen := int(data[0])
	if 1+blobLen > len(data) {
		blobLen = len(data) - 1
	}
	blob := data[1 : 1+blobLen]

	pos := 0
	for pos+1 < len(blob) {
		entryLen := int(blob[pos])
		entryType := blob[pos+1]
		if entryLen == 0 || pos+1+entryLen > len(blob) {
			break
		}
		value := blob[pos+2 : pos+1+entryLen]
		switch entryType {
		case MetadataTypePreferredAudioContexts:
			if len(value) >= 2 {
				metadata.PreferredAudioContextsMask = littleEndianRead16(value, 0)
				metadata.Mask |= 1 << uint16(MetadataTypePreferredAudioContexts)
			}
		case MetadataTypeStreamingAudioContexts:
			if len(value) >= 2 {
				metadata.StreamingAudioContextsMask = littleEndianRead16(value, 0)
				metadata.Mask |= 1 << uint16(MetadataTypeStreamingAudioContexts)
			}
		case MetadataTypeProgramInfo:
			metadata.ProgramInfo = append([]byte(nil), value...)
			metadata.Mask |= 1 << uint16(MetadataTypeProgramInfo)
		case MetadataTypeLanguage:
			if len(value) >= 3 {
				copy(metadata.LanguageCode[:], value)
				metadata.Mask |= 1 << uint16(MetadataTypeLanguage)
			}
		case MetadataTypeCCIDList:
			metadata.CCIDs = append([]byte(nil), value...)
			metadata.Mask |= 1 << uint16(MetadataTypeCCIDList)
		case MetadataTypeParentalRating:
			if len(value) >= 1 {
				metadata.ParentalRating = value[0]
				metadata.Mask |= 1 << uint16(MetadataTypeParentalRating)
			}
		case MetadataTypeProgramInfoURI:
			metadata.ProgramInfoURI = append([]byte(nil), value...)
			metadata.Mask |= 1 << uint16(MetadataTypeProgramInfoURI)
		case MetadataTypeExtended:
			if len(value) >= 2 {
				metadata.ExtendedMetadataType = littleEndianRead16(value, 0)
				metadata.ExtendedMetadata = append([]byte(nil), value[2:]...)
				metadata.Mask |= 1 << metadataMaskBitExtended
			}
		case MetadataTypeVendorSpecific:
			if len(value) >= 2 {
				metadata.VendorSpecificCompanyID = littleEndianRead16(value, 0)
				metadata.VendorSpecificMetadata = append([]byte(nil), value[2:]...)
				metadata.Mask |= 1 << metadataMaskBitVendor
			}
		default:
			metadata.Mask |= MetadataMaskRFU
		}
		pos += 1 + entryLen
	}
	return metadata, 1 + blobLen
}

func (m *Metadata) blobLength() int {
	length := 0
	if m.Mask&(1<<uint16(MetadataTypePreferredAudioContexts)) != 0 {
		length += 4
	}
	if m.Mask&(1<<uint16(MetadataTypeStreamingAudioContexts)) != 0 {
		length += 4
	}
	if m.Mask&(1<<uint16(MetadataTypeProgramInfo)) != 0 {
		length += 2 + len(m.ProgramInfo)
	}
	if m.Mask&(1<<uint16(MetadataTypeLanguage)) != 0 {
		length += 5
	}
	if m.Mask&(1<<uint16(MetadataTypeCCIDList)) != 0 {
		length += 2 + len(m.CCIDs)
	}
	if m.Mask&(1<<uint16(MetadataTypeParentalRating)) != 0 {
		length += 3
	}
	if m.Mask&(1<<uint16(MetadataTypeProgramInfoURI)) != 0 {
		length += 2 + len(m.ProgramInfoURI)
	}
	if m.Mask&(1<<metadataMaskBitExtended) != 0 {
		length += 4 + len(m.ExtendedMetadata)
	}
	if m.Mask&(1<<metadataMaskBitVendor) != 0 {
		length += 4 + len(m.VendorSpecificMetadata)
	}
	return length
}

// appendValue encodes the metadata as a length byte followed by one TLV
// per set mask bit. TLVs with reserved types are never re-emitted.
func (m *Metadata) appendValue(buf []byte) []byte {
	buf = append(buf, byte(m.blobLength()))
	if m.Mask&(1<<uint16(MetadataTypePreferredAudioContexts)) != 0 {
		buf = append(buf, 3, MetadataTypePreferredAudioContexts)
		buf = appendLittleEndian16(buf, m.PreferredAudioContextsMask)
	}
	if m.Mask&(1<<uint16(MetadataTypeStreamingAudioContexts)) != 0 {
		buf = append(buf, 3, MetadataTypeStreamingAudioContexts)
		buf = appendLittleEndian16(buf, m.StreamingAudioContextsMask)
	}
	if m.Mask&(1<<uint16(MetadataTypeProgramInfo)) != 0 {
		buf = append(buf, byte(1+len(m.ProgramInfo)), MetadataTypeProgramInfo)
		buf = append(buf, m.ProgramInfo...)
	}
	if m.Mask&(1<<uint16(MetadataTypeLanguage)) != 0 {
		buf = append(buf, 4, MetadataTypeLanguage)
		buf = append(buf, m.LanguageCode[:]...)
	}
	if m.Mask&(1<<uint16(MetadataTypeCCIDList)) != 0 {
		buf = append(buf, byte(1+len(m.CCIDs)), MetadataTypeCCIDList)
		buf = append(buf, m.CCIDs...)
	}
	if m.Mask&(1<<uint16(MetadataTypeParentalRating)) != 0 {
		buf = append(buf, 2, MetadataTypeParentalRating, m.ParentalRating)
	}
	if m.Mask&(1<<uint16(MetadataTypeProgramInfoURI)) != 0 {
		buf = append(buf, byte(1+len(m.ProgramInfoURI)), MetadataTypeProgramInfoURI)
		buf = append(buf, m.ProgramInfoURI...)
	}
	if m.Mask&(1<<metadataMaskBitExtended) != 0 {
		buf = append(buf, byte(3+len(m.ExtendedMetadata)), MetadataTypeExtended)
		buf = appendLittleEndian16(buf, m.ExtendedMetadataType)
		buf = append(buf, m.ExtendedMetadata...)
	}
	if m.Mask&(1<<metadataMaskBitVendor) != 0 {
		buf = append(buf, byte(3+len(m.VendorSpecificMetadata)), MetadataTypeVendorSpecific)
		buf = appendLittleEndian16(buf, m.VendorSpecificCompanyID)
		buf = append(buf, m.VendorSpecificMetadata...)
	}
	return buf
}
