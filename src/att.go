package ascs

/*------------------------------------------------------------------
 *
 * Purpose:	Attribute server contract and a small in-memory
 *		implementation of it. The service core only needs handle
 *		lookup by UUID, notifications, and a one-shot
 *		can-send-now slot per connection; everything else about
 *		GATT stays on the other side of this interface.
 *
 *---------------------------------------------------------------*/

// ATTServer is the subset of the GATT attribute server the service
// drives. Handle lookups scan forward from the start handle, so repeated
// characteristics of the same UUID are found by advancing start past the
// previous match.
type ATTServer interface {
	ServiceHandleRange(uuid16 uint16) (start, end uint16, ok bool)
	CharacteristicValueHandle(start, end, uuid16 uint16) uint16
	CharacteristicClientConfigurationHandle(start, end, uuid16 uint16) uint16
	Notify(con ConHandle, attributeHandle uint16, value []byte)
	RequestCanSendNow(con ConHandle, task func())
}

// attReadBlob implements standard long-read offset handling: copy value
// from offset into buf, return the number of bytes copied.
func attReadBlob(value []byte, offset uint16, buf []byte) uint16 {
	if int(offset) >= len(value) {
		return 0
	}
	return uint16(copy(buf, value[offset:]))
}

// attReadLittleEndian16 serves a 16-bit little-endian attribute value,
// CCCD reads in particular.
func attReadLittleEndian16(value uint16, offset uint16, buf []byte) uint16 {
	var tmp [2]byte
	littleEndianStore16(tmp[:], 0, value)
	return attReadBlob(tmp[:], offset, buf)
}

type attributeKind uint8

const (
	attributeKindService attributeKind = iota
	attributeKindCharacteristicValue
	attributeKindClientConfiguration
)

type attribute struct {
	handle uint16
	uuid16 uint16
	kind   attributeKind
}

// AttributeTable is a minimal GATT attribute database: services followed
// by their characteristics, handles assigned sequentially. It backs the
// lookup half of the ATTServer interface.
type AttributeTable struct {
	attributes []attribute
	nextHandle uint16
}

func NewAttributeTable() *AttributeTable {
	return &AttributeTable{nextHandle: 0x0001}
}

// AddService appends a service declaration and returns its handle.
func (t *AttributeTable) AddService(uuid16 uint16) uint16 {
	handle := t.nextHandle
	t.nextHandle++
	t.attributes = append(t.attributes, attribute{handle: handle, uuid16: uuid16, kind: attributeKindService})
	return handle
}

// AddCharacteristic appends a characteristic value attribute and, when
// withCCCD is set, its client characteristic configuration descriptor.
// Returns the value handle and the CCCD handle (0 without CCCD).
func (t *AttributeTable) AddCharacteristic(uuid16 uint16, withCCCD bool) (valueHandle, cccdHandle uint16) {
	// The declaration attribute itself only burns a handle.
	t.nextHandle++

	valueHandle = t.nextHandle
	t.nextHandle++
	t.attributes = append(t.attributes, attribute{handle: valueHandle, uuid16: uuid16, kind: attributeKindCharacteristicValue})

	if withCCCD {
		cccdHandle = t.nextHandle
		t.nextHandle++
		t.attributes = append(t.attributes, attribute{handle: cccdHandle, uuid16: uuid16, kind: attributeKindClientConfiguration})
	}
	return valueHandle, cccdHandle
}

// ServiceHandleRange returns the handle range of the first service with
// the given UUID: from its declaration up to the attribute before the
// next service declaration, or 0xFFFF for the last service.
func (t *AttributeTable) ServiceHandleRange(uuid16 uint16) (uint16, uint16, bool) {
	for i, a := range t.attributes {
		if a.kind != attributeKindService || a.uuid16 != uuid16 {
			continue
		}
		end := uint16(0xFFFF)
		for _, b := range t.attributes[i+1:] {
			if b.kind == attributeKindService {
				end = b.handle - 1
				break
			}
		}
		return a.handle, end, true
	}
	return 0, 0, false
}

func (t *AttributeTable) findCharacteristic(start, end, uuid16 uint16, kind attributeKind) uint16 {
	for _, a := range t.attributes {
		if a.handle < start || a.handle > end {
			continue
		}
		if a.kind == kind && a.uuid16 == uuid16 {
			return a.handle
		}
	}
	return 0
}

func (t *AttributeTable) CharacteristicValueHandle(start, end, uuid16 uint16) uint16 {
	return t.findCharacteristic(start, end, uuid16, attributeKindCharacteristicValue)
}

func (t *AttributeTable) CharacteristicClientConfigurationHandle(start, end, uuid16 uint16) uint16 {
	return t.findCharacteristic(start, end, uuid16, attributeKindClientConfiguration)
}

// Notification is one recorded ATT notification.
type Notification struct {
	Con             ConHandle
	AttributeHandle uint16
	Value           []byte
}

type canSendNowRegistration struct {
	con  ConHandle
	task func()
}

// LoopbackATT implements ATTServer over an AttributeTable without any
// transport. Notifications are recorded and can-send-now registrations
// queue until the caller grants a send slot, which lets tests and the
// demo step the notification scheduler one slot at a time.
type LoopbackATT struct {
	*AttributeTable
	Notifications []Notification
	pending       []canSendNowRegistration
}

func NewLoopbackATT(table *AttributeTable) *LoopbackATT {
	return &LoopbackATT{AttributeTable: table}
}

func (l *LoopbackATT) Notify(con ConHandle, attributeHandle uint16, value []byte) {
	l.Notifications = append(l.Notifications, Notification{
		Con:             con,
		AttributeHandle: attributeHandle,
		Value:           append([]byte(nil), value...),
	})
}

func (l *LoopbackATT) RequestCanSendNow(con ConHandle, task func()) {
	l.pending = append(l.pending, canSendNowRegistration{con: con, task: task})
}

// GrantSendSlot fires the oldest pending can-send-now registration.
// Returns false when none is pending.
func (l *LoopbackATT) GrantSendSlot() bool {
	if len(l.pending) == 0 {
		return false
	}
	registration := l.pending[0]
	l.pending = l.pending[1:]
	registration.task()
	return true
}

// DrainSendSlots grants send slots until the queue is empty and returns
// the number of slots granted.
func (l *LoopbackATT) DrainSendSlots() int {
	granted := 0
	for l.GrantSendSlot() {
		granted++
	}
	return granted
}
