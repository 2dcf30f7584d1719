package wireformat

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ModeTag discriminates the kind of filesystem object an Inode
// describes. Values match the on-wire mode_tag byte exactly, including
// the gaps (odd-but-one values are reserved for future expansion of
// the device-node/offset-bearing variants).
type ModeTag uint8

const (
	ModeUnknown ModeTag = 0
	ModeFifo    ModeTag = 1
	ModeChr     ModeTag = 2
	ModeDir     ModeTag = 4
	ModeBlk     ModeTag = 6
	ModeReg     ModeTag = 8
	ModeLnk     ModeTag = 10
	ModeSock    ModeTag = 12
	ModeWht     ModeTag = 14
)

// InodeMode is the tagged union of inode kinds. Only the fields
// relevant to Tag are meaningful: Major/Minor for Chr/Blk, Offset for
// Dir/Reg (an intra-metadata-blob byte offset to that inode's DirList
// or FileChunk list).
type InodeMode struct {
	Tag          ModeTag
	Major, Minor uint64
	Offset       uint64
}

// inodeModeSize is the fixed 17-byte wire size of InodeMode: 1
// discriminator byte plus 16 bytes big enough for either a (major,
// minor) pair or a single 8-byte offset (with 8 bytes left unused).
const inodeModeSize = 1 + 8 + 8

// InodeSize is the fixed payload size, in bytes, of an Inode record:
// ino (8) + mode (17) + uid (4) + gid (4) + permissions (2) +
// has_additional (1) + additional BlobRef (41).
const InodeSize = 8 + inodeModeSize + 4 + 4 + 2 + 1 + blobRefSize

// InodeWireSize is the on-wire size of one fixed-stride inode record:
// a CBOR byte-string header sized for InodeSize bytes, followed by the
// InodeSize-byte payload. It is derived from InodeSize, never hand
// duplicated, since any change to the fixed fields above changes this
// constant and would silently break binary search if the two drifted
// apart.
var InodeWireSize = ListHeaderSize(InodeSize) + InodeSize

// Inode is the fixed-stride on-disk inode record.
type Inode struct {
	Ino         uint64
	Mode        InodeMode
	UID, GID    uint32
	Permissions uint16
	Additional  *BlobRef
}

var (
	_ cbor.Marshaler   = Inode{}
	_ cbor.Unmarshaler = (*Inode)(nil)
)

// MarshalCBOR encodes i as an InodeSize-byte CBOR byte string.
func (i Inode) MarshalCBOR() ([]byte, error) {
	buf := make([]byte, InodeSize)
	binary.LittleEndian.PutUint64(buf[0:8], i.Ino)

	buf[8] = uint8(i.Mode.Tag)
	switch i.Mode.Tag {
	case ModeChr, ModeBlk:
		binary.LittleEndian.PutUint64(buf[9:17], i.Mode.Major)
		binary.LittleEndian.PutUint64(buf[17:25], i.Mode.Minor)
	case ModeDir, ModeReg:
		binary.LittleEndian.PutUint64(buf[9:17], i.Mode.Offset)
	}

	binary.LittleEndian.PutUint32(buf[25:29], i.UID)
	binary.LittleEndian.PutUint32(buf[29:33], i.GID)
	binary.LittleEndian.PutUint16(buf[33:35], i.Permissions)

	if i.Additional != nil {
		buf[35] = 1
		copy(buf[36:36+blobRefSize], i.Additional.marshalFixed())
	}

	return cbor.Marshal(buf)
}

// UnmarshalCBOR decodes an InodeSize-byte CBOR byte string into i.
func (i *Inode) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: inode: %w", ErrInvalidSerializedData, err)
	}
	if len(raw) != InodeSize {
		return fmt.Errorf("%w: inode: invalid length %d", ErrInvalidSerializedData, len(raw))
	}

	tag := ModeTag(raw[8])
	mode := InodeMode{Tag: tag}
	switch tag {
	case ModeUnknown, ModeFifo, ModeLnk, ModeSock, ModeWht:
		// No payload.
	case ModeChr, ModeBlk:
		mode.Major = binary.LittleEndian.Uint64(raw[9:17])
		mode.Minor = binary.LittleEndian.Uint64(raw[17:25])
	case ModeDir, ModeReg:
		mode.Offset = binary.LittleEndian.Uint64(raw[9:17])
	default:
		return fmt.Errorf("%w: bad inode mode value %d", ErrInvalidSerializedData, raw[8])
	}

	i.Ino = binary.LittleEndian.Uint64(raw[0:8])
	i.Mode = mode
	i.UID = binary.LittleEndian.Uint32(raw[25:29])
	i.GID = binary.LittleEndian.Uint32(raw[29:33])
	i.Permissions = binary.LittleEndian.Uint16(raw[33:35])

	if raw[35] > 0 {
		var ref BlobRef
		if err := ref.unmarshalFixed(raw[36 : 36+blobRefSize]); err != nil {
			return err
		}
		i.Additional = &ref
	} else {
		i.Additional = nil
	}

	return nil
}
