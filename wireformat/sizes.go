package wireformat

// ListHeaderSize returns the byte length of a CBOR length-prefix
// header for n items, per the general CBOR rule for encoding an
// unsigned integer length: 0-23 encodes inline in the initial byte;
// larger values use a 1/2/4/8-byte big-endian follow-on selected by
// additional-info 24/25/26/27.
//
// The metadata blob format uses this arithmetic twice: once, with
// InodeSize in place of n, to size the CBOR byte-string header that
// frames every individual fixed-stride Inode record, and once, with
// inode_count in place of n, to size
// the blob's leading pseudo-array header (see EncodeListHeader).
func ListHeaderSize(n int) int {
	switch {
	case n <= 23:
		return 1
	case n <= 0xff:
		return 2
	case n <= 0xffff:
		return 3
	case n <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

const arrayMajorType = 0x80

// EncodeListHeader returns the raw bytes of a CBOR array header (major
// type 4) announcing n elements. The metadata blob's leading header
// uses exactly this encoding for inode_count, but nothing that follows
// it is a real nested CBOR array: the inode_count fixed-stride records
// that follow are written as independently self-describing values at
// computed byte offsets, so a reader can binary-search them without
// walking the array from the front.
func EncodeListHeader(n int) []byte {
	switch ListHeaderSize(n) {
	case 1:
		return []byte{arrayMajorType | byte(n)}
	case 2:
		return []byte{arrayMajorType | 24, byte(n)}
	case 3:
		return []byte{arrayMajorType | 25, byte(n >> 8), byte(n)}
	case 5:
		return []byte{arrayMajorType | 26, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	default:
		return []byte{
			arrayMajorType | 27,
			byte(n >> 56), byte(n >> 48), byte(n >> 40), byte(n >> 32),
			byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n),
		}
	}
}
