package ebook

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Mobi reads MOBI/AZW Palm databases whose text records use PalmDoc (LZ77)
// compression or none at all. The whole book arrives as a single HTML
// stream, so Contents always reports one chapter. HUFF/CDIC-compressed
// books (most KF8-only AZW3 files) are rejected at open time.
type Mobi struct {
	path string
	meta Metadata
	text string
}

const (
	pdbHeaderLen    = 78
	pdbRecordLen    = 8
	palmDocHuff     = 17480
	palmDocPlain    = 1
	palmDocLZ77     = 2
	mobiMinHeader   = 0xE4 // headers this long carry extra-data flags
	exthFlagPresent = 0x40
)

// OpenMobi reads and decompresses the full text up front; MOBI files carry
// no chapter boundaries worth preserving, and decompression is cheap
// relative to layout.
func OpenMobi(path string) (*Mobi, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mobi: reading %s: %w", path, err)
	}

	records, err := pdbRecords(data)
	if err != nil {
		return nil, fmt.Errorf("mobi: %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("mobi: %s: no records", path)
	}

	m := &Mobi{path: path}
	if err := m.initialize(records); err != nil {
		return nil, fmt.Errorf("mobi: %s: %w", path, err)
	}
	return m, nil
}

// pdbRecords slices a Palm database into its records. Offsets are
// validated; a truncated file yields an error rather than a panic.
func pdbRecords(data []byte) ([][]byte, error) {
	if len(data) < pdbHeaderLen+2 {
		return nil, fmt.Errorf("truncated palm database header")
	}
	if string(data[60:68]) != "BOOKMOBI" && string(data[60:68]) != "TEXtREAd" {
		return nil, fmt.Errorf("not a mobipocket database")
	}

	n := int(binary.BigEndian.Uint16(data[76:78]))
	if len(data) < pdbHeaderLen+n*pdbRecordLen {
		return nil, fmt.Errorf("truncated record list")
	}

	offsets := make([]int, 0, n+1)
	for i := 0; i < n; i++ {
		off := int(binary.BigEndian.Uint32(data[pdbHeaderLen+i*pdbRecordLen:]))
		if off > len(data) {
			return nil, fmt.Errorf("record %d offset out of range", i)
		}
		offsets = append(offsets, off)
	}
	offsets = append(offsets, len(data))

	records := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		if offsets[i] > offsets[i+1] {
			return nil, fmt.Errorf("record %d overlaps its successor", i)
		}
		records = append(records, data[offsets[i]:offsets[i+1]])
	}
	return records, nil
}

func (m *Mobi) initialize(records [][]byte) error {
	r0 := records[0]
	if len(r0) < 16 {
		return fmt.Errorf("record 0 too short")
	}

	compression := binary.BigEndian.Uint16(r0[0:2])
	recordCount := int(binary.BigEndian.Uint16(r0[8:10]))
	encryption := binary.BigEndian.Uint16(r0[12:14])

	switch compression {
	case palmDocPlain, palmDocLZ77:
	case palmDocHuff:
		return fmt.Errorf("HUFF/CDIC compression not supported")
	default:
		return fmt.Errorf("unknown compression %d", compression)
	}
	if encryption != 0 {
		return fmt.Errorf("encrypted book")
	}

	textEncoding := uint32(1252)
	var extraFlags uint16
	if len(r0) >= 132 && string(r0[16:20]) == "MOBI" {
		headerLen := binary.BigEndian.Uint32(r0[20:24])
		textEncoding = binary.BigEndian.Uint32(r0[28:32])

		if headerLen >= mobiMinHeader && len(r0) >= 0xF4 {
			extraFlags = binary.BigEndian.Uint16(r0[0xF2:0xF4])
		}

		m.meta = mobiMetadata(r0, headerLen)
	}
	m.meta.Format = "MOBI"

	var text []byte
	for i := 1; i <= recordCount && i < len(records); i++ {
		rec := trimTrailingEntries(records[i], extraFlags)
		if compression == palmDocLZ77 {
			text = append(text, palmDocDecode(rec)...)
		} else {
			text = append(text, rec...)
		}
	}

	if textEncoding == 65001 {
		m.text = string(text)
	} else {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(text)
		if err != nil {
			return fmt.Errorf("decoding cp1252 text: %w", err)
		}
		m.text = string(decoded)
	}
	return nil
}

// mobiMetadata pulls the full book name and, when present, EXTH metadata
// records out of record 0. Anything missing or malformed just stays empty.
func mobiMetadata(r0 []byte, headerLen uint32) Metadata {
	var meta Metadata

	if len(r0) >= 92 {
		nameOff := int(binary.BigEndian.Uint32(r0[84:88]))
		nameLen := int(binary.BigEndian.Uint32(r0[88:92]))
		if nameOff > 0 && nameOff+nameLen <= len(r0) {
			meta.Title = string(r0[nameOff : nameOff+nameLen])
		}
	}

	if binary.BigEndian.Uint32(r0[128:132])&exthFlagPresent == 0 {
		return meta
	}
	exth := r0[16+int(headerLen):]
	if len(exth) < 12 || string(exth[0:4]) != "EXTH" {
		return meta
	}

	count := int(binary.BigEndian.Uint32(exth[8:12]))
	pos := 12
	for i := 0; i < count; i++ {
		if pos+8 > len(exth) {
			break
		}
		recType := binary.BigEndian.Uint32(exth[pos : pos+4])
		recLen := int(binary.BigEndian.Uint32(exth[pos+4 : pos+8]))
		if recLen < 8 || pos+recLen > len(exth) {
			break
		}
		value := string(exth[pos+8 : pos+recLen])
		switch recType {
		case 100:
			meta.Creator = value
		case 101:
			meta.Publisher = value
		case 103:
			meta.Description = value
		case 104:
			meta.Identifier = value
		case 106:
			meta.Date = value
		case 503:
			meta.Title = value
		case 524:
			meta.Language = value
		}
		pos += recLen
	}
	return meta
}

// trimTrailingEntries strips the per-record trailing data named by the
// extra-data flags: one backward-encoded varint-sized entry per set bit,
// plus the multibyte-overlap bytes when bit 0 is set.
func trimTrailingEntries(rec []byte, extraFlags uint16) []byte {
	for flags := extraFlags >> 1; flags != 0; flags >>= 1 {
		if flags&1 != 0 {
			size := int(backwardVarint(rec))
			if size <= 0 || size > len(rec) {
				return rec
			}
			rec = rec[:len(rec)-size]
		}
	}
	if extraFlags&1 != 0 && len(rec) > 0 {
		n := int(rec[len(rec)-1]&0x3) + 1
		if n <= len(rec) {
			rec = rec[:len(rec)-n]
		}
	}
	return rec
}

// backwardVarint reads the variable-width integer stored in the final bytes
// of a record, most significant septet first, high bit marking the first
// byte of the value.
func backwardVarint(rec []byte) uint32 {
	var v uint32
	start := len(rec) - 4
	if start < 0 {
		start = 0
	}
	for _, b := range rec[start:] {
		if b&0x80 != 0 {
			v = 0
		}
		v = (v << 7) | uint32(b&0x7F)
	}
	return v
}

// palmDocDecode expands PalmDoc LZ77: literals, literal runs, 11-bit
// distance/3-bit length back-references, and space-packed ASCII pairs.
func palmDocDecode(data []byte) []byte {
	out := make([]byte, 0, len(data)*2)
	for i := 0; i < len(data); {
		c := data[i]
		i++
		switch {
		case c == 0x00:
			out = append(out, c)
		case c <= 0x08:
			n := int(c)
			if i+n > len(data) {
				n = len(data) - i
			}
			out = append(out, data[i:i+n]...)
			i += n
		case c <= 0x7F:
			out = append(out, c)
		case c <= 0xBF:
			if i >= len(data) {
				return out
			}
			pair := uint16(c)<<8 | uint16(data[i])
			i++
			distance := int(pair>>3) & 0x7FF
			length := int(pair&0x07) + 3
			if distance < 1 || distance > len(out) {
				continue
			}
			for j := 0; j < length; j++ {
				out = append(out, out[len(out)-distance])
			}
		default: // 0xC0..0xFF
			out = append(out, ' ', c^0x80)
		}
	}
	return out
}

func (m *Mobi) Path() string       { return m.path }
func (m *Mobi) Metadata() Metadata { return m.meta }
func (m *Mobi) Contents() []string { return []string{"text"} }

// TOC returns nothing: PalmDoc-era books index by byte position, which the
// line-oriented reader has no use for.
func (m *Mobi) TOC() []TocEntry { return nil }

func (m *Mobi) RawText(i int) (string, error) {
	if i != 0 {
		return "", fmt.Errorf("mobi: chapter %d out of range", i)
	}
	return m.text, nil
}

// Image is unsupported: MOBI images are referenced by record index
// (recindex attributes) rather than paths, and the layout collector only
// tracks path-shaped references.
func (m *Mobi) Image(_ int, src string) (string, []byte, error) {
	return "", nil, fmt.Errorf("mobi: image extraction not supported (%s)", strings.TrimSpace(src))
}

func (m *Mobi) Close() error { return nil }
