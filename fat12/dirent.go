package fat12

import (
	"encoding/binary"
	"strings"
	"time"

	coreerrors "github.com/retrofuture-os/coreos/errors"
)

// Attribute flags for a directory entry's AttributeFlags byte.
const (
	AttrReadOnly    = 0x01
	AttrHidden      = 0x02
	AttrSystem      = 0x04
	AttrVolumeLabel = 0x08
	AttrDirectory   = 0x10
	AttrArchive     = 0x20

	// AttrLongName masks the long-name form; entries with exactly this
	// value are skipped on read and never emitted on write.
	AttrLongName = 0x0F
)

// fatEpoch is 1980-01-01 00:00:00, the earliest representable FAT
// timestamp and what every entry this engine creates is stamped with (no
// RTC is in scope).
var fatEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// RawDirent is the on-disk 32-byte directory entry, field for field.
type RawDirent struct {
	Name             [8]byte
	Extension        [3]byte
	AttributeFlags   uint8
	NTReserved       uint8
	CreateTimeTenths uint8
	CreateTime       uint16
	CreateDate       uint16
	AccessDate       uint16
	FirstClusterHigh uint16
	ModifyTime       uint16
	ModifyDate       uint16
	FirstClusterLow  uint16
	FileSize         uint32
}

// Dirent is a RawDirent decoded into friendlier Go types: packed dates
// turned into time.Time, the two-part cluster field merged, name+ext
// joined into one string with the 0xE5/0x05 escape undone.
type Dirent struct {
	Name         string
	Attributes   uint8
	FirstCluster ClusterID
	Size         uint32
	CreatedAt    time.Time
	AccessedAt   time.Time
	ModifiedAt   time.Time
	Deleted      bool
}

func (d Dirent) IsDirectory() bool   { return d.Attributes&AttrDirectory != 0 }
func (d Dirent) IsVolumeLabel() bool { return d.Attributes&AttrVolumeLabel != 0 }
func (d Dirent) IsLongName() bool    { return d.Attributes == AttrLongName }

// decodeDate converts a packed FAT date into a time.Time at midnight.
func decodeDate(value uint16) time.Time {
	day := int(value & 0x1f)
	month := time.Month((value >> 5) & 0x0f)
	year := 1980 + int(value>>9)
	if day == 0 {
		day = 1
	}
	if month == 0 {
		month = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// encodeDate is the dual of decodeDate.
func encodeDate(t time.Time) uint16 {
	y := t.Year() - 1980
	if y < 0 {
		y = 0
	}
	return uint16(y<<9) | uint16(int(t.Month())<<5) | uint16(t.Day())
}

// decodeTimestamp merges a packed date and time field into a single
// time.Time, in the style of TimestampFromParts: seconds field is a
// two-second count.
func decodeTimestamp(datePart, timePart uint16) time.Time {
	d := decodeDate(datePart)
	seconds := int(timePart&0x1f) * 2
	minutes := int((timePart >> 5) & 0x3f)
	hours := int(timePart >> 11)
	return time.Date(d.Year(), d.Month(), d.Day(), hours, minutes, seconds, 0, time.UTC)
}

func encodeTime(t time.Time) uint16 {
	return uint16(t.Hour()<<11) | uint16(t.Minute()<<5) | uint16(t.Second()/2)
}

// EncodeName83 converts a caller-supplied name into the packed (name[8],
// ext[3]) pair: walk until '.' or end, upper-casing and padding with
// spaces to 8; skip the dot; copy up to 3 more upper-cased extension
// chars, padding with spaces.
func EncodeName83(name string) ([8]byte, [3]byte, error) {
	var rawName [8]byte
	var rawExt [3]byte
	for i := range rawName {
		rawName[i] = ' '
	}
	for i := range rawExt {
		rawExt[i] = ' '
	}

	if name == "" {
		return rawName, rawExt, coreerrors.ErrInvalidArgument.WithMessage("empty name")
	}
	if name == "." || name == ".." {
		copy(rawName[:], name)
		return rawName, rawExt, nil
	}

	dot := strings.IndexByte(name, '.')
	base := name
	ext := ""
	if dot >= 0 {
		base = name[:dot]
		ext = name[dot+1:]
	}

	if len(base) > 8 || len(ext) > 3 {
		return rawName, rawExt, coreerrors.ErrInvalidArgument.WithMessage("name component too long for 8.3")
	}

	for i := 0; i < len(base); i++ {
		rawName[i] = upperByte(base[i])
	}
	for i := 0; i < len(ext); i++ {
		rawExt[i] = upperByte(ext[i])
	}
	return rawName, rawExt, nil
}

// EncodeLabel11 packs a volume label into the flat 11-byte field the boot
// sector and the root directory's label entry both use. Unlike EncodeName83
// this never splits on '.' or enforces an 8/3 component split — a label is
// a single up-to-11-character string, padded with spaces.
func EncodeLabel11(label string) ([11]byte, error) {
	var raw [11]byte
	for i := range raw {
		raw[i] = ' '
	}
	if len(label) > 11 {
		return raw, coreerrors.ErrInvalidArgument.WithMessage("volume label too long (max 11 characters)")
	}
	for i := 0; i < len(label); i++ {
		raw[i] = upperByte(label[i])
	}
	return raw, nil
}

// NewRawDirentForLabel builds the root directory's volume-label entry,
// packing the name/extension halves from EncodeLabel11 rather than
// EncodeName83 since a label isn't an 8.3 filename.
func NewRawDirentForLabel(label string, attrs uint8) (RawDirent, error) {
	raw, err := EncodeLabel11(label)
	if err != nil {
		return RawDirent{}, err
	}
	var rd RawDirent
	copy(rd.Name[:], raw[0:8])
	copy(rd.Extension[:], raw[8:11])
	rd.AttributeFlags = attrs
	rd.CreateDate = encodeDate(fatEpoch)
	rd.CreateTime = encodeTime(fatEpoch)
	rd.AccessDate = encodeDate(fatEpoch)
	rd.ModifyDate = encodeDate(fatEpoch)
	rd.ModifyTime = encodeTime(fatEpoch)
	return rd, nil
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// DecodeName83 reverses EncodeName83: trims trailing spaces from each half
// and inserts a '.' only when the extension is non-empty.
func DecodeName83(rawName [8]byte, rawExt [3]byte) string {
	name := strings.TrimRight(string(rawName[:]), " ")
	ext := strings.TrimRight(string(rawExt[:]), " ")
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// NewRawDirentFromBytes decodes 32 bytes into a RawDirent.
func NewRawDirentFromBytes(data []byte) RawDirent {
	var rd RawDirent
	copy(rd.Name[:], data[0:8])
	copy(rd.Extension[:], data[8:11])
	rd.AttributeFlags = data[11]
	rd.NTReserved = data[12]
	rd.CreateTimeTenths = data[13]
	rd.CreateTime = binary.LittleEndian.Uint16(data[14:16])
	rd.CreateDate = binary.LittleEndian.Uint16(data[16:18])
	rd.AccessDate = binary.LittleEndian.Uint16(data[18:20])
	rd.FirstClusterHigh = binary.LittleEndian.Uint16(data[20:22])
	rd.ModifyTime = binary.LittleEndian.Uint16(data[22:24])
	rd.ModifyDate = binary.LittleEndian.Uint16(data[24:26])
	rd.FirstClusterLow = binary.LittleEndian.Uint16(data[26:28])
	rd.FileSize = binary.LittleEndian.Uint32(data[28:32])
	return rd
}

// PutRawDirent encodes rd into a 32-byte slice (must be len >= 32).
func PutRawDirent(data []byte, rd RawDirent) {
	copy(data[0:8], rd.Name[:])
	copy(data[8:11], rd.Extension[:])
	data[11] = rd.AttributeFlags
	data[12] = rd.NTReserved
	data[13] = rd.CreateTimeTenths
	binary.LittleEndian.PutUint16(data[14:16], rd.CreateTime)
	binary.LittleEndian.PutUint16(data[16:18], rd.CreateDate)
	binary.LittleEndian.PutUint16(data[18:20], rd.AccessDate)
	binary.LittleEndian.PutUint16(data[20:22], rd.FirstClusterHigh)
	binary.LittleEndian.PutUint16(data[22:24], rd.ModifyTime)
	binary.LittleEndian.PutUint16(data[24:26], rd.ModifyDate)
	binary.LittleEndian.PutUint16(data[26:28], rd.FirstClusterLow)
	binary.LittleEndian.PutUint32(data[28:32], rd.FileSize)
}

// NewDirentFromRaw decodes a RawDirent into a Dirent, undoing the
// 0xE5/0x05 first-byte escape. Returns NotFound if the slot is free
// (first byte 0x00).
func NewDirentFromRaw(rd RawDirent) (Dirent, error) {
	if rd.Name[0] == 0x00 {
		return Dirent{}, coreerrors.ErrNotFound
	}

	deleted := rd.Name[0] == 0xE5
	nameBytes := rd.Name
	if rd.Name[0] == 0x05 {
		nameBytes[0] = 0xE5
	}

	name := DecodeName83(nameBytes, rd.Extension)
	firstCluster := ClusterID(uint32(rd.FirstClusterHigh)<<16 | uint32(rd.FirstClusterLow))

	return Dirent{
		Name:         name,
		Attributes:   rd.AttributeFlags,
		FirstCluster: firstCluster,
		Size:         rd.FileSize,
		CreatedAt:    decodeTimestamp(rd.CreateDate, rd.CreateTime),
		AccessedAt:   decodeDate(rd.AccessDate),
		ModifiedAt:   decodeTimestamp(rd.ModifyDate, rd.ModifyTime),
		Deleted:      deleted,
	}, nil
}

// NewRawDirent builds a fresh on-disk entry for create/mkdir, stamped to
// the FAT epoch per this engine's no-RTC design note.
func NewRawDirent(name string, attrs uint8, cluster ClusterID, size uint32) (RawDirent, error) {
	rawName, rawExt, err := EncodeName83(name)
	if err != nil {
		return RawDirent{}, err
	}
	return RawDirent{
		Name:             rawName,
		Extension:        rawExt,
		AttributeFlags:   attrs,
		CreateDate:       encodeDate(fatEpoch),
		CreateTime:       encodeTime(fatEpoch),
		AccessDate:       encodeDate(fatEpoch),
		ModifyDate:       encodeDate(fatEpoch),
		ModifyTime:       encodeTime(fatEpoch),
		FirstClusterHigh: uint16(uint32(cluster) >> 16),
		FirstClusterLow:  uint16(uint32(cluster) & 0xFFFF),
		FileSize:         size,
	}, nil
}
