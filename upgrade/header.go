package upgrade

import (
	"encoding/binary"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/sigurn/crc16"

	"github.com/chrisjohn404/labjack-t7-upgrade/internal/logging"
)

// Header byte offsets within the first 128 bytes of a T7 firmware image
// (§4.1). These are dictated by the T7 flash format; this module treats
// them as externally defined.
const (
	offHeaderCode               = 0
	offIntendedDevice           = 4
	offContainedVersion         = 8
	offRequiredUpgraderVersion  = 12
	offImageNumber              = 16
	offNumImgInFile             = 18
	offStartNextImg             = 20
	offLenOfImg                 = 24
	offImgOffset                = 28
	offNumBytesInSHA            = 32
	offOptions                  = 72
	offEncryptedSHA             = 76
	offUnencryptedSHA           = 80
	offHeaderChecksum           = 124
)

// ParsedHeader is a structured view over the 128-byte firmware header
// (§4.1). It is a value type, not a pointer into the backing bytes, so a
// FirmwareBundle can be copied and logged without aliasing concerns.
type ParsedHeader struct {
	HeaderCode              uint32
	IntendedDevice          uint32
	ContainedVersion        Version
	RequiredUpgraderVersion Version
	ImageNumber             uint16
	NumImgInFile            uint16
	StartNextImg            uint32
	LenOfImg                uint32
	ImgOffset               uint32
	NumBytesInSHA           uint32
	Options                 uint32
	EncryptedSHA            uint32
	UnencryptedSHA          uint32
	HeaderChecksum          uint32
}

// ParseHeader decodes the fixed-offset, big-endian header layout (§4.1).
// headerBytes must be exactly HeaderSizeBytes long.
func ParseHeader(headerBytes []byte) (ParsedHeader, error) {
	if len(headerBytes) != HeaderSizeBytes {
		return ParsedHeader{}, newStageErrorf(KindFileIO,
			"header must be %d bytes, got %d", HeaderSizeBytes, len(headerBytes))
	}
	be := binary.BigEndian
	readFloat := func(off int) Version {
		bits := be.Uint32(headerBytes[off : off+4])
		return Version(math.Float32frombits(bits))
	}
	return ParsedHeader{
		HeaderCode:              be.Uint32(headerBytes[offHeaderCode:]),
		IntendedDevice:          be.Uint32(headerBytes[offIntendedDevice:]),
		ContainedVersion:        readFloat(offContainedVersion),
		RequiredUpgraderVersion: readFloat(offRequiredUpgraderVersion),
		ImageNumber:             be.Uint16(headerBytes[offImageNumber:]),
		NumImgInFile:            be.Uint16(headerBytes[offNumImgInFile:]),
		StartNextImg:            be.Uint32(headerBytes[offStartNextImg:]),
		LenOfImg:                be.Uint32(headerBytes[offLenOfImg:]),
		ImgOffset:               be.Uint32(headerBytes[offImgOffset:]),
		NumBytesInSHA:           be.Uint32(headerBytes[offNumBytesInSHA:]),
		Options:                 be.Uint32(headerBytes[offOptions:]),
		EncryptedSHA:            be.Uint32(headerBytes[offEncryptedSHA:]),
		UnencryptedSHA:          be.Uint32(headerBytes[offUnencryptedSHA:]),
		HeaderChecksum:          be.Uint32(headerBytes[offHeaderChecksum:]),
	}, nil
}

// Serialize re-encodes a ParsedHeader back into 128 raw header bytes. It is
// the exact inverse of ParseHeader over the fields this module tracks
// (§8's round-trip property); bytes at offsets this module doesn't parse
// into a named field are preserved as zero, since none of the gate or
// transfer logic reads them.
func (h ParsedHeader) Serialize() []byte {
	buf := make([]byte, HeaderSizeBytes)
	be := binary.BigEndian
	writeFloat := func(off int, v Version) {
		be.PutUint32(buf[off:off+4], math.Float32bits(float32(v)))
	}
	be.PutUint32(buf[offHeaderCode:], h.HeaderCode)
	be.PutUint32(buf[offIntendedDevice:], h.IntendedDevice)
	writeFloat(offContainedVersion, h.ContainedVersion)
	writeFloat(offRequiredUpgraderVersion, h.RequiredUpgraderVersion)
	be.PutUint16(buf[offImageNumber:], h.ImageNumber)
	be.PutUint16(buf[offNumImgInFile:], h.NumImgInFile)
	be.PutUint32(buf[offStartNextImg:], h.StartNextImg)
	be.PutUint32(buf[offLenOfImg:], h.LenOfImg)
	be.PutUint32(buf[offImgOffset:], h.ImgOffset)
	be.PutUint32(buf[offNumBytesInSHA:], h.NumBytesInSHA)
	be.PutUint32(buf[offOptions:], h.Options)
	be.PutUint32(buf[offEncryptedSHA:], h.EncryptedSHA)
	be.PutUint32(buf[offUnencryptedSHA:], h.UnencryptedSHA)
	be.PutUint32(buf[offHeaderChecksum:], h.HeaderChecksum)
	return buf
}

// LoadImage parses a firmware .bin file into a FirmwareBundle (§4.1).
func LoadImage(path string) (*FirmwareBundle, error) {
	log := logging.WithGroup("loader")

	declaredVersion, err := ParseVersionFromFilename(path)
	if err != nil {
		return nil, newStageError(KindFileIO, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, newStageError(KindFileIO, err)
	}
	if len(raw) < HeaderSizeBytes {
		return nil, newStageErrorf(KindFileIO,
			"firmware file %q is only %d bytes, shorter than the %d-byte header", path, len(raw), HeaderSizeBytes)
	}

	headerBytes := append([]byte(nil), raw[:HeaderSizeBytes]...)
	imageBytes := append([]byte(nil), raw[HeaderSizeBytes:]...)
	if len(imageBytes)%4 != 0 {
		return nil, newStageErrorf(KindFileIO,
			"image payload length %d is not a multiple of 4", len(imageBytes))
	}

	headerFields, err := ParseHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	checksum := crc16.Checksum(imageBytes, crc16.MakeTable(crc16.CRC16_CCITT_FALSE))
	log.WithField("path", path).
		WithField("declaredVersion", declaredVersion.String()).
		WithField("imageSize", humanize.IBytes(uint64(len(imageBytes)))).
		WithField("imageCRC16", checksum).
		Info("loaded firmware image")

	return &FirmwareBundle{
		HeaderBytes:     headerBytes,
		ImageBytes:      imageBytes,
		HeaderFields:    headerFields,
		DeclaredVersion: declaredVersion,
		log:             log,
	}, nil
}
