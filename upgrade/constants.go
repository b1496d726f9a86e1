package upgrade

// Register names (§6.3). These are passed to Communicator as the named
// register a transaction addresses; the concrete transport resolves them to
// device-specific numeric addresses.
const (
	RegExfKey    = "EXF_KEY"
	RegExfErase  = "EXF_ERASE"
	RegExfPWrite = "EXF_pWRITE"
	RegExfWrite  = "EXF_WRITE"
	RegExfPRead  = "EXF_pREAD"
	RegExfRead   = "EXF_READ"
	RegReqFWUpg  = "REQ_FWUPG"
	RegFWVersion = "FIRMWARE_VERSION"
)

// MaxChunkInts is the hardware cap on 32-bit words per mixed transaction.
const MaxChunkInts = 8

// ErasedWord is the value a freshly erased flash word reads back as. The
// device's physical flash erases to all-ones; a prior source revision used
// 0 here, which spec.md §9 records as a bug.
const ErasedWord uint32 = 0xFFFFFFFF

// T7 identification constants (§4.2).
const (
	HeaderCodeT7 uint32 = 0x4C4A5437 // "LJT7"

	// Accepted intendedDevice tags: the current and legacy T7 target IDs.
	DeviceTypeT7       uint32 = 7
	DeviceTypeT7Legacy uint32 = 3
)

// FWUpgradeRequestValue is written to RegReqFWUpg to trigger a firmware
// upgrade reboot.
const FWUpgradeRequestValue uint32 = 0x4C4A4655 // "LJFU"

// PageSize is the flash erase granularity, in bytes.
const PageSize = 4096

// HeaderSize is the fixed size of the header region payload, in bytes and
// in 32-bit words.
const (
	HeaderSizeBytes = 128
	HeaderSizeInts  = HeaderSizeBytes / 4
)

// Region describes one of the two flash areas this pipeline programs:
// the firmware image itself, or its 128-byte descriptor header.
type Region struct {
	Name           string
	BaseAddress    uint32
	PageCount      int
	Key            uint32
	BlockWriteInts int
}

// Flash region constants. Offsets are dictated by the T7 flash layout;
// this module treats them as externally defined per spec.md §4.1.
var (
	ImageRegion = Region{
		Name:           "image",
		BaseAddress:    0x00000000,
		PageCount:      156,
		Key:            0x70114257,
		BlockWriteInts: MaxChunkInts,
	}

	HeaderRegion = Region{
		Name:           "header",
		BaseAddress:    0x0009C000,
		PageCount:      1,
		Key:            0x70114257,
		BlockWriteInts: MaxChunkInts,
	}
)

// DefaultEnumerationGracePeriodSeconds is the pause, in seconds, between
// enumeration scans during reboot-and-rediscovery (§4.6, §5).
const DefaultEnumerationGracePeriodSeconds = 5
