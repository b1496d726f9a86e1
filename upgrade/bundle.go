package upgrade

import "github.com/sirupsen/logrus"

// FirmwareBundle is the shared state threaded through the upgrade pipeline
// (§3). It is constructed by LoadImage, mutated only by Upgrade passing it
// from stage to stage, and discarded once the pipeline ends.
type FirmwareBundle struct {
	// HeaderBytes is the first 128 bytes of the image file, verbatim.
	HeaderBytes []byte

	// ImageBytes is the remaining bytes of the image file. Its length is
	// always a multiple of 4.
	ImageBytes []byte

	// HeaderFields is the parsed view over HeaderBytes.
	HeaderFields ParsedHeader

	// DeclaredVersion is the authoritative intended version, extracted
	// from the filename.
	DeclaredVersion Version

	// SerialNumber identifies the device being upgraded. Captured before
	// reboot so the same physical unit can be reopened after
	// re-enumeration.
	SerialNumber string

	// DeviceType and Transport identify how to re-enumerate the device
	// after reboot (§4.6).
	DeviceType string
	Transport  string

	// Device is the exclusively-held device handle. nil before a caller
	// injects one, closed while the device reboots, and replaced with a
	// fresh handle once re-enumeration succeeds.
	Device Communicator

	log *logrus.Entry
}

func (b *FirmwareBundle) logger() *logrus.Entry {
	if b.log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return b.log
}

// WithDevice returns a copy of the bundle with its device handle, serial
// number, device type and transport set, capturing ownership of an
// already-opened device connection (§4.8 "inject caller's device").
func (b *FirmwareBundle) WithDevice(device Communicator, serialNumber, deviceType, transport string) *FirmwareBundle {
	next := *b
	next.Device = device
	next.SerialNumber = serialNumber
	next.DeviceType = deviceType
	next.Transport = transport
	next.log = b.logger().WithField("serial", serialNumber)
	return &next
}
