// Package upgrade implements the LabJack T7 firmware upgrade pipeline: it
// loads a firmware image, gates it for compatibility, erases and
// reprograms the device's external flash, verifies the result, and
// drives the device through a reboot and re-enumeration into the new
// firmware.
//
// The device link itself (register read/write and device enumeration) is
// an external collaborator, consumed here only through the Communicator
// and Enumerator interfaces; internal/transport/usb provides one concrete
// implementation.
package upgrade
