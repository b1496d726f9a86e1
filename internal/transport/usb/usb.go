// Package usb implements the upgrade.Communicator and upgrade.Enumerator
// contracts over a real USB connection, using google/gousb. It exists so
// the module is runnable against hardware and not merely a set of
// interfaces; the upgrade pipeline itself never imports this package.
package usb

import (
	"fmt"
	"sync"

	"github.com/google/gousb"

	"github.com/chrisjohn404/labjack-t7-upgrade/internal/logging"
	"github.com/chrisjohn404/labjack-t7-upgrade/upgrade"
)

// LabJack's USB vendor ID and the T7's product ID.
const (
	vendorID  = gousb.ID(0x0CD5)
	productID = gousb.ID(0x0007)
)

// Register addresses the T7 resolves named registers to. These are the
// numeric equivalents of the names in upgrade/constants.go; the pipeline
// never sees them directly.
var registerAddresses = map[string]uint16{
	upgrade.RegExfKey:    61810,
	upgrade.RegExfErase:  61820,
	upgrade.RegExfPWrite: 61800,
	upgrade.RegExfWrite:  61802,
	upgrade.RegExfPRead:  61830,
	upgrade.RegExfRead:   61832,
	upgrade.RegReqFWUpg:  61760,
	upgrade.RegFWVersion: 60004,
}

// controlRequest is the vendor-specific USB control request this
// transport uses to move a single 32-bit register value.
const controlRequest = 0x01

// Device implements upgrade.Communicator over a claimed USB interface.
type Device struct {
	mu     sync.Mutex
	ctx    *gousb.Context
	dev    *gousb.Device
	cfg    *gousb.Config
	intf   *gousb.Interface
	serial string
}

// Write implements upgrade.Communicator.
func (d *Device) Write(address string, value uint32) error {
	reg, ok := registerAddresses[address]
	if !ok {
		return fmt.Errorf("usb: unknown register %q", address)
	}
	return d.controlWrite(reg, value)
}

// WriteMany implements upgrade.Communicator.
func (d *Device) WriteMany(addresses []string, values []uint32) error {
	if len(addresses) != len(values) {
		return fmt.Errorf("usb: WriteMany address/value count mismatch")
	}
	for i, addr := range addresses {
		if err := d.Write(addr, values[i]); err != nil {
			return err
		}
	}
	return nil
}

// RWMany implements upgrade.Communicator as a sequence of control
// transfers, one per register value (counts[i] of them for frame i),
// preserving the ordering the engine relies on.
func (d *Device) RWMany(addresses []string, directions []upgrade.Direction, counts []int, values []uint32) ([]uint32, error) {
	var reads []uint32
	valueIdx := 0
	for i, addr := range addresses {
		n := counts[i]
		switch directions[i] {
		case upgrade.DirWrite:
			for j := 0; j < n; j++ {
				if err := d.Write(addr, values[valueIdx+j]); err != nil {
					return reads, err
				}
			}
		case upgrade.DirRead:
			reg, ok := registerAddresses[addr]
			if !ok {
				return reads, fmt.Errorf("usb: unknown register %q", addr)
			}
			for j := 0; j < n; j++ {
				v, err := d.controlRead(reg)
				if err != nil {
					return reads, err
				}
				reads = append(reads, v)
			}
		}
		valueIdx += n
	}
	return reads, nil
}

// Read implements upgrade.Communicator.
func (d *Device) Read(name string) (uint32, error) {
	reg, ok := registerAddresses[name]
	if !ok {
		return 0, fmt.Errorf("usb: unknown register %q", name)
	}
	return d.controlRead(reg)
}

func (d *Device) controlWrite(register uint16, value uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	data := []byte{
		byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value),
	}
	_, err := d.dev.Control(
		gousb.ControlOut|gousb.ControlVendor|gousb.ControlDevice,
		controlRequest,
		register,
		0,
		data,
	)
	return err
}

func (d *Device) controlRead(register uint16) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data := make([]byte, 4)
	n, err := d.dev.Control(
		gousb.ControlIn|gousb.ControlVendor|gousb.ControlDevice,
		controlRequest,
		register,
		0,
		data,
	)
	if err != nil {
		return 0, err
	}
	if n != 4 {
		return 0, fmt.Errorf("usb: short control read (%d bytes)", n)
	}
	return uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3]), nil
}

// Close releases the claimed interface, configuration, device, and
// context, in that order -- the teardown order HASHER's usb_device.go
// uses.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.intf != nil {
		d.intf.Close()
	}
	if d.cfg != nil {
		d.cfg.Close()
	}
	var err error
	if d.dev != nil {
		err = d.dev.Close()
	}
	if d.ctx != nil {
		d.ctx.Close()
	}
	return err
}

// Enumerator implements upgrade.Enumerator over gousb.
type Enumerator struct{}

// ListAll lists every connected T7. deviceType and transport are accepted
// for interface compatibility with upgrade.Enumerator but are not used to
// filter -- this transport only ever speaks USB to T7s.
func (Enumerator) ListAll(deviceType, transport string) ([]upgrade.DeviceInfo, error) {
	log := logging.WithGroup("usb")
	ctx := gousb.NewContext()
	defer ctx.Close()

	var infos []upgrade.DeviceInfo
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == vendorID && desc.Product == productID
	})
	if err != nil {
		return nil, fmt.Errorf("usb: enumerating T7 devices: %w", err)
	}
	for _, dev := range devices {
		serial, err := dev.SerialNumber()
		if err != nil {
			log.WithError(err).Warn("skipping device with unreadable serial number")
			_ = dev.Close()
			continue
		}
		infos = append(infos, upgrade.DeviceInfo{SerialNumber: serial, DeviceType: deviceType, Transport: transport})
		_ = dev.Close()
	}
	return infos, nil
}

// OpenByType opens the T7 with the given serial number, claiming its
// default configuration and control interface.
func (Enumerator) OpenByType(deviceType, transport, serial string) (upgrade.Communicator, error) {
	ctx := gousb.NewContext()

	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == vendorID && desc.Product == productID
	})
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("usb: enumerating T7 devices: %w", err)
	}

	var found *gousb.Device
	for _, dev := range devices {
		sn, err := dev.SerialNumber()
		if err == nil && sn == serial {
			found = dev
			continue
		}
		_ = dev.Close()
	}
	if found == nil {
		ctx.Close()
		return nil, fmt.Errorf("usb: no T7 with serial %s found", serial)
	}

	cfg, err := found.Config(1)
	if err != nil {
		_ = found.Close()
		ctx.Close()
		return nil, fmt.Errorf("usb: setting config: %w", err)
	}
	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		_ = found.Close()
		ctx.Close()
		return nil, fmt.Errorf("usb: claiming interface: %w", err)
	}

	return &Device{ctx: ctx, dev: found, cfg: cfg, intf: intf, serial: serial}, nil
}
