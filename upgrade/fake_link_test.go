package upgrade

import "fmt"

// fakeCommunicator is an in-memory flash + register file used to test
// every stage against exact transaction sequences without hardware.
type fakeCommunicator struct {
	flash map[uint32]uint32

	lastKey         uint32
	rebootRequested bool
	closed          bool
	fwVersionBits   uint32

	// recorded calls, for assertions on exact transaction shape (§8).
	writeManyCalls []writeManyCall
	rwManyCalls    []rwManyCall

	// fault injection: if failOnRWManyCall >= 0, the call at that 0-based
	// index (across the lifetime of this fake) fails.
	failOnRWManyCall int
	failErr          error
}

type writeManyCall struct {
	Addresses []string
	Values    []uint32
}

type rwManyCall struct {
	Addresses  []string
	Directions []Direction
	Counts     []int
	Values     []uint32
}

func newFakeCommunicator() *fakeCommunicator {
	return &fakeCommunicator{
		flash:             make(map[uint32]uint32),
		failOnRWManyCall:  -1,
		failErr:           fmt.Errorf("injected link failure"),
	}
}

// fillErased marks every word in [base, base+lengthBytes) as erased.
func (f *fakeCommunicator) fillErased(base uint32, lengthBytes int) {
	for i := 0; i < lengthBytes/4; i++ {
		f.flash[base/4+uint32(i)] = ErasedWord
	}
}

func (f *fakeCommunicator) Write(address string, value uint32) error {
	switch address {
	case RegReqFWUpg:
		f.rebootRequested = true
		return nil
	default:
		return fmt.Errorf("fakeCommunicator: unexpected Write to %s", address)
	}
}

func (f *fakeCommunicator) WriteMany(addresses []string, values []uint32) error {
	f.writeManyCalls = append(f.writeManyCalls, writeManyCall{
		Addresses: append([]string(nil), addresses...),
		Values:    append([]uint32(nil), values...),
	})

	if len(addresses) != 2 || addresses[0] != RegExfKey || addresses[1] != RegExfErase {
		return fmt.Errorf("fakeCommunicator: unexpected WriteMany pattern %v", addresses)
	}
	f.lastKey = values[0]
	pageAddr := values[1]
	f.fillErased(pageAddr, PageSize)
	return nil
}

func (f *fakeCommunicator) RWMany(addresses []string, directions []Direction, counts []int, values []uint32) ([]uint32, error) {
	callIndex := len(f.rwManyCalls)
	f.rwManyCalls = append(f.rwManyCalls, rwManyCall{
		Addresses:  append([]string(nil), addresses...),
		Directions: append([]Direction(nil), directions...),
		Counts:     append([]int(nil), counts...),
		Values:     append([]uint32(nil), values...),
	})

	if f.failOnRWManyCall == callIndex {
		return nil, f.failErr
	}

	switch {
	case len(addresses) == 3 && addresses[0] == RegExfKey && addresses[1] == RegExfPWrite && addresses[2] == RegExfWrite:
		f.lastKey = values[0]
		ptr := values[1]
		words := values[2:]
		for i, w := range words {
			f.flash[ptr/4+uint32(i)] = w
		}
		return nil, nil

	case len(addresses) == 2 && addresses[0] == RegExfPRead && addresses[1] == RegExfRead:
		ptr := values[0]
		n := counts[1]
		out := make([]uint32, n)
		for i := 0; i < n; i++ {
			out[i] = f.flash[ptr/4+uint32(i)]
		}
		return out, nil

	default:
		return nil, fmt.Errorf("fakeCommunicator: unexpected RWMany pattern %v", addresses)
	}
}

func (f *fakeCommunicator) Read(name string) (uint32, error) {
	if name == RegFWVersion {
		return f.fwVersionBits, nil
	}
	return 0, fmt.Errorf("fakeCommunicator: unknown register %s", name)
}

func (f *fakeCommunicator) Close() error {
	f.closed = true
	return nil
}

// fakeEnumerator simulates enumeration re-discovering a device after
// reboot, appearing after a configurable number of scans.
type fakeEnumerator struct {
	serialNumber   string
	appearAfterNth int // ListAll call index (0-based) on which the device first appears
	calls          int
	opened         *fakeCommunicator
}

func (e *fakeEnumerator) ListAll(deviceType, transport string) ([]DeviceInfo, error) {
	defer func() { e.calls++ }()
	if e.calls < e.appearAfterNth {
		return nil, nil
	}
	return []DeviceInfo{{SerialNumber: e.serialNumber, DeviceType: deviceType, Transport: transport}}, nil
}

func (e *fakeEnumerator) OpenByType(deviceType, transport, serial string) (Communicator, error) {
	if serial != e.serialNumber {
		return nil, fmt.Errorf("fakeEnumerator: no device with serial %s", serial)
	}
	e.opened = newFakeCommunicator()
	return e.opened, nil
}
