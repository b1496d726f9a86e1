package upgrade

import (
	"context"
	"time"

	"github.com/chrisjohn404/labjack-t7-upgrade/internal/logging"
)

// RestartAndUpgrade issues the firmware-upgrade-request register write and,
// on acknowledgement, synchronously closes the device handle -- the device
// is about to disconnect from the bus (§4.6).
func RestartAndUpgrade(device Communicator) error {
	log := logging.WithGroup("reboot")
	log.Info("requesting firmware-upgrade reboot")
	if err := device.Write(RegReqFWUpg, FWUpgradeRequestValue); err != nil {
		return newStageError(KindRebootFailure, err)
	}
	if err := device.Close(); err != nil {
		log.WithError(err).Warn("closing device handle after reboot request")
		return newStageError(KindRebootFailure, err)
	}
	return nil
}

// WaitForEnumeration polls enumeration until serialNumber reappears on
// transport, after an initial grace period (§4.6). If ctx carries a
// deadline, expiry surfaces KindEnumerationTimeout; with no deadline this
// waits indefinitely, matching the source (§9 Open Questions).
func WaitForEnumeration(
	ctx context.Context,
	enumerator Enumerator,
	deviceType, transport, serialNumber string,
	gracePeriod time.Duration,
) (Communicator, error) {
	log := logging.WithGroup("reboot").WithField("serial", serialNumber)

	sleep := func() error {
		timer := time.NewTimer(gracePeriod)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := sleep(); err != nil {
		return nil, newStageError(KindEnumerationTimeout, err)
	}

	for {
		devices, err := enumerator.ListAll(deviceType, transport)
		if err != nil {
			return nil, newStageError(KindEnumerationTimeout, err)
		}
		for _, d := range devices {
			if d.SerialNumber == serialNumber {
				log.Info("device re-enumerated")
				communicator, err := enumerator.OpenByType(deviceType, transport, serialNumber)
				if err != nil {
					return nil, newStageError(KindEnumerationTimeout, err)
				}
				return communicator, nil
			}
		}

		log.Debug("device not yet found, waiting for next scan")
		if err := sleep(); err != nil {
			return nil, newStageError(KindEnumerationTimeout, err)
		}
	}
}
