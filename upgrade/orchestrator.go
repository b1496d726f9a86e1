package upgrade

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/chrisjohn404/labjack-t7-upgrade/internal/logging"
)

// Config holds the knobs the source hardcodes as constants, exposed here
// so they can be overridden (mainly by tests shrinking the enumeration
// grace period).
type Config struct {
	// EnumerationGracePeriod is the pause between enumeration scans during
	// reboot-and-rediscovery (§4.6). Zero selects the default of
	// DefaultEnumerationGracePeriodSeconds.
	EnumerationGracePeriod time.Duration
}

func (c Config) gracePeriod() time.Duration {
	if c.EnumerationGracePeriod > 0 {
		return c.EnumerationGracePeriod
	}
	return DefaultEnumerationGracePeriodSeconds * time.Second
}

// Upgrade runs the full pipeline (§4.8): load the firmware file, adopt the
// caller's already-opened device, gate on compatibility, erase, program,
// verify, reboot, rediscover, and confirm the new version. Any stage
// failure aborts the pipeline. A failure from the erase stages through the
// image-write check also closes the device, and a close failure is
// combined with the stage error (see abort); other failures are returned
// as is. In every case errors.As finds the *StageError and its Kind.
//
// ctx is checked between flash chunks by the erase-check, write and
// write-check stages, and bounds the reboot-and-rediscovery stage's
// enumeration poll (§5); a ctx with no deadline preserves the source's
// wait-indefinitely behavior.
func Upgrade(
	ctx context.Context,
	path string,
	device Communicator,
	serialNumber, deviceType, transport string,
	enumerator Enumerator,
	cfg Config,
) error {
	log := logging.WithGroup("orchestrator").WithField("serial", serialNumber)

	bundle, err := LoadImage(path)
	if err != nil {
		return err
	}
	bundle = bundle.WithDevice(device, serialNumber, deviceType, transport)

	if err := CheckCompatibility(bundle); err != nil {
		return err
	}

	log.Info("erasing image region")
	if err := EraseImage(bundle.Device); err != nil {
		return abort(bundle, err)
	}

	log.Info("erasing header region")
	if err := EraseHeader(bundle.Device); err != nil {
		return abort(bundle, err)
	}

	log.Info("verifying erase")
	if err := CheckErase(ctx, bundle.Device); err != nil {
		return abort(bundle, err)
	}

	log.Info("writing image")
	if err := WriteImage(ctx, bundle.Device, bundle); err != nil {
		return abort(bundle, err)
	}

	log.Info("writing header")
	if err := WriteHeader(ctx, bundle.Device, bundle); err != nil {
		return abort(bundle, err)
	}

	log.Info("verifying image write")
	if err := CheckImageWrite(ctx, bundle.Device, bundle); err != nil {
		return abort(bundle, err)
	}

	log.Info("rebooting into new firmware")
	if err := RestartAndUpgrade(bundle.Device); err != nil {
		return err
	}
	bundle.Device = nil

	log.Info("waiting for device to re-enumerate")
	newDevice, err := WaitForEnumeration(ctx, enumerator, deviceType, transport, serialNumber, cfg.gracePeriod())
	if err != nil {
		return err
	}
	bundle.Device = newDevice

	log.Info("confirming new firmware version")
	if err := CheckNewFirmware(bundle.Device, bundle.DeclaredVersion); err != nil {
		return err
	}

	log.Info("upgrade complete")
	return nil
}

// abort combines a stage failure with a best-effort device-close failure,
// if any, rather than discarding one of them. errors.As against the
// result still finds the original *StageError.
func abort(bundle *FirmwareBundle, stageErr error) error {
	var result *multierror.Error
	result = multierror.Append(result, stageErr)
	if bundle.Device != nil {
		if closeErr := bundle.Device.Close(); closeErr != nil {
			result = multierror.Append(result, closeErr)
		}
	}
	return result.ErrorOrNil()
}
