package upgrade

import (
	"math"

	"github.com/chrisjohn404/labjack-t7-upgrade/internal/logging"
)

// CheckNewFirmware reads FIRMWARE_VERSION from the reopened handle and
// fails with KindVersionMismatch if it differs from declaredVersion
// (§4.7).
func CheckNewFirmware(device Communicator, declaredVersion Version) error {
	log := logging.WithGroup("versioncheck")

	raw, err := device.Read(RegFWVersion)
	if err != nil {
		return newStageError(KindVersionMismatch, err)
	}
	reported := Version(math.Float32frombits(raw))

	if !reported.Equal(declaredVersion) {
		return newStageErrorf(KindVersionMismatch,
			"reported firmware version %s does not match expected %s", reported, declaredVersion)
	}

	log.WithField("version", reported.String()).Info("firmware version confirmed")
	return nil
}
