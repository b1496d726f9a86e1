package upgrade

// CheckCompatibility rejects the bundle unless all three checks in §4.2
// hold. It runs before any erase and never touches the device. Each
// failure carries a distinct Kind so the operator sees which check
// tripped.
func CheckCompatibility(bundle *FirmwareBundle) error {
	log := bundle.logger()
	h := bundle.HeaderFields

	if h.HeaderCode != HeaderCodeT7 {
		return newStageErrorf(KindInvalidHeaderCode,
			"header code 0x%08X does not match T7 magic 0x%08X", h.HeaderCode, HeaderCodeT7)
	}

	if h.IntendedDevice != DeviceTypeT7 && h.IntendedDevice != DeviceTypeT7Legacy {
		return newStageErrorf(KindIncorrectDeviceType,
			"intended device tag %d is not a T7 target (want %d or %d)",
			h.IntendedDevice, DeviceTypeT7, DeviceTypeT7Legacy)
	}

	if !h.ContainedVersion.Equal(bundle.DeclaredVersion) {
		return newStageErrorf(KindIncorrectVersion,
			"header contained version %s does not match declared version %s",
			h.ContainedVersion, bundle.DeclaredVersion)
	}

	log.WithField("version", bundle.DeclaredVersion.String()).Info("compatibility gate passed")
	return nil
}
