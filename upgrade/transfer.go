package upgrade

import (
	"context"

	"github.com/chrisjohn404/labjack-t7-upgrade/internal/logging"
)

// WriteImage writes bundle.ImageBytes starting at the image region's base
// address, in chunks of the region's block-write size, unlocked with the
// image region's key (§4.5).
func WriteImage(ctx context.Context, device Communicator, bundle *FirmwareBundle) error {
	log := logging.WithGroup("transfer")
	log.WithField("bytes", len(bundle.ImageBytes)).Info("writing image region")
	return writeFlash(ctx, device, ImageRegion.BaseAddress, bundle.ImageBytes, ImageRegion.BlockWriteInts, ImageRegion.Key, KindWriteFailure)
}

// WriteHeader writes bundle.HeaderBytes (32 words) at the header region's
// base address, unlocked with the header region's key (§4.5).
func WriteHeader(ctx context.Context, device Communicator, bundle *FirmwareBundle) error {
	log := logging.WithGroup("transfer")
	log.Info("writing header region")
	return writeFlash(ctx, device, HeaderRegion.BaseAddress, bundle.HeaderBytes, HeaderRegion.BlockWriteInts, HeaderRegion.Key, KindWriteFailure)
}

// CheckImageWrite reads the image region back and compares it word-for-word
// against bundle.ImageBytes. The first mismatch is reported with its word
// index (§4.5).
func CheckImageWrite(ctx context.Context, device Communicator, bundle *FirmwareBundle) error {
	lengthInts := len(bundle.ImageBytes) / 4
	words, err := readFlash(ctx, device, ImageRegion.BaseAddress, lengthInts, ImageRegion.BlockWriteInts, KindWriteFailure)
	if err != nil {
		return err
	}
	want := decodeWords(bundle.ImageBytes, 0, lengthInts)
	for i := range want {
		if words[i] != want[i] {
			return newWriteVerifyMismatch(i, words[i], want[i])
		}
	}
	return nil
}
