package upgrade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteImage_ThenCheckImageWrite_Succeeds(t *testing.T) {
	fake := newFakeCommunicator()
	bundle := &FirmwareBundle{
		ImageBytes: encodeWords([]uint32{0x01020304, 0x05060708, 0x090A0B0C}),
	}

	require.NoError(t, WriteImage(context.Background(), fake, bundle))
	require.NoError(t, CheckImageWrite(context.Background(), fake, bundle))
}

func TestWriteHeader_UsesHeaderRegion(t *testing.T) {
	fake := newFakeCommunicator()
	bundle := &FirmwareBundle{
		HeaderBytes: encodeWords(make([]uint32, HeaderSizeInts)),
	}
	require.NoError(t, WriteHeader(context.Background(), fake, bundle))

	first := fake.rwManyCalls[0]
	require.Equal(t, HeaderRegion.BaseAddress, first.Values[1])
	require.Equal(t, HeaderRegion.Key, first.Values[0])
}

func TestCheckImageWrite_ReportsFirstMismatchIndex(t *testing.T) {
	// §8 scenario 6: word 17 is 0xDEADBEEF but readback is 0xCAFEBABE.
	fake := newFakeCommunicator()
	words := make([]uint32, 20)
	for i := range words {
		words[i] = uint32(i)
	}
	words[17] = 0xDEADBEEF
	bundle := &FirmwareBundle{ImageBytes: encodeWords(words)}

	require.NoError(t, WriteImage(context.Background(), fake, bundle))
	fake.flash[ImageRegion.BaseAddress/4+17] = 0xCAFEBABE

	err := CheckImageWrite(context.Background(), fake, bundle)
	require.Error(t, err)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, KindWriteVerifyMismatch, stageErr.Kind)
	require.Equal(t, 17, stageErr.WordIndex)
}

func TestCheckImageWrite_ReportsSmallestMismatchIndex(t *testing.T) {
	fake := newFakeCommunicator()
	words := make([]uint32, 20)
	bundle := &FirmwareBundle{ImageBytes: encodeWords(words)}
	require.NoError(t, WriteImage(context.Background(), fake, bundle))

	fake.flash[ImageRegion.BaseAddress/4+5] = 0xBAD
	fake.flash[ImageRegion.BaseAddress/4+9] = 0xBAD

	err := CheckImageWrite(context.Background(), fake, bundle)
	require.Error(t, err)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, 5, stageErr.WordIndex)
}
