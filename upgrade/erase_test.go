package upgrade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEraseImage_Sequence(t *testing.T) {
	// §8 scenario 4, generalized to the image region's own page count/key:
	// N sequential writeMany calls with addresses [EXF_KEY, EXF_ERASE].
	fake := newFakeCommunicator()
	require.NoError(t, EraseImage(fake))

	require.Len(t, fake.writeManyCalls, ImageRegion.PageCount)
	for i, call := range fake.writeManyCalls {
		require.Equal(t, []string{RegExfKey, RegExfErase}, call.Addresses)
		require.Equal(t, ImageRegion.Key, call.Values[0])
		require.Equal(t, ImageRegion.BaseAddress+uint32(i*PageSize), call.Values[1])
	}
}

func TestEraseHeader_UsesHeaderRegionBase(t *testing.T) {
	// §9 Open Question: the header erase must use the header region's own
	// base address, not the image region's (a documented source bug).
	fake := newFakeCommunicator()
	require.NoError(t, EraseHeader(fake))

	require.Len(t, fake.writeManyCalls, HeaderRegion.PageCount)
	require.Equal(t, HeaderRegion.BaseAddress, fake.writeManyCalls[0].Values[1])
	require.NotEqual(t, ImageRegion.BaseAddress, fake.writeManyCalls[0].Values[1])
}

func TestCheckErase_SucceedsWhenAllOnes(t *testing.T) {
	fake := newFakeCommunicator()
	require.NoError(t, EraseImage(fake))
	require.NoError(t, EraseHeader(fake))

	require.NoError(t, CheckErase(context.Background(), fake))
}

func TestCheckErase_FailsOnStrayWord(t *testing.T) {
	fake := newFakeCommunicator()
	require.NoError(t, EraseImage(fake))
	require.NoError(t, EraseHeader(fake))

	fake.flash[HeaderRegion.BaseAddress/4+3] = 0x00000000

	err := CheckErase(context.Background(), fake)
	require.Error(t, err)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, KindEraseVerifyNotAllOnes, stageErr.Kind)
}

func TestCheckErase_FailsOnLinkError(t *testing.T) {
	fake := newFakeCommunicator()
	require.NoError(t, EraseImage(fake))
	require.NoError(t, EraseHeader(fake))
	fake.failOnRWManyCall = 0

	err := CheckErase(context.Background(), fake)
	require.Error(t, err)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, KindEraseFailure, stageErr.Kind)
}
