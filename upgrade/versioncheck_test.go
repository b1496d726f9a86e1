package upgrade

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckNewFirmware_Success(t *testing.T) {
	fake := newFakeCommunicator()
	fake.fwVersionBits = math.Float32bits(1.0067)

	require.NoError(t, CheckNewFirmware(fake, Version(1.0067)))
}

func TestCheckNewFirmware_Mismatch(t *testing.T) {
	fake := newFakeCommunicator()
	fake.fwVersionBits = math.Float32bits(1.0068)

	err := CheckNewFirmware(fake, Version(1.0067))
	require.Error(t, err)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, KindVersionMismatch, stageErr.Kind)
}
