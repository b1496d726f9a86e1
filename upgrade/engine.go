package upgrade

import (
	"context"
	"encoding/binary"

	"github.com/chrisjohn404/labjack-t7-upgrade/internal/logging"
)

// opParams are the parameters of one chunked flash operation (§4.3).
type opParams struct {
	StartAddress uint32
	LengthInts   int
	ChunkInts    int
	Direction    Direction
	Key          uint32 // only meaningful for DirWrite
	Data         []byte // only meaningful for DirWrite; len(Data) == LengthInts*4
	FailKind     Kind   // Kind to report if a link transaction itself errors
}

// chunkPlan describes one chunk's address and word count within an
// operation (§4.3's chunking policy).
type chunkPlan struct {
	Index   int
	Address uint32
	Count   int
}

// planChunks partitions lengthInts into full chunks of chunkInts words
// followed by a tail chunk of the remainder, if any.
func planChunks(startAddress uint32, lengthInts, chunkInts int) []chunkPlan {
	if chunkInts <= 0 || lengthInts <= 0 {
		return nil
	}
	var plans []chunkPlan
	full := lengthInts / chunkInts
	tail := lengthInts % chunkInts
	for i := 0; i < full; i++ {
		plans = append(plans, chunkPlan{
			Index:   i,
			Address: startAddress + uint32(i*chunkInts*4),
			Count:   chunkInts,
		})
	}
	if tail != 0 {
		plans = append(plans, chunkPlan{
			Index:   full,
			Address: startAddress + uint32(full*chunkInts*4),
			Count:   tail,
		})
	}
	return plans
}

// runOperation executes a chunked flash operation strictly sequentially
// (§4.3, §5): chunk i begins only after chunk i-1's acknowledgement. For
// reads it returns the flat sequence of words in flash address order.
func runOperation(ctx context.Context, device Communicator, params opParams) ([]uint32, error) {
	log := logging.WithGroup("engine")
	if params.ChunkInts > MaxChunkInts {
		panic("upgrade: chunkInts exceeds hardware cap of 8 words per transaction")
	}

	plans := planChunks(params.StartAddress, params.LengthInts, params.ChunkInts)
	var result []uint32

	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return result, newStageError(params.FailKind, err)
		}

		addresses, directions, counts, values := buildTransaction(params, plan)

		log.WithField("chunk", plan.Index).
			WithField("address", plan.Address).
			WithField("count", plan.Count).
			WithField("direction", params.Direction.String()).
			Debug("issuing flash transaction")

		reads, err := device.RWMany(addresses, directions, counts, values)
		if err != nil {
			return result, newStageError(params.FailKind, err)
		}

		if params.Direction == DirRead {
			result = append(result, reads...)
		}
	}

	return result, nil
}

// buildTransaction builds the mixed frame list for one chunk (§4.3
// "Transaction shape per chunk").
func buildTransaction(params opParams, plan chunkPlan) (addresses []string, directions []Direction, counts []int, values []uint32) {
	if params.Direction == DirWrite {
		addresses = []string{RegExfKey, RegExfPWrite, RegExfWrite}
		directions = []Direction{DirWrite, DirWrite, DirWrite}
		counts = []int{1, 1, plan.Count}

		words := decodeWords(params.Data, plan.Index*params.ChunkInts*4, plan.Count)
		values = append([]uint32{params.Key, plan.Address}, words...)
		return
	}

	addresses = []string{RegExfPRead, RegExfRead}
	directions = []Direction{DirWrite, DirRead}
	counts = []int{1, plan.Count}
	values = append([]uint32{plan.Address}, make([]uint32, plan.Count)...)
	return
}

// decodeWords decodes n big-endian 32-bit words starting at byte offset
// off of data.
func decodeWords(data []byte, off, n int) []uint32 {
	words := make([]uint32, n)
	for i := 0; i < n; i++ {
		words[i] = binary.BigEndian.Uint32(data[off+i*4 : off+i*4+4])
	}
	return words
}

// encodeWords encodes a sequence of 32-bit words into big-endian bytes.
func encodeWords(words []uint32) []byte {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		binary.BigEndian.PutUint32(buf[i*4:i*4+4], w)
	}
	return buf
}

// readFlash reads lengthInts words starting at startAddress, chunkInts
// words per transaction (§4.3). failKind is reported if a transaction
// itself errors (as opposed to a content-verification mismatch, which the
// caller detects from the returned words).
func readFlash(ctx context.Context, device Communicator, startAddress uint32, lengthInts, chunkInts int, failKind Kind) ([]uint32, error) {
	return runOperation(ctx, device, opParams{
		StartAddress: startAddress,
		LengthInts:   lengthInts,
		ChunkInts:    chunkInts,
		Direction:    DirRead,
		FailKind:     failKind,
	})
}

// writeFlash writes data (length a multiple of 4 bytes) starting at
// startAddress, chunkInts words per transaction, unlocked with key (§4.3).
func writeFlash(ctx context.Context, device Communicator, startAddress uint32, data []byte, chunkInts int, key uint32, failKind Kind) error {
	_, err := runOperation(ctx, device, opParams{
		StartAddress: startAddress,
		LengthInts:   len(data) / 4,
		ChunkInts:    chunkInts,
		Direction:    DirWrite,
		Key:          key,
		Data:         data,
		FailKind:     failKind,
	})
	return err
}
