package sol

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/solana-zh/solarb/pkg"
)

const (
	// ClockAccountDataSize is the size of the clock sysvar account.
	ClockAccountDataSize = 40
)

// Clock is the decoded clock sysvar, used to seed the engine's confirmed
// slot at startup.
type Clock struct {
	Slot                uint64
	EpochStartTime      uint64
	Epoch               uint64
	LeaderScheduleEpoch uint64
	UnixTimestamp       uint64
}

// DecodeClock parses the clock sysvar account bytes.
func DecodeClock(data []byte) (*Clock, error) {
	if len(data) != ClockAccountDataSize {
		return nil, fmt.Errorf("clock sysvar: expected %d bytes, got %d: %w", ClockAccountDataSize, len(data), pkg.ErrWrongLength)
	}
	return &Clock{
		Slot:                binary.LittleEndian.Uint64(data[0:8]),
		EpochStartTime:      binary.LittleEndian.Uint64(data[8:16]),
		Epoch:               binary.LittleEndian.Uint64(data[16:24]),
		LeaderScheduleEpoch: binary.LittleEndian.Uint64(data[24:32]),
		UnixTimestamp:       binary.LittleEndian.Uint64(data[32:40]),
	}, nil
}

// GetClock fetches and decodes the current clock sysvar.
func (c *Client) GetClock(ctx context.Context) (*Clock, error) {
	resp, err := c.GetAccountInfoWithOpts(ctx, solana.SysVarClockPubkey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clock account: %w", err)
	}
	if resp.Value == nil {
		return nil, errors.New("clock account not found in the network")
	}
	return DecodeClock(resp.Value.Data.GetBinary())
}
