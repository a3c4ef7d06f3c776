package blocksync

import (
	"encoding/binary"
	"testing"

	"github.com/mosaicnetworks/rollsync/src/chain/chaintest"
	"github.com/mosaicnetworks/rollsync/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncRequestLayout(t *testing.T) {
	h := types.Blake2b([]byte("h10"))
	req := SyncRequest{LastConfirmed: types.NumberHash{Number: 10, Hash: h}}

	data := req.Marshal()
	require.Len(t, data, 40)
	assert.Equal(t, h[:], data[:32])
	assert.Equal(t, uint64(10), binary.LittleEndian.Uint64(data[32:]))

	var got SyncRequest
	require.NoError(t, got.Unmarshal(data))
	assert.Equal(t, req, got)

	assert.Error(t, got.Unmarshal(data[:39]))
	assert.Error(t, got.Unmarshal(append(data, 0)))
}

func TestSyncResponse(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 0, 0}, Found.Marshal())
	assert.Equal(t, []byte{1, 0, 0, 0}, TryAgain.Marshal())

	r, err := UnmarshalSyncResponse([]byte{1, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, TryAgain, r)

	_, err = UnmarshalSyncResponse([]byte{2, 0, 0, 0})
	assert.Error(t, err)
	_, err = UnmarshalSyncResponse([]byte{0, 0, 0})
	assert.Error(t, err)
}

func TestSyncMessageIDs(t *testing.T) {
	genesis, _ := chaintest.Genesis()
	lb := chaintest.NextBlock(genesis.NumberHash(), 0)
	nh := lb.Block.NumberHash()

	cases := []struct {
		msg SyncMessage
		id  uint32
	}{
		{&Revert{Target: nh}, 0},
		{&LocalBlock{LocalBlock: *lb}, 1},
		{&Submitted{Block: nh, TxHash: types.Blake2b([]byte("tx"))}, 2},
		{&Confirmed{Block: nh}, 3},
	}
	for _, c := range cases {
		data := MarshalSyncMessage(c.msg)
		assert.Equal(t, c.id, binary.LittleEndian.Uint32(data[:4]))

		got, err := UnmarshalSyncMessage(data)
		require.NoError(t, err)
		assert.IsType(t, c.msg, got)
	}

	got, err := UnmarshalSyncMessage(MarshalSyncMessage(&Submitted{Block: nh, TxHash: types.Blake2b([]byte("tx"))}))
	require.NoError(t, err)
	assert.Equal(t, nh, got.(*Submitted).Block)

	got, err = UnmarshalSyncMessage(MarshalSyncMessage(&LocalBlock{LocalBlock: *lb}))
	require.NoError(t, err)
	assert.Equal(t, lb.Block.Hash(), got.(*LocalBlock).Block.Hash())
}

func TestUnmarshalSyncMessageErrors(t *testing.T) {
	_, err := UnmarshalSyncMessage(nil)
	assert.Error(t, err)

	_, err = UnmarshalSyncMessage([]byte{4, 0, 0, 0})
	assert.Error(t, err)

	data := MarshalSyncMessage(&Confirmed{})
	_, err = UnmarshalSyncMessage(data[:len(data)-1])
	assert.Error(t, err)
	_, err = UnmarshalSyncMessage(append(data, 0))
	assert.Error(t, err)
}
