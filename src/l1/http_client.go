package l1

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	cm "github.com/mosaicnetworks/rollsync/src/common"
	"github.com/mosaicnetworks/rollsync/src/types"
	"github.com/ugorji/go/codec"
)

const (
	methodGetCommittedTip   = "rollsync_getCommittedTip"
	methodGetCommittedBlock = "rollsync_getCommittedBlock"
)

type rpcRequest struct {
	JSONRPC string        `codec:"jsonrpc"`
	ID      uint64        `codec:"id"`
	Method  string        `codec:"method"`
	Params  []interface{} `codec:"params"`
}

type rpcError struct {
	Code    int    `codec:"code"`
	Message string `codec:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type tipResult struct {
	Number string `codec:"number"`
	Hash   string `codec:"hash"`
}

type tipResponse struct {
	ID     uint64     `codec:"id"`
	Result *tipResult `codec:"result"`
	Error  *rpcError  `codec:"error"`
}

type blockResult struct {
	Block        string `codec:"block"`
	SubmitTxHash string `codec:"submit_tx_hash"`
}

type blockResponse struct {
	ID     uint64       `codec:"id"`
	Result *blockResult `codec:"result"`
	Error  *rpcError    `codec:"error"`
}

// HTTPClient is an RPCClient speaking JSON-RPC over HTTP to an L1 indexer.
// Block payloads travel as 0x-prefixed hex of their binary encoding.
type HTTPClient struct {
	endpoint string
	client   *http.Client
	nextID   uint64
}

// NewHTTPClient returns an HTTPClient posting to endpoint.
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) GetCommittedTip(ctx context.Context, rollup *types.Script) (types.NumberHash, error) {
	var resp tipResponse
	if err := c.call(ctx, methodGetCommittedTip, []interface{}{rollup.Hash().Hex()}, &resp); err != nil {
		return types.NumberHash{}, err
	}
	if resp.Error != nil {
		return types.NumberHash{}, resp.Error
	}
	if resp.Result == nil {
		return types.NumberHash{}, fmt.Errorf("%s: empty result", methodGetCommittedTip)
	}

	number, err := cm.DecodeQuantity(resp.Result.Number)
	if err != nil {
		return types.NumberHash{}, err
	}
	hash, err := types.HashFromHex(resp.Result.Hash)
	if err != nil {
		return types.NumberHash{}, err
	}
	return types.NumberHash{Number: number, Hash: hash}, nil
}

func (c *HTTPClient) GetCommittedBlock(ctx context.Context, rollup *types.Script, number uint64) (*CommittedBlock, error) {
	var resp blockResponse
	params := []interface{}{rollup.Hash().Hex(), cm.EncodeQuantity(number)}
	if err := c.call(ctx, methodGetCommittedBlock, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("%w: %d", ErrBlockNotCommitted, number)
	}

	raw, err := cm.DecodeFromString(resp.Result.Block)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", number, err)
	}
	cb := new(CommittedBlock)
	r := types.NewReader(raw)
	cb.LocalBlock.Decode(r)
	if err := r.Finish(); err != nil {
		return nil, fmt.Errorf("block %d: %w", number, err)
	}
	if cb.SubmitTxHash, err = types.HashFromHex(resp.Result.SubmitTxHash); err != nil {
		return nil, err
	}
	if cb.Block.Number() != number {
		return nil, fmt.Errorf("asked for block %d, got %d", number, cb.Block.Number())
	}
	return cb, nil
}

func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	jh := new(codec.JsonHandle)

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      atomic.AddUint64(&c.nextID, 1),
		Method:  method,
		Params:  params,
	}
	var body bytes.Buffer
	if err := codec.NewEncoder(&body, jh).Encode(req); err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: http status %s", method, httpResp.Status)
	}
	if err := codec.NewDecoder(httpResp.Body, jh).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", method, err)
	}
	return nil
}
