package blocksync

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/mosaicnetworks/rollsync/src/net"
	"github.com/sirupsen/logrus"
)

// handshake asks the peer to stream from our last confirmed block, retrying
// after the backoff for as long as the peer answers TryAgain. Every attempt
// first syncs from L1.
//
// Failures to send, receive or parse are stream errors. A failed L1 sync is
// not: the stream is kept for the next cycle.
func (c *Client) handshake(ctx context.Context, stream net.Stream) error {
	logger := c.logger.WithField("stream", stream.ID())

	for {
		if err := c.syncL1(ctx); err != nil {
			return fmt.Errorf("l1 sync before handshake: %w", err)
		}

		confirmed, err := c.store.GetLastConfirmedBlockNumberHash()
		if err != nil {
			return fmt.Errorf("last confirmed: %w", err)
		}

		logger.WithField("number", confirmed.Number).Info("request syncing")

		req := SyncRequest{LastConfirmed: confirmed}
		if err := stream.Send(ctx, req.Marshal()); err != nil {
			return asStreamError("send", err)
		}
		atomic.AddUint64(&c.syncRequests, 1)
		c.metrics.SyncRequests.Add(1)

		frame, err := stream.Recv(ctx)
		if err == io.EOF {
			return net.NewStreamError("recv", io.ErrUnexpectedEOF)
		}
		if err != nil {
			return asStreamError("recv", err)
		}

		resp, err := UnmarshalSyncResponse(frame)
		if err != nil {
			return net.NewStreamError("decode", err)
		}
		if resp == Found {
			return nil
		}

		logger.WithFields(logrus.Fields{
			"number":   confirmed.Number,
			"response": resp,
		}).Info("will try again")

		if err := c.sleep(ctx); err != nil {
			return err
		}
	}
}
