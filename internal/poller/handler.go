package poller

import (
	"errors"

	"github.com/google/uuid"

	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/router"
)

// ErrBufferClosed is returned once the writers have shut down.
var ErrBufferClosed = errors.New("writer buffer closed")

// BufferHandler forwards poll results to the writer buffers.
type BufferHandler struct {
	Snapshots *router.GrowableBuffer[router.SnapshotMsg]
	Funding   *router.GrowableBuffer[router.FundingMsg]
}

// HandleSnapshots implements Handler.
func (h BufferHandler) HandleSnapshots(pollID uuid.UUID, _ string, snapshots []model.Snapshot) error {
	if h.Snapshots == nil {
		return nil
	}
	for _, s := range snapshots {
		if !h.Snapshots.Send(router.SnapshotMsg{PollID: pollID, Snapshot: s}) {
			return ErrBufferClosed
		}
	}
	return nil
}

// HandleFunding implements Handler.
func (h BufferHandler) HandleFunding(pollID uuid.UUID, _ string, rates []model.FundingRate) error {
	if h.Funding == nil {
		return nil
	}
	for _, f := range rates {
		if !h.Funding.Send(router.FundingMsg{PollID: pollID, Funding: f}) {
			return ErrBufferClosed
		}
	}
	return nil
}
