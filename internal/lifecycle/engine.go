// Package lifecycle classifies campaigns for a viewer: status label, the
// actions the viewer may take right now, and the advisory text for the rows
// where nothing is possible. It never mutates state — all transitions happen
// on the contract, this is the read side.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chainraise/backend/internal/models"
)

// ReclaimedSource answers whether a donor already claimed a refund.
// Backed by the contract's hasReclaimed view call.
type ReclaimedSource interface {
	HasReclaimed(ctx context.Context, localID int64, donor string) (bool, error)
}

// Assessment is the per-(campaign, viewer, instant) view-model.
type Assessment struct {
	StatusLabel     string          `json:"status_label"`
	Actions         []models.Action `json:"actions"`
	Note            string          `json:"note,omitempty"`
	IsCreator       bool            `json:"is_creator"`
	EndTime         int64           `json:"end_time"`
	ReclaimDeadline int64           `json:"reclaim_deadline,omitempty"`
}

type Engine struct {
	source ReclaimedSource
	log    *zap.Logger

	// session cache of (campaign, donor) -> reclaimed. Only positive facts
	// the contract reported; a failed lookup is not cached.
	mu        sync.Mutex
	reclaimed map[string]bool
}

func NewEngine(source ReclaimedSource, log *zap.Logger) *Engine {
	return &Engine{
		source:    source,
		log:       log,
		reclaimed: make(map[string]bool),
	}
}

func reclaimKey(id int64, donor string) string {
	return fmt.Sprintf("%d|%s", id, strings.ToLower(donor))
}

// hasReclaimed consults the cache, then the contract. A failed lookup
// defaults to false: the client is advisory here, the contract itself
// rejects a double refund.
func (e *Engine) hasReclaimed(ctx context.Context, id int64, donor string) bool {
	if donor == "" {
		return false
	}
	key := reclaimKey(id, donor)

	e.mu.Lock()
	v, ok := e.reclaimed[key]
	e.mu.Unlock()
	if ok {
		return v
	}

	v, err := e.source.HasReclaimed(ctx, id, donor)
	if err != nil {
		e.log.Debug("hasReclaimed lookup failed, failing open",
			zap.Int64("campaign_id", id),
			zap.Error(err),
		)
		return false
	}

	e.mu.Lock()
	e.reclaimed[key] = v
	e.mu.Unlock()
	return v
}

// MarkReclaimed records a confirmed refund so the session stops offering the
// action without waiting for the next contract read.
func (e *Engine) MarkReclaimed(id int64, donor string) {
	e.mu.Lock()
	e.reclaimed[reclaimKey(id, donor)] = true
	e.mu.Unlock()
}

// Evaluate computes the viewer's assessment of a campaign at instant now
// (unix seconds, sampled by the caller at evaluation time).
func (e *Engine) Evaluate(ctx context.Context, c models.Campaign, viewer string, now int64) Assessment {
	a := Assessment{
		StatusLabel: c.Status.String(),
		Actions:     []models.Action{},
		IsCreator:   c.IsCreator(viewer),
		EndTime:     c.EndTime,
	}

	switch c.Status {
	case models.StatusActive:
		if a.IsCreator {
			a.Actions = append(a.Actions, models.ActionInitiateClosure)
		} else {
			a.Actions = append(a.Actions, models.ActionDonate)
		}

	case models.StatusSuccessful:
		if a.IsCreator {
			a.Actions = append(a.Actions, models.ActionWithdraw)
		} else {
			a.Note = "campaign reached its target"
		}

	case models.StatusClosing:
		a.ReclaimDeadline = c.ReclaimDeadline
		// a zero deadline while closing is treated as already passed: the
		// creator's withdrawal is not held hostage by a missing timestamp
		deadlinePassed := c.ReclaimDeadline == 0 || now >= c.ReclaimDeadline
		switch {
		case a.IsCreator && deadlinePassed:
			a.Actions = append(a.Actions, models.ActionWithdraw)
		case a.IsCreator:
			a.Note = fmt.Sprintf("refund window open until %s", formatDeadline(c.ReclaimDeadline))
		case deadlinePassed:
			a.Note = "refund period ended"
		case e.hasReclaimed(ctx, c.ID, viewer):
			a.Note = "refund already claimed"
		default:
			a.Actions = append(a.Actions, models.ActionClaimRefund)
			a.Note = fmt.Sprintf("refund window open until %s", formatDeadline(c.ReclaimDeadline))
		}

	case models.StatusFailed:
		switch {
		case a.IsCreator && c.RaisedAmount != nil && c.RaisedAmount.Sign() > 0:
			a.Actions = append(a.Actions, models.ActionWithdraw)
		case a.IsCreator:
			a.Note = "nothing left to withdraw"
		case e.hasReclaimed(ctx, c.ID, viewer):
			a.Note = "refund already claimed"
		default:
			a.Actions = append(a.Actions, models.ActionClaimRefund)
		}

	case models.StatusClosed:
		a.Note = "campaign closed"
	}

	return a
}

func formatDeadline(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
