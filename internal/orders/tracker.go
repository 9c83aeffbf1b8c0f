package orders

import (
	"context"

	"github.com/angelmondragon/cloudcore-storefront/pkg/enums"
	"github.com/angelmondragon/cloudcore-storefront/pkg/logger"
)

// tracker walks one submission through its state machine and logs each step.
type tracker struct {
	ctx   context.Context
	logg  *logger.Logger
	state enums.SubmissionState
}

func newTracker(ctx context.Context, logg *logger.Logger) *tracker {
	return &tracker{ctx: ctx, logg: logg, state: enums.SubmissionStateIdle}
}

func (t *tracker) to(next enums.SubmissionState) {
	ctx := t.logg.WithFields(t.ctx, map[string]any{"from": t.state.String(), "to": next.String()})
	if !t.state.CanTransition(next) {
		t.logg.Warn(ctx, "unexpected submission state transition")
	} else {
		t.logg.Debug(ctx, "submission state")
	}
	t.state = next
}

func (t *tracker) current() enums.SubmissionState {
	return t.state
}
