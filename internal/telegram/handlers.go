package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hcissey0/fitpal-notify/internal/domain"
)

func (r *Router) handleStatus(chatID int64) {
	pending := r.ctrl.Pending()
	if len(pending) == 0 {
		r.sendText(chatID, statusEmpty)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, statusTitleFmt, len(pending))
	for _, p := range pending {
		fmt.Fprintf(&sb, statusLineFmt, p.FireAt.Format("Mon 15:04"), p.Title)
	}
	r.sendText(chatID, sb.String())
}

func (r *Router) handleMeal(ctx context.Context, chatID int64, arg string) {
	var at *domain.TimeOfDay
	if arg != "" {
		t, err := domain.ParseTimeOfDay(arg)
		if err != nil {
			r.sendText(chatID, "Invalid time. Example: /meal 13:30")
			return
		}
		at = &t
	}

	cur, err := r.ctrl.CurrentMeal(ctx, at)
	if err != nil {
		r.log.Error("current meal failed", zap.Error(err))
		r.sendText(chatID, "Could not load your meal times.")
		return
	}
	r.sendText(chatID, fmt.Sprintf(mealFmt, cur.At, cur.Label))
}

func (r *Router) handleRefresh(ctx context.Context, chatID int64) {
	sum, err := r.ctrl.Refresh(ctx)
	if err != nil {
		r.log.Error("refresh failed", zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			r.sendText(chatID, "FitPal did not answer in time. Try again later.")
			return
		}
		r.sendText(chatID, "Could not load your plan.")
		return
	}
	if !sum.Enabled {
		r.sendText(chatID, refreshDisabled)
		return
	}
	r.sendText(chatID, fmt.Sprintf(refreshFmt, sum.Scheduled))
}

func (r *Router) handleCancel(chatID int64) {
	n := r.ctrl.Count()
	r.ctrl.CancelAll()
	r.sendText(chatID, fmt.Sprintf(cancelFmt, n))
}
