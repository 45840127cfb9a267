package bot

import (
	"context"
	"log/slog"

	"basegraph.app/reminder/internal/botframework"
)

const (
	turnErrorValueType = "https://www.botframework.com/schemas/error"

	ErrorMessage      = "The bot encountered an error or bug."
	ErrorFollowupText = "To continue to run this bot, please fix the bot source code."
)

// OnTurnError reports a failed turn: it logs the error, sends a trace the
// emulator shows and tells the user something went wrong.
func OnTurnError(ctx context.Context, turn *botframework.TurnContext, err error) {
	slog.ErrorContext(ctx, "unhandled error in turn", "error", err)

	if traceErr := turn.SendTraceActivity(ctx, "OnTurnError Trace", err.Error(), turnErrorValueType, "TurnError"); traceErr != nil {
		slog.WarnContext(ctx, "failed to send turn error trace", "error", traceErr)
	}
	for _, text := range []string{ErrorMessage, ErrorFollowupText} {
		if _, sendErr := turn.SendText(ctx, text); sendErr != nil {
			slog.ErrorContext(ctx, "failed to report turn error to user", "error", sendErr)
			return
		}
	}
}
