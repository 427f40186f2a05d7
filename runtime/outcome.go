package runtime

import (
	"context"
	"errors"

	"github.com/pithecene-io/xray/types"
)

// Exit codes for the CLI, one per outcome status.
const (
	ExitCodeCompleted      = 0   // end event received, then EOF
	ExitCodeTransportError = 1   // connection failed or was rejected
	ExitCodeTruncated      = 2   // EOF without end event; partial report
	ExitCodeCanceled       = 130 // interrupted
)

// DetermineOutcome classifies how a query ended from the ingestion error
// and whether the end event arrived.
//
// Mapping:
//   - nil error, end received: completed
//   - nil error, no end event: truncated (the report is partial)
//   - canceled ingestion or context error: canceled
//   - anything else: transport_error
func DetermineOutcome(err error, endReceived bool) types.QueryOutcome {
	switch {
	case err == nil && endReceived:
		return types.QueryOutcome{
			Status:  types.OutcomeCompleted,
			Message: "report completed",
		}

	case err == nil:
		return types.QueryOutcome{
			Status:  types.OutcomeTruncated,
			Message: "stream ended before the end event; report is partial",
		}

	case IsCanceledError(err) || isContextError(err):
		return types.QueryOutcome{
			Status:  types.OutcomeCanceled,
			Message: "query canceled",
		}

	default:
		return types.QueryOutcome{
			Status:  types.OutcomeTransportError,
			Message: err.Error(),
		}
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled)
}

// ExitCode maps an outcome status to the CLI exit code.
func ExitCode(status types.QueryOutcomeStatus) int {
	switch status {
	case types.OutcomeCompleted:
		return ExitCodeCompleted
	case types.OutcomeTruncated:
		return ExitCodeTruncated
	case types.OutcomeCanceled:
		return ExitCodeCanceled
	default:
		return ExitCodeTransportError
	}
}
