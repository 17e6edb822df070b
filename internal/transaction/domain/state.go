package domain

import (
	eventdomain "github.com/smallbiznis/ledger/internal/event/domain"
)

type State string

const (
	StateCreated         State = "CREATED"
	StateStarted         State = "STARTED"
	StateSubmitted       State = "SUBMITTED"
	StateCapturable      State = "CAPTURABLE"
	StateSuccess         State = "SUCCESS"
	StateFailedRejected  State = "FAILED_REJECTED"
	StateFailedExpired   State = "FAILED_EXPIRED"
	StateFailedCancelled State = "FAILED_CANCELLED"
	StateCancelled       State = "CANCELLED"
	StateError           State = "ERROR"
	StateErrorGateway    State = "ERROR_GATEWAY"
	StateNeedsResponse   State = "NEEDS_RESPONSE"
	StateUnderReview     State = "UNDER_REVIEW"
	StateWon             State = "WON"
	StateLost            State = "LOST"
)

var stateByEvent = map[eventdomain.SalientEventType]State{
	eventdomain.PaymentCreated:                                StateCreated,
	eventdomain.PaymentNotificationCreated:                    StateSubmitted,
	eventdomain.PaymentStarted:                                StateStarted,
	eventdomain.GatewayRequires3DSAuthorisation:               StateStarted,
	eventdomain.AuthorisationSucceeded:                        StateSubmitted,
	eventdomain.UserApprovedForCaptureAwaitingServiceApproval: StateCapturable,
	eventdomain.UserApprovedForCapture:                        StateSuccess,
	eventdomain.ServiceApprovedForCapture:                     StateSuccess,
	eventdomain.CaptureSubmitted:                              StateSuccess,
	eventdomain.CaptureConfirmed:                              StateSuccess,
	eventdomain.StatusCorrectedToCapturedToMatchGatewayStatus: StateSuccess,
	eventdomain.AuthorisationRejected:                         StateFailedRejected,
	eventdomain.AuthorisationCancelled:                        StateFailedRejected,
	eventdomain.StatusCorrectedToRejectedToMatchGatewayStatus: StateFailedRejected,
	eventdomain.PaymentExpired:                                StateFailedExpired,
	eventdomain.CancelledByExpiration:                         StateFailedExpired,
	eventdomain.CancelledByUser:                               StateFailedCancelled,
	eventdomain.CancelledByExternalService:                    StateCancelled,
	eventdomain.GatewayErrorDuringAuthorisation:               StateErrorGateway,
	eventdomain.GatewayTimeoutDuringAuthorisation:             StateErrorGateway,
	eventdomain.UnexpectedGatewayErrorDuringAuthorisation:     StateErrorGateway,
	eventdomain.CaptureErrored:                                StateError,
	eventdomain.CaptureAbandonedAfterTooManyRetries:           StateError,
	eventdomain.CancelByExternalServiceFailed:                 StateError,
	eventdomain.CancelByExpirationFailed:                      StateError,
	eventdomain.CancelByUserFailed:                            StateError,
	eventdomain.StatusCorrectedToErrorToMatchGatewayStatus:    StateError,

	eventdomain.RefundCreatedByService: StateCreated,
	eventdomain.RefundCreatedByUser:    StateCreated,
	eventdomain.RefundSubmitted:        StateSubmitted,
	eventdomain.RefundSucceeded:        StateSuccess,
	eventdomain.RefundError:            StateError,

	eventdomain.DisputeCreated:           StateNeedsResponse,
	eventdomain.DisputeEvidenceSubmitted: StateUnderReview,
	eventdomain.DisputeWon:               StateWon,
	eventdomain.DisputeLost:              StateLost,
}

var finishedStates = map[State]struct{}{
	StateSuccess:         {},
	StateFailedRejected:  {},
	StateFailedExpired:   {},
	StateFailedCancelled: {},
	StateCancelled:       {},
	StateError:           {},
	StateErrorGateway:    {},
	StateWon:             {},
	StateLost:            {},
}

// StateFromEventType maps a raw event type to the transaction state it
// implies. ok is false for event types that do not move a transaction.
func StateFromEventType(eventType string) (State, bool) {
	salient, ok := eventdomain.ParseSalientEventType(eventType)
	if !ok {
		return "", false
	}
	state, ok := stateByEvent[salient]
	return state, ok
}

func (s State) IsFinished() bool {
	_, ok := finishedStates[s]
	return ok
}

// MapsToFinishedState reports whether eventType moves a transaction into a
// finished state.
func MapsToFinishedState(eventType string) bool {
	state, ok := StateFromEventType(eventType)
	return ok && state.IsFinished()
}
