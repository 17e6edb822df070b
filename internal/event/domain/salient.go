package domain

// SalientEventType is an event type that moves a resource through its
// lifecycle. Every other event type only contributes fields.
type SalientEventType string

const (
	PaymentCreated                                SalientEventType = "PAYMENT_CREATED"
	PaymentNotificationCreated                    SalientEventType = "PAYMENT_NOTIFICATION_CREATED"
	PaymentStarted                                SalientEventType = "PAYMENT_STARTED"
	PaymentExpired                                SalientEventType = "PAYMENT_EXPIRED"
	GatewayRequires3DSAuthorisation               SalientEventType = "GATEWAY_REQUIRES_3DS_AUTHORISATION"
	AuthorisationSucceeded                        SalientEventType = "AUTHORISATION_SUCCEEDED"
	AuthorisationRejected                         SalientEventType = "AUTHORISATION_REJECTED"
	AuthorisationCancelled                        SalientEventType = "AUTHORISATION_CANCELLED"
	GatewayErrorDuringAuthorisation               SalientEventType = "GATEWAY_ERROR_DURING_AUTHORISATION"
	GatewayTimeoutDuringAuthorisation             SalientEventType = "GATEWAY_TIMEOUT_DURING_AUTHORISATION"
	UnexpectedGatewayErrorDuringAuthorisation     SalientEventType = "UNEXPECTED_GATEWAY_ERROR_DURING_AUTHORISATION"
	UserApprovedForCaptureAwaitingServiceApproval SalientEventType = "USER_APPROVED_FOR_CAPTURE_AWAITING_SERVICE_APPROVAL"
	UserApprovedForCapture                        SalientEventType = "USER_APPROVED_FOR_CAPTURE"
	ServiceApprovedForCapture                     SalientEventType = "SERVICE_APPROVED_FOR_CAPTURE"
	CaptureSubmitted                              SalientEventType = "CAPTURE_SUBMITTED"
	CaptureConfirmed                              SalientEventType = "CAPTURE_CONFIRMED"
	CaptureErrored                                SalientEventType = "CAPTURE_ERRORED"
	CaptureAbandonedAfterTooManyRetries           SalientEventType = "CAPTURE_ABANDONED_AFTER_TOO_MANY_RETRIES"
	CancelledByExpiration                         SalientEventType = "CANCELLED_BY_EXPIRATION"
	CancelledByUser                               SalientEventType = "CANCELLED_BY_USER"
	CancelledByExternalService                    SalientEventType = "CANCELLED_BY_EXTERNAL_SERVICE"
	CancelByExternalServiceFailed                 SalientEventType = "CANCEL_BY_EXTERNAL_SERVICE_FAILED"
	CancelByExpirationFailed                      SalientEventType = "CANCEL_BY_EXPIRATION_FAILED"
	CancelByUserFailed                            SalientEventType = "CANCEL_BY_USER_FAILED"
	StatusCorrectedToCapturedToMatchGatewayStatus SalientEventType = "STATUS_CORRECTED_TO_CAPTURED_TO_MATCH_GATEWAY_STATUS"
	StatusCorrectedToRejectedToMatchGatewayStatus SalientEventType = "STATUS_CORRECTED_TO_AUTHORISATION_REJECTED_TO_MATCH_GATEWAY_STATUS"
	StatusCorrectedToErrorToMatchGatewayStatus    SalientEventType = "STATUS_CORRECTED_TO_AUTHORISATION_ERROR_TO_MATCH_GATEWAY_STATUS"

	RefundCreatedByService SalientEventType = "REFUND_CREATED_BY_SERVICE"
	RefundCreatedByUser    SalientEventType = "REFUND_CREATED_BY_USER"
	RefundSubmitted        SalientEventType = "REFUND_SUBMITTED"
	RefundSucceeded        SalientEventType = "REFUND_SUCCEEDED"
	RefundError            SalientEventType = "REFUND_ERROR"

	DisputeCreated           SalientEventType = "DISPUTE_CREATED"
	DisputeEvidenceSubmitted SalientEventType = "DISPUTE_EVIDENCE_SUBMITTED"
	DisputeWon               SalientEventType = "DISPUTE_WON"
	DisputeLost              SalientEventType = "DISPUTE_LOST"

	PayoutCreated SalientEventType = "PAYOUT_CREATED"
	PayoutPaid    SalientEventType = "PAYOUT_PAID"
	PayoutFailed  SalientEventType = "PAYOUT_FAILED"

	AgreementCreated            SalientEventType = "AGREEMENT_CREATED"
	AgreementSetUp              SalientEventType = "AGREEMENT_SET_UP"
	AgreementCancelledByService SalientEventType = "AGREEMENT_CANCELLED_BY_SERVICE"
	AgreementCancelledByUser    SalientEventType = "AGREEMENT_CANCELLED_BY_USER"
	AgreementInactivated        SalientEventType = "AGREEMENT_INACTIVATED"
)

var salientEventTypes = map[SalientEventType]struct{}{}

func init() {
	for _, t := range []SalientEventType{
		PaymentCreated, PaymentNotificationCreated, PaymentStarted, PaymentExpired,
		GatewayRequires3DSAuthorisation, AuthorisationSucceeded, AuthorisationRejected,
		AuthorisationCancelled, GatewayErrorDuringAuthorisation, GatewayTimeoutDuringAuthorisation,
		UnexpectedGatewayErrorDuringAuthorisation, UserApprovedForCaptureAwaitingServiceApproval,
		UserApprovedForCapture, ServiceApprovedForCapture, CaptureSubmitted, CaptureConfirmed,
		CaptureErrored, CaptureAbandonedAfterTooManyRetries, CancelledByExpiration, CancelledByUser,
		CancelledByExternalService, CancelByExternalServiceFailed, CancelByExpirationFailed,
		CancelByUserFailed, StatusCorrectedToCapturedToMatchGatewayStatus,
		StatusCorrectedToRejectedToMatchGatewayStatus, StatusCorrectedToErrorToMatchGatewayStatus,
		RefundCreatedByService, RefundCreatedByUser, RefundSubmitted, RefundSucceeded, RefundError,
		DisputeCreated, DisputeEvidenceSubmitted, DisputeWon, DisputeLost,
		PayoutCreated, PayoutPaid, PayoutFailed,
		AgreementCreated, AgreementSetUp, AgreementCancelledByService, AgreementCancelledByUser,
		AgreementInactivated,
	} {
		salientEventTypes[t] = struct{}{}
	}
}

// ParseSalientEventType returns false for event types outside the vocabulary.
func ParseSalientEventType(eventType string) (SalientEventType, bool) {
	t := SalientEventType(eventType)
	_, ok := salientEventTypes[t]
	return t, ok
}

func (t SalientEventType) String() string { return string(t) }
