package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	eventdomain "github.com/smallbiznis/ledger/internal/event/domain"
)

var ErrNotATransaction = errors.New("not_a_transaction")

const (
	PaymentDetailsKey   = "payment_details"
	ExternalMetadataKey = "external_metadata"
)

// ParentPaymentDetailFields are copied from the parent payment's aggregate
// into a child's payment_details.
var ParentPaymentDetailFields = []string{
	"card_brand_label",
	"expiry_date",
	"card_type",
	"wallet_type",
}

var transactionTypeByResource = map[eventdomain.ResourceType]TransactionType{
	eventdomain.ResourceTypePayment: TransactionTypePayment,
	eventdomain.ResourceTypeRefund:  TransactionTypeRefund,
	eventdomain.ResourceTypeDispute: TransactionTypeDispute,
}

// FromDigest builds a transaction from a digest. Identity fields always come
// from the digest metadata, never from the aggregate.
func FromDigest(digest eventdomain.EventDigest) (Transaction, error) {
	txType, ok := transactionTypeByResource[digest.ResourceType]
	if !ok {
		return Transaction{}, fmt.Errorf("%w: %s", ErrNotATransaction, digest.ResourceType)
	}
	if digest.MostRecentSalientEventType == nil {
		return Transaction{}, fmt.Errorf("transaction %s: %w", digest.ResourceExternalID, eventdomain.ErrNoSalientEvent)
	}
	state, ok := StateFromEventType(digest.MostRecentSalientEventType.String())
	if !ok {
		return Transaction{}, fmt.Errorf("transaction %s: %s has no state: %w",
			digest.ResourceExternalID, *digest.MostRecentSalientEventType, eventdomain.ErrNoSalientEvent)
	}

	agg := digest.Aggregate
	if agg == nil {
		agg = eventdomain.Aggregate{}
	}
	details, err := json.Marshal(agg)
	if err != nil {
		return Transaction{}, err
	}

	t := Transaction{
		ExternalID:            digest.ResourceExternalID,
		ParentExternalID:      digest.ParentResourceExternalID,
		ServiceID:             digest.ServiceID,
		Live:                  digest.Live,
		CreatedDate:           digest.CreatedDate,
		EventCount:            digest.EventCount,
		TransactionType:       txType,
		State:                 state,
		GatewayAccountID:      agg.String("gateway_account_id"),
		Amount:                agg.Int64("amount"),
		TotalAmount:           agg.Int64("total_amount"),
		NetAmount:             agg.Int64("net_amount"),
		Fee:                   agg.Int64("fee"),
		CorporateSurcharge:    agg.Int64("corporate_surcharge"),
		Reference:             agg.String("reference"),
		Description:           agg.String("description"),
		Email:                 agg.String("email"),
		CardholderName:        agg.String("cardholder_name"),
		CardBrand:             agg.String("card_brand"),
		FirstDigitsCardNumber: agg.String("first_digits_card_number"),
		LastDigitsCardNumber:  agg.String("last_digits_card_number"),
		GatewayTransactionID:  agg.String("gateway_transaction_id"),
		GatewayPayoutID:       agg.String("gateway_payout_id"),
		AgreementID:           agg.String("agreement_id"),
		Source:                agg.String("source"),
		TransactionDetails:    details,
		ExternalMetadata:      externalMetadata(agg),
	}
	if moto := agg.Bool("moto"); moto != nil {
		t.Moto = *moto
	}
	return t, nil
}

// CopyParentPaymentDetails returns a copy of child with the whitelisted
// parent fields nested under payment_details. Existing payment_details keys
// that the parent does not carry are kept.
func CopyParentPaymentDetails(child, parent eventdomain.Aggregate) eventdomain.Aggregate {
	out := child.Clone()
	details := map[string]any{}
	for k, v := range child.Map(PaymentDetailsKey) {
		details[k] = v
	}
	for _, field := range ParentPaymentDetailFields {
		if parent.Has(field) {
			details[field] = parent[field]
		}
	}
	if len(details) > 0 {
		out[PaymentDetailsKey] = details
	}
	return out
}

// ApplyParent copies the fields a refund or dispute inherits from its payment
// and attaches the parent snapshot.
func (t *Transaction) ApplyParent(parent Transaction) {
	t.GatewayAccountID = firstNonNil(parent.GatewayAccountID, t.GatewayAccountID)
	t.CardholderName = firstNonNil(parent.CardholderName, t.CardholderName)
	t.Email = firstNonNil(parent.Email, t.Email)
	t.CardBrand = firstNonNil(parent.CardBrand, t.CardBrand)
	t.FirstDigitsCardNumber = firstNonNil(parent.FirstDigitsCardNumber, t.FirstDigitsCardNumber)
	t.LastDigitsCardNumber = firstNonNil(parent.LastDigitsCardNumber, t.LastDigitsCardNumber)
	t.Moto = parent.Moto
	t.ServiceID = firstNonNil(t.ServiceID, parent.ServiceID)
	t.Live = firstNonNil(t.Live, parent.Live)
	if t.ParentExternalID == nil {
		id := parent.ExternalID
		t.ParentExternalID = &id
	}

	snapshot := parent
	snapshot.Parent = nil
	t.Parent = &snapshot
}

func firstNonNil[T any](values ...*T) *T {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func externalMetadata(agg eventdomain.Aggregate) map[string]string {
	raw := agg.Map(ExternalMetadataKey)
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for key, value := range raw {
		key = strings.TrimSpace(key)
		if key == "" || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			out[key] = v
		case json.Number:
			out[key] = v.String()
		case bool:
			out[key] = fmt.Sprintf("%t", v)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[key] = string(encoded)
		}
	}
	return out
}
