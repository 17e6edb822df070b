package service

import (
	"context"
	"sort"

	eventdomain "github.com/smallbiznis/ledger/internal/event/domain"
	obsmetrics "github.com/smallbiznis/ledger/internal/observability/metrics"
	"github.com/smallbiznis/ledger/internal/summary/domain"
	txdomain "github.com/smallbiznis/ledger/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	operationAdd    = "add"
	operationDeduct = "deduct"
	operationFee    = "fee"
)

var creationEventTypes = map[string]struct{}{
	string(eventdomain.PaymentCreated):             {},
	string(eventdomain.PaymentNotificationCreated): {},
}

// CAPTURE_SUBMITTED always follows an approval that already moved the
// payment to SUCCESS.
var duplicateTerminalEventTypes = map[string]struct{}{
	string(eventdomain.CaptureSubmitted): {},
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       domain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// Service keeps transaction_summary in step with projected payments.
type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("summary.service"),
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

// ProjectTransaction applies the amount and fee deltas that current causes
// for tx, given the full event history of tx.
func (s *Service) ProjectTransaction(ctx context.Context, tx *txdomain.Transaction, current eventdomain.Event, history []eventdomain.Event) error {
	if tx != nil && tx.TransactionType == txdomain.TransactionTypePayment && !hasGatewayAccount(tx) {
		s.log.Debug("skipping summary for transaction without gateway account",
			zap.String("transaction_external_id", tx.ExternalID),
		)
		return nil
	}
	if !summarised(tx, history) {
		return nil
	}

	placed := placeFee(withoutEvent(history, current))
	if err := s.projectAmount(ctx, tx, current, history, placed); err != nil {
		return err
	}
	if placed.counted {
		return nil
	}
	return s.projectFee(ctx, tx, current, history)
}

func (s *Service) projectAmount(ctx context.Context, tx *txdomain.Transaction, current eventdomain.Event, history []eventdomain.Event, placed feePlacement) error {
	effect, previousState := amountEffectOf(current, history)
	switch effect {
	case amountAdd:
		return s.add(ctx, tx, 0)
	case amountSuperseded:
		s.log.Debug("ignoring superseded terminal event",
			zap.String("transaction_external_id", tx.ExternalID),
			zap.String("event_type", current.EventType),
		)
		return nil
	case amountMove:
		// Only a fee already sitting in the previous bucket travels with the amount.
		var fee int64
		if placed.counted && placed.state == previousState {
			fee = placed.fee
		}
		if err := s.repo.DeductFromSummary(ctx, s.db, bucketFor(tx, previousState), tx.TotalOrAmount(), fee); err != nil {
			return err
		}
		s.obsMetrics.RecordSummaryMutation(ctx, operationDeduct)
		return s.add(ctx, tx, fee)
	}
	return nil
}

func (s *Service) add(ctx context.Context, tx *txdomain.Transaction, fee int64) error {
	if err := s.repo.AddToSummary(ctx, s.db, bucketFor(tx, tx.State), tx.TotalOrAmount(), fee); err != nil {
		return err
	}
	s.obsMetrics.RecordSummaryMutation(ctx, operationAdd)
	return nil
}

func (s *Service) projectFee(ctx context.Context, tx *txdomain.Transaction, current eventdomain.Event, history []eventdomain.Event) error {
	if tx.Fee == nil || !firesFee(current, history) {
		return nil
	}
	if err := s.repo.UpdateFee(ctx, s.db, bucketFor(tx, tx.State), *tx.Fee); err != nil {
		return err
	}
	s.obsMetrics.RecordSummaryMutation(ctx, operationFee)
	return nil
}

type amountEffect int

const (
	amountNone amountEffect = iota
	amountAdd
	amountMove
	amountSuperseded
)

// amountEffectOf decides what current does to the transaction's amount. For
// amountMove it also returns the state whose bucket holds the amount today.
func amountEffectOf(current eventdomain.Event, history []eventdomain.Event) (amountEffect, txdomain.State) {
	if isDuplicateTerminal(current.EventType) {
		return amountNone, ""
	}

	currentIsCreation := isCreation(current.EventType)
	finished := finishedEventsNewestFirst(history)

	switch {
	case currentIsCreation && len(finished) > 0:
	case txdomain.MapsToFinishedState(current.EventType):
	default:
		return amountNone, ""
	}
	if len(finished) < 2 || currentIsCreation {
		return amountAdd, ""
	}

	previous := finished[1]
	switch idx := findEvent(finished, current); {
	case idx < 0:
		previous = finished[0]
	case idx > 0:
		// A newer finished event has already been counted.
		return amountSuperseded, ""
	}

	currentState, _ := txdomain.StateFromEventType(current.EventType)
	previousState, _ := txdomain.StateFromEventType(previous.EventType)
	if previousState == currentState {
		return amountNone, ""
	}
	return amountMove, previousState
}

// firesFee reports whether current is the event that assigns the fee: a
// creation event or the first CAPTURE_CONFIRMED.
func firesFee(current eventdomain.Event, history []eventdomain.Event) bool {
	if isCreation(current.EventType) {
		return true
	}
	return current.EventType == string(eventdomain.CaptureConfirmed) && countType(history, current.EventType) == 1
}

// feePlacement records where earlier events left a transaction's fee.
type feePlacement struct {
	counted bool
	state   txdomain.State
	fee     int64
}

// placeFee replays prior in arrival order under the same rules
// ProjectTransaction applied when each event was first stored.
func placeFee(prior []eventdomain.Event) feePlacement {
	arrivals := make([]eventdomain.Event, len(prior))
	copy(arrivals, prior)
	sort.SliceStable(arrivals, func(i, j int) bool { return arrivals[i].ID < arrivals[j].ID })

	var placed feePlacement
	for i, e := range arrivals {
		seen := arrivals[:i+1]
		digest, err := eventdomain.BuildDigest(seen)
		if err != nil {
			continue
		}
		tx, err := txdomain.FromDigest(digest)
		if err != nil || !summarised(&tx, seen) {
			continue
		}

		if placed.counted {
			if effect, from := amountEffectOf(e, seen); effect == amountMove && from == placed.state {
				placed.state = tx.State
			}
			continue
		}
		if tx.Fee != nil && firesFee(e, seen) {
			placed = feePlacement{counted: true, state: tx.State, fee: *tx.Fee}
		}
	}
	return placed
}

// summarised reports whether tx contributes to transaction_summary at all.
func summarised(tx *txdomain.Transaction, history []eventdomain.Event) bool {
	if tx == nil || tx.TransactionType != txdomain.TransactionTypePayment {
		return false
	}
	return hasGatewayAccount(tx) && hasCreationEvent(history)
}

func hasGatewayAccount(tx *txdomain.Transaction) bool {
	return tx.GatewayAccountID != nil && *tx.GatewayAccountID != ""
}

func bucketFor(tx *txdomain.Transaction, state txdomain.State) domain.BucketKey {
	key := domain.BucketKey{
		TransactionType: string(tx.TransactionType),
		TransactionDate: domain.TransactionDate(tx.CreatedDate),
		State:           string(state),
		Moto:            tx.Moto,
	}
	if tx.GatewayAccountID != nil {
		key.GatewayAccountID = *tx.GatewayAccountID
	}
	if tx.Live != nil {
		key.Live = *tx.Live
	}
	return key
}

func isCreation(eventType string) bool {
	_, ok := creationEventTypes[eventType]
	return ok
}

func isDuplicateTerminal(eventType string) bool {
	_, ok := duplicateTerminalEventTypes[eventType]
	return ok
}

func hasCreationEvent(events []eventdomain.Event) bool {
	for _, e := range events {
		if isCreation(e.EventType) {
			return true
		}
	}
	return false
}

func countType(events []eventdomain.Event, eventType string) int {
	n := 0
	for _, e := range events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

func finishedEventsNewestFirst(events []eventdomain.Event) []eventdomain.Event {
	sorted := eventdomain.SortEvents(events)
	out := make([]eventdomain.Event, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		e := sorted[i]
		if isDuplicateTerminal(e.EventType) || !txdomain.MapsToFinishedState(e.EventType) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func withoutEvent(events []eventdomain.Event, target eventdomain.Event) []eventdomain.Event {
	out := make([]eventdomain.Event, 0, len(events))
	for _, e := range events {
		if !sameEvent(e, target) {
			out = append(out, e)
		}
	}
	return out
}

func findEvent(events []eventdomain.Event, target eventdomain.Event) int {
	for i, e := range events {
		if sameEvent(e, target) {
			return i
		}
	}
	return -1
}

// sameEvent matches by id, falling back to identity fields for events whose
// id was assigned but never stored.
func sameEvent(a, b eventdomain.Event) bool {
	if a.ID != 0 && a.ID == b.ID {
		return true
	}
	if a.EventType != b.EventType || !a.EventDate.Equal(b.EventDate) {
		return false
	}
	return a.EventDataHash == "" || b.EventDataHash == "" || a.EventDataHash == b.EventDataHash
}
