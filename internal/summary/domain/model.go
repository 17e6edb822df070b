package domain

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// BucketKey identifies one transaction_summary row.
type BucketKey struct {
	GatewayAccountID string
	TransactionType  string
	TransactionDate  string
	State            string
	Live             bool
	Moto             bool
}

// TransactionDate formats createdDate as the UTC calendar day used in bucket keys.
func TransactionDate(createdDate time.Time) string {
	return createdDate.UTC().Format(dateLayout)
}

type Summary struct {
	GatewayAccountID   string `gorm:"column:gateway_account_id"`
	TransactionType    string `gorm:"column:transaction_type"`
	TransactionDate    string `gorm:"column:transaction_date"`
	State              string `gorm:"column:state"`
	Live               bool   `gorm:"column:live"`
	Moto               bool   `gorm:"column:moto"`
	TotalAmountInPence int64  `gorm:"column:total_amount_in_pence"`
	NoOfTransactions   int64  `gorm:"column:no_of_transactions"`
	TotalFeeInPence    int64  `gorm:"column:total_fee_in_pence"`
}

func (Summary) TableName() string { return "transaction_summary" }

// Normalize trims driver specific date renderings back to YYYY-MM-DD.
func (s *Summary) Normalize() {
	if len(s.TransactionDate) > len(dateLayout) {
		s.TransactionDate = s.TransactionDate[:len(dateLayout)]
	}
	s.TransactionDate = strings.TrimSpace(s.TransactionDate)
}

// Repository applies additive deltas to summary buckets. None of the
// operations recompute a bucket from scratch.
type Repository interface {
	AddToSummary(ctx context.Context, db *gorm.DB, key BucketKey, amount, fee int64) error
	DeductFromSummary(ctx context.Context, db *gorm.DB, key BucketKey, amount, fee int64) error
	UpdateFee(ctx context.Context, db *gorm.DB, key BucketKey, fee int64) error
	Get(ctx context.Context, db *gorm.DB, key BucketKey) (*Summary, error)
}
