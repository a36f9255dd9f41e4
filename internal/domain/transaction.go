package domain

import "time"

// 交易类型
const (
	TxCheckIn  = "check-in"  // 消费积分：按商户返现比例累积余额
	TxCheckOut = "check-out" // 扣减余额：不得超过当前余额
)

// Transaction 交易领域模型（商户分区 transactions 表，append-only）
// 创建后不可变更；loyalty_percentage 为创建时刻商户比例的快照，
// 商户后续调整比例不影响历史交易。
type Transaction struct {
	TransactionID string `db:"transaction_id"` // UUID, PRIMARY KEY

	Type           string  `db:"type"`             // check-in / check-out
	Amount         float64 `db:"amount"`           // check-in 消费总额 / check-out 请求金额
	CheckOutAmount float64 `db:"check_out_amount"` // 仅 check-out 使用，> 0

	LoyaltyPercentage float64 `db:"loyalty_percentage"` // 创建时快照

	UserID     string `db:"user_id"`
	OperatorID string `db:"operator_id"`

	CreatedAt time.Time `db:"created_at"`
}

// LedgerTotals 分区内全量交易聚合（仪表盘）
type LedgerTotals struct {
	TransactionCount int     `json:"transactionCount"`
	CheckInVolume    float64 `json:"checkInVolume"`   // Σ check-in amount
	CashbackAccrued  float64 `json:"cashbackAccrued"` // Σ check-in amount×pct/100
	CheckOutVolume   float64 `json:"checkOutVolume"`  // Σ check-out checkOutAmount
}

// Cashback check-in 交易为用户累积的余额增量
func (t *Transaction) Cashback() float64 {
	if t.Type != TxCheckIn {
		return 0
	}
	return t.Amount * t.LoyaltyPercentage / 100.0
}
