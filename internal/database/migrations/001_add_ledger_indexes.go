package migrations

import (
	"gorm.io/gorm"
)

// AddLedgerIndexes creates secondary indexes on the hot query paths:
// order listings, earnings rollups and withdrawal processing.
func AddLedgerIndexes(db *gorm.DB) error {
	// Using raw SQL for index creation to have more control over index types
	indexes := []string{
		// Order listings per party
		`CREATE INDEX IF NOT EXISTS idx_orders_customer
		 ON orders(customer_id, created_at)`,

		`CREATE INDEX IF NOT EXISTS idx_orders_entrepreneur
		 ON orders(entrepreneur_id, created_at)`,

		`CREATE INDEX IF NOT EXISTS idx_orders_supplier
		 ON orders(supplier_id, created_at)`,

		// Status filtering for operational dashboards
		`CREATE INDEX IF NOT EXISTS idx_orders_status
		 ON orders(status)`,

		// Status history replay per order
		`CREATE INDEX IF NOT EXISTS idx_order_status_histories_order
		 ON order_status_histories(order_ref, created_at)`,

		// Earnings rollups per entrepreneur and per status
		`CREATE INDEX IF NOT EXISTS idx_earnings_entrepreneur_status
		 ON earnings(entrepreneur_id, status)`,

		// Withdrawal processor scans pending requests oldest-first
		`CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_status
		 ON withdrawal_requests(status, created_at)`,

		// Transactions by order for reconciliation lookups
		`CREATE INDEX IF NOT EXISTS idx_transactions_order
		 ON transactions(order_ref)`,
	}

	// Execute each index creation
	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
