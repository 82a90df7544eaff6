// Package ledger maintains the per-page sale aggregates: count and revenue,
// monotonically non-decreasing, incremented at most once per completed
// checkout.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sellpage/web/db"
)

type Ledger struct {
	db   *gorm.DB
	seen *IdempotencyStore
}

func New(gdb *gorm.DB, seen *IdempotencyStore) *Ledger {
	return &Ledger{db: gdb, seen: seen}
}

// RecordSale increments the page's sale count and revenue. ref identifies
// the completed checkout (payment id, or session id for free claims); a ref
// that was already recorded makes the call a no-op, so gateway callback
// replays are harmless. The row is locked for the read-modify-write so
// concurrent completions on the same page do not lose updates. If the
// aggregate update fails the ref is released again, so a replay of the same
// completion retries the write instead of skipping it.
func (l *Ledger) RecordSale(slug string, amount decimal.Decimal, ref string) error {
	first, err := l.seen.FirstSeen(ref)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if !first {
		return nil
	}

	err = l.db.Transaction(func(tx *gorm.DB) error {
		var pg db.Page
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&pg, "slug = ?", slug).Error; err != nil {
			return fmt.Errorf("page not found: %w", err)
		}

		pg.SaleCount++
		pg.Revenue = pg.Revenue.Add(amount)

		return tx.Model(&pg).Updates(map[string]any{
			"sale_count": pg.SaleCount,
			"revenue":    pg.Revenue,
		}).Error
	})
	if err != nil {
		if ferr := l.seen.Forget(ref); ferr != nil {
			return fmt.Errorf("record sale: %w (ref not released: %v)", err, ferr)
		}
		return err
	}
	return nil
}
