package ledger

import (
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// brokenDB returns a gorm handle whose every transaction fails at Begin:
// the lazy sql connection points at a closed port.
func brokenDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := sql.Open("mysql", "nobody:nothing@tcp(127.0.0.1:1)/none?timeout=1s")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      conn,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:               logger.Discard,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("gorm.Open failed: %v", err)
	}
	return gdb
}

func TestRecordSaleRetriableAfterWriteFailure(t *testing.T) {
	seen := newTestStore(t)
	l := New(brokenDB(t), seen)
	amount := decimal.NewFromInt(1180)

	if err := l.RecordSale("course", amount, "pay_1"); err == nil {
		t.Fatal("expected an error when the aggregate write fails")
	}

	// The ref must not stay burned: a replay of the same completion has to
	// reach the database again, not silently skip the sale.
	if err := l.RecordSale("course", amount, "pay_1"); err == nil {
		t.Fatal("replay after a failed write should retry the write, not no-op")
	}

	first, err := seen.FirstSeen("pay_1")
	if err != nil {
		t.Fatalf("FirstSeen failed: %v", err)
	}
	if !first {
		t.Error("a failed write must leave the ref unclaimed")
	}
}
