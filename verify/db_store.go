package verify

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sellpage/web/db"
)

// DBStore keeps challenges in the challenges table so they survive restarts
// and are shared across instances.
type DBStore struct {
	db *gorm.DB
}

func NewDBStore(gdb *gorm.DB) *DBStore {
	return &DBStore{db: gdb}
}

func (s *DBStore) Put(ch Challenge) error {
	row := db.Challenge{
		Target:    ch.Target,
		Code:      ch.Code,
		IssuedAt:  ch.IssuedAt,
		ExpiresAt: ch.ExpiresAt,
		Attempts:  ch.Attempts,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "target"}},
		UpdateAll: true,
	}).Create(&row).Error
}

func (s *DBStore) Get(target string) (Challenge, bool, error) {
	var row db.Challenge
	err := s.db.First(&row, "target = ?", target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Challenge{}, false, nil
	}
	if err != nil {
		return Challenge{}, false, err
	}
	return Challenge{
		Target:    row.Target,
		Code:      row.Code,
		IssuedAt:  row.IssuedAt,
		ExpiresAt: row.ExpiresAt,
		Attempts:  row.Attempts,
	}, true, nil
}

func (s *DBStore) Delete(target string) error {
	return s.db.Delete(&db.Challenge{}, "target = ?", target).Error
}

func (s *DBStore) DeleteMatching(target, code string) (bool, error) {
	res := s.db.Delete(&db.Challenge{}, "target = ? AND code = ?", target, code)
	return res.RowsAffected > 0, res.Error
}

func (s *DBStore) BumpAttempts(target string) (int, error) {
	var attempts int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var row db.Challenge
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&row, "target = ?", target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		row.Attempts++
		attempts = row.Attempts
		return tx.Model(&db.Challenge{}).Where("target = ?", target).
			Update("attempts", row.Attempts).Error
	})
	return attempts, err
}

// Purge removes expired challenges; run periodically from the service main.
func (s *DBStore) Purge() error {
	return s.db.Where("expires_at < NOW()").Delete(&db.Challenge{}).Error
}
