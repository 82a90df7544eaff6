package ledger

import (
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "recorded_sales"

// IdempotencyStore remembers which payment references have already been
// recorded, so a replayed gateway callback cannot double-count a sale. Keys
// live in a single local bolt file; the check-and-mark is atomic inside one
// bolt update transaction.
type IdempotencyStore struct {
	db *bolt.DB
}

func OpenIdempotencyStore(path string) (*IdempotencyStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &IdempotencyStore{db: db}, nil
}

func (s *IdempotencyStore) Close() error {
	return s.db.Close()
}

// FirstSeen marks ref as recorded and reports whether this call was the
// first to do so. A retry with the same ref gets false and must skip its
// side effects. A caller whose side effects then fail must Forget the ref,
// or the retry would skip a sale that was never written.
func (s *IdempotencyStore) FirstSeen(ref string) (bool, error) {
	first := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b.Get([]byte(ref)) != nil {
			return nil
		}
		first = true
		return b.Put([]byte(ref), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return false, err
	}
	return first, nil
}

// Forget releases a ref so a later FirstSeen succeeds again. Used to undo a
// mark whose side effects did not commit.
func (s *IdempotencyStore) Forget(ref string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(ref))
	})
}
