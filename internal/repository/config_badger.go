package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/iliyamo/irctc-booking-supporter/internal/model"
)

// BadgerConfigStore keeps saved configurations in an embedded badger
// database, one key per label under the ConfigsKey prefix.  It serves
// installations without a Redis server.
type BadgerConfigStore struct {
	DB  *badger.DB
	Now func() time.Time
}

var _ ConfigStore = (*BadgerConfigStore)(nil)

// OpenBadger opens (or creates) the store directory.  An empty dir keeps
// the data in memory.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	return badger.Open(opts)
}

func NewBadgerConfigStore(db *badger.DB) *BadgerConfigStore {
	return &BadgerConfigStore{DB: db, Now: time.Now}
}

func configKey(label string) []byte {
	return []byte(ConfigsKey + ":" + label)
}

func (s *BadgerConfigStore) Save(ctx context.Context, label string, req model.BookingRequest) (model.SavedConfiguration, error) {
	if err := ctx.Err(); err != nil {
		return model.SavedConfiguration{}, err
	}
	saved, err := prepare(label, req, s.Now())
	if err != nil {
		return model.SavedConfiguration{}, err
	}
	raw, err := json.Marshal(saved)
	if err != nil {
		return model.SavedConfiguration{}, err
	}
	err = s.DB.Update(func(txn *badger.Txn) error {
		return txn.Set(configKey(saved.Label), raw)
	})
	if err != nil {
		return model.SavedConfiguration{}, fmt.Errorf("save %q: %w", saved.Label, err)
	}
	return saved, nil
}

func (s *BadgerConfigStore) Load(ctx context.Context, label string) (model.SavedConfiguration, error) {
	label = cleanLabel(label)
	if err := ctx.Err(); err != nil {
		return model.SavedConfiguration{}, err
	}
	var c model.SavedConfiguration
	err := s.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(configKey(label))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.SavedConfiguration{}, ErrNotFound
	}
	if err != nil {
		return model.SavedConfiguration{}, err
	}
	c.Label = label
	return c, nil
}

func (s *BadgerConfigStore) List(ctx context.Context) ([]ConfigSummary, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(all), nil
}

func (s *BadgerConfigStore) Delete(ctx context.Context, label string) error {
	label = cleanLabel(label)
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.DB.Update(func(txn *badger.Txn) error {
		key := configKey(label)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
}

func (s *BadgerConfigStore) Latest(ctx context.Context) (model.SavedConfiguration, error) {
	all, err := s.all(ctx)
	if err != nil {
		return model.SavedConfiguration{}, err
	}
	return latest(all)
}

// Migrate moves a legacy record, if any, under the legacy label.  An entry
// already saved under that label wins.
func (s *BadgerConfigStore) Migrate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.DB.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(LegacyKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var c model.SavedConfiguration
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &c) }); err != nil {
			return fmt.Errorf("decode legacy configuration: %w", err)
		}
		target := configKey(model.LegacyLabel)
		if _, err := txn.Get(target); errors.Is(err, badger.ErrKeyNotFound) {
			raw, err := json.Marshal(legacyRecord(c, s.Now()))
			if err != nil {
				return err
			}
			if err := txn.Set(target, raw); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		return txn.Delete([]byte(LegacyKey))
	})
}

func (s *BadgerConfigStore) all(ctx context.Context) ([]model.SavedConfiguration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(ConfigsKey + ":")
	var out []model.SavedConfiguration
	err := s.DB.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			label := string(item.Key()[len(prefix):])
			var c model.SavedConfiguration
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &c) }); err != nil {
				continue
			}
			c.Label = label
			out = append(out, c)
		}
		return nil
	})
	return out, err
}
