package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/irctc-booking-supporter/internal/model"
)

// RedisConfigStore keeps every saved configuration as one field of the
// ConfigsKey hash, keyed by label, with the JSON document as value.
type RedisConfigStore struct {
	RDB *redis.Client
	Now func() time.Time
}

var _ ConfigStore = (*RedisConfigStore)(nil)

func NewRedisConfigStore(rdb *redis.Client) *RedisConfigStore {
	return &RedisConfigStore{RDB: rdb, Now: time.Now}
}

// Save validates req and writes it under label, replacing any entry there.
func (s *RedisConfigStore) Save(ctx context.Context, label string, req model.BookingRequest) (model.SavedConfiguration, error) {
	saved, err := prepare(label, req, s.Now())
	if err != nil {
		return model.SavedConfiguration{}, err
	}
	raw, err := json.Marshal(saved)
	if err != nil {
		return model.SavedConfiguration{}, err
	}
	if err := s.RDB.HSet(ctx, ConfigsKey, saved.Label, raw).Err(); err != nil {
		return model.SavedConfiguration{}, fmt.Errorf("save %q: %w", saved.Label, err)
	}
	return saved, nil
}

func (s *RedisConfigStore) Load(ctx context.Context, label string) (model.SavedConfiguration, error) {
	label = cleanLabel(label)
	raw, err := s.RDB.HGet(ctx, ConfigsKey, label).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.SavedConfiguration{}, ErrNotFound
	}
	if err != nil {
		return model.SavedConfiguration{}, err
	}
	var c model.SavedConfiguration
	if err := json.Unmarshal(raw, &c); err != nil {
		return model.SavedConfiguration{}, fmt.Errorf("decode %q: %w", label, err)
	}
	c.Label = label
	return c, nil
}

func (s *RedisConfigStore) List(ctx context.Context) ([]ConfigSummary, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(all), nil
}

func (s *RedisConfigStore) Delete(ctx context.Context, label string) error {
	label = cleanLabel(label)
	n, err := s.RDB.HDel(ctx, ConfigsKey, label).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisConfigStore) Latest(ctx context.Context) (model.SavedConfiguration, error) {
	all, err := s.all(ctx)
	if err != nil {
		return model.SavedConfiguration{}, err
	}
	return latest(all)
}

// Migrate copies the legacy record into the hash under the legacy label,
// unless that label is already taken, and removes the legacy key.
func (s *RedisConfigStore) Migrate(ctx context.Context) error {
	raw, err := s.RDB.Get(ctx, LegacyKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	var c model.SavedConfiguration
	if err := json.Unmarshal(raw, &c); err != nil {
		return fmt.Errorf("decode legacy configuration: %w", err)
	}
	out, err := json.Marshal(legacyRecord(c, s.Now()))
	if err != nil {
		return err
	}
	_, err = s.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSetNX(ctx, ConfigsKey, model.LegacyLabel, out)
		p.Del(ctx, LegacyKey)
		return nil
	})
	return err
}

// all skips entries that no longer decode.
func (s *RedisConfigStore) all(ctx context.Context) ([]model.SavedConfiguration, error) {
	fields, err := s.RDB.HGetAll(ctx, ConfigsKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.SavedConfiguration, 0, len(fields))
	for label, raw := range fields {
		var c model.SavedConfiguration
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			continue
		}
		c.Label = label
		out = append(out, c)
	}
	return out, nil
}
