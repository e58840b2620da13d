package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorecovery/logger"
	"gorecovery/types"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	StatusCredited = "credited"
	StatusFailed   = "failed"
)

var statusSets = map[string]string{
	StatusCredited: "credits:credited", // validated and claimed in the ledger
	StatusFailed:   "credits:failed",   // rejected on validation, kept for audit
}

// Store keeps the idempotency ledger and credit records.
type Store struct {
	pool *redis.Pool
}

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

func New(host string, port int) *Store {
	addr := fmt.Sprintf("%s:%d", host, port)
	return &Store{pool: &redis.Pool{
		MaxIdle:     5,
		IdleTimeout: 4 * time.Minute,
		Dial:        func() (redis.Conn, error) { return redis.Dial("tcp", addr, timeoutDialOptions()...) },
	}}
}

func (s *Store) Close() error {
	return s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Do("PING")
	return err
}

func ledgerKey(source, txHash string) string {
	return fmt.Sprintf("ledger:%s:%s", source, strings.ToLower(txHash))
}

func (s *Store) IsProcessed(ctx context.Context, source, txHash string) (bool, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	exists, err := redis.Bool(conn.Do("EXISTS", ledgerKey(source, txHash)))
	if err != nil {
		logger.Error("error Redis EXISTS", zap.Error(err))
		return false, err
	}
	return exists, nil
}

// Claim marks txHash as processed. Only the first caller gets true.
func (s *Store) Claim(ctx context.Context, source, txHash string) (bool, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	_, err = redis.String(conn.Do("SET", ledgerKey(source, txHash), time.Now().Unix(), "NX"))
	if errors.Is(err, redis.ErrNil) {
		return false, nil
	}
	if err != nil {
		logger.Error("error Redis SET NX", zap.Error(err))
		return false, err
	}
	return true, nil
}

func recordKey(status, id string) string {
	return fmt.Sprintf("credit:%s:%s", status, id)
}

// note that a record must only ever be in one status set
func (s *Store) UpsertCredit(ctx context.Context, rec *types.CreditRecord) error {
	if rec == nil {
		return errors.New("null object to store")
	}
	set, ok := statusSets[rec.Status]
	if !ok {
		return fmt.Errorf("unknown credit status %q", rec.Status)
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cannot marshal credit record to JSON: %w", err)
	}

	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	key := recordKey(rec.Status, rec.ID)
	conn.Send("MULTI")
	conn.Send("SET", key, recJSON)
	conn.Send("SADD", set, key)
	if _, err := conn.Do("EXEC"); err != nil {
		logger.Error("error Redis EXEC", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (s *Store) ChangeCreditStatus(ctx context.Context, rec *types.CreditRecord, prevStatus string) error {
	if rec == nil || rec.ID == "" {
		return errors.New("credit record without id")
	}
	prevSet, ok := statusSets[prevStatus]
	if !ok {
		return fmt.Errorf("unknown credit status %q", prevStatus)
	}
	set, ok := statusSets[rec.Status]
	if !ok {
		return fmt.Errorf("unknown credit status %q", rec.Status)
	}

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cannot marshal credit record to JSON: %w", err)
	}

	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	prevKey, key := recordKey(prevStatus, rec.ID), recordKey(rec.Status, rec.ID)
	conn.Send("MULTI")
	conn.Send("SREM", prevSet, prevKey)
	conn.Send("DEL", prevKey)
	conn.Send("SET", key, recJSON)
	conn.Send("SADD", set, key)
	if _, err := conn.Do("EXEC"); err != nil {
		logger.Error("error Redis EXEC", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Attention, this scans every record in the status set
func (s *Store) FindCreditByTxHash(ctx context.Context, txHash string) (*types.CreditRecord, error) {
	for status := range statusSets {
		recs, err := s.scan(ctx, status, func(rec *types.CreditRecord) bool {
			return strings.EqualFold(rec.TxHash, txHash)
		})
		if err != nil {
			return nil, err
		}
		if len(recs) > 0 {
			return recs[0], nil
		}
	}
	return nil, nil
}

func (s *Store) ListCredits(ctx context.Context, status string) ([]*types.CreditRecord, error) {
	if _, ok := statusSets[status]; !ok {
		return nil, fmt.Errorf("unknown credit status %q", status)
	}
	return s.scan(ctx, status, func(*types.CreditRecord) bool { return true })
}

func (s *Store) scan(ctx context.Context, status string, match func(*types.CreditRecord) bool) ([]*types.CreditRecord, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	recs := make([]*types.CreditRecord, 0)
	var cursor int64
	for {
		values, err := redis.Values(conn.Do("SSCAN", statusSets[status], cursor))
		if err != nil {
			return nil, err
		}
		var keys []string
		if _, err := redis.Scan(values, &cursor, &keys); err != nil {
			return nil, err
		}

		for _, key := range keys {
			raw, err := redis.Bytes(conn.Do("GET", key))
			if errors.Is(err, redis.ErrNil) {
				continue
			}
			if err != nil {
				logger.Error("error Redis GET", zap.String("key", key), zap.Error(err))
				return nil, err
			}
			var rec types.CreditRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return nil, err
			}
			if rec.Status == status && match(&rec) {
				recs = append(recs, &rec)
			}
		}

		if cursor == 0 {
			break
		}
	}
	return recs, nil
}
