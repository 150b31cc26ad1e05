// Package storage persists the equity time series behind the performance
// chart. It uses BoltDB so the dashboard survives restarts without any
// server-side database; everything else the dashboard shows is re-fetched
// each cycle and deliberately not persisted.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const equityBucket = "equity_history"

// EquityPoint is one recorded equity observation.
type EquityPoint struct {
	Ts         int64   `json:"ts"` // unix milliseconds
	Equity     float64 `json:"equity"`
	QuoteAsset string  `json:"quoteAsset"`
	Incomplete bool    `json:"incomplete,omitempty"`
}

// History is an append-only equity time series keyed by timestamp.
type History struct {
	db *bbolt.DB
}

// New opens (or creates) the history database under dataPath.
func New(dataPath string) (*History, error) {
	dbPath := filepath.Join(dataPath, "mxdash-history.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(equityBucket)); err != nil {
			return fmt.Errorf("create equity bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &History{db: db}, nil
}

// Append stores one equity point. Points share a millisecond key only when
// two refreshes land in the same millisecond, in which case the later one
// wins; that is fine for a chart.
func (h *History) Append(p EquityPoint) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal equity point: %w", err)
	}

	return h.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(equityBucket)).Put(tsKey(p.Ts), data)
	})
}

// Range returns all points with from <= ts <= to, in ascending order.
func (h *History) Range(from, to int64) ([]EquityPoint, error) {
	var points []EquityPoint

	err := h.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(equityBucket)).Cursor()
		min, max := tsKey(from), tsKey(to)

		for k, v := c.Seek(min); k != nil && string(k) <= string(max); k, v = c.Next() {
			var p EquityPoint
			if err := json.Unmarshal(v, &p); err != nil {
				continue // one corrupt point must not hide the rest
			}
			points = append(points, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

// Recent returns the points observed within the trailing window.
func (h *History) Recent(window time.Duration, now time.Time) ([]EquityPoint, error) {
	return h.Range(now.Add(-window).UnixMilli(), now.UnixMilli())
}

func (h *History) Close() error {
	return h.db.Close()
}

// tsKey encodes a timestamp big-endian so byte order equals time order.
func tsKey(ts int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(ts))
	return key
}
