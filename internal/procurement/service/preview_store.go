package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rasyendriar/machine-dashboard-app/internal/procurement/importer"
)

// Preview a parsed and normalized upload waiting for confirmation
type Preview struct {
	Token            string                        `json:"token"`
	Kind             ImportKind                    `json:"kind"`
	Filename         string                        `json:"filename"`
	SpareParts       []importer.SparePartRow       `json:"spare_parts,omitempty"`
	MachinePurchases []importer.MachinePurchaseRow `json:"machine_purchases,omitempty"`
	Dropped          []importer.DroppedRow         `json:"dropped"`
	CreatedBy        string                        `json:"created_by"`
	ExpiresAt        time.Time                     `json:"expires_at"`
}

// PreviewStore parks previews until they are committed or discarded. Load,
// Take and Delete return ErrPreviewExpired for unknown tokens. Take removes
// the preview in the same step that reads it, so one token commits once.
type PreviewStore interface {
	Save(ctx context.Context, p *Preview, ttl time.Duration) error
	Load(ctx context.Context, token string) (*Preview, error)
	Take(ctx context.Context, token string) (*Preview, error)
	Delete(ctx context.Context, token string) error
}

const previewKeyPrefix = "import:preview:"

// RedisPreviewStore shares previews between instances.
type RedisPreviewStore struct {
	rdb *redis.Client
}

func NewRedisPreviewStore(rdb *redis.Client) *RedisPreviewStore {
	return &RedisPreviewStore{rdb: rdb}
}

func (s *RedisPreviewStore) Save(ctx context.Context, p *Preview, ttl time.Duration) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	if err := s.rdb.Set(ctx, previewKeyPrefix+p.Token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store preview: %w", err)
	}
	return nil
}

func (s *RedisPreviewStore) Load(ctx context.Context, token string) (*Preview, error) {
	return decodePreview(s.rdb.Get(ctx, previewKeyPrefix+token).Bytes())
}

func (s *RedisPreviewStore) Take(ctx context.Context, token string) (*Preview, error) {
	return decodePreview(s.rdb.GetDel(ctx, previewKeyPrefix+token).Bytes())
}

func decodePreview(payload []byte, err error) (*Preview, error) {
	if errors.Is(err, redis.Nil) {
		return nil, ErrPreviewExpired
	}
	if err != nil {
		return nil, fmt.Errorf("load preview: %w", err)
	}
	var p Preview
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode preview: %w", err)
	}
	return &p, nil
}

func (s *RedisPreviewStore) Delete(ctx context.Context, token string) error {
	n, err := s.rdb.Del(ctx, previewKeyPrefix+token).Result()
	if err != nil {
		return fmt.Errorf("delete preview: %w", err)
	}
	if n == 0 {
		return ErrPreviewExpired
	}
	return nil
}

// MemoryPreviewStore keeps previews in process, for single-instance setups
// without Redis.
type MemoryPreviewStore struct {
	mu       sync.Mutex
	previews map[string]memoryPreview
	now      func() time.Time
}

type memoryPreview struct {
	preview Preview
	expires time.Time
}

func NewMemoryPreviewStore() *MemoryPreviewStore {
	return &MemoryPreviewStore{previews: make(map[string]memoryPreview), now: time.Now}
}

func (s *MemoryPreviewStore) Save(_ context.Context, p *Preview, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for token, mp := range s.previews {
		if now.After(mp.expires) {
			delete(s.previews, token)
		}
	}
	s.previews[p.Token] = memoryPreview{preview: *p, expires: now.Add(ttl)}
	return nil
}

func (s *MemoryPreviewStore) Load(_ context.Context, token string) (*Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mp, ok := s.previews[token]
	if !ok || s.now().After(mp.expires) {
		delete(s.previews, token)
		return nil, ErrPreviewExpired
	}
	p := mp.preview
	return &p, nil
}

func (s *MemoryPreviewStore) Take(_ context.Context, token string) (*Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mp, ok := s.previews[token]
	delete(s.previews, token)
	if !ok || s.now().After(mp.expires) {
		return nil, ErrPreviewExpired
	}
	p := mp.preview
	return &p, nil
}

func (s *MemoryPreviewStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.previews[token]; !ok {
		return ErrPreviewExpired
	}
	delete(s.previews, token)
	return nil
}
