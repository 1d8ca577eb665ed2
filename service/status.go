package service

import (
	"time"

	"github.com/flowscan/indexer/cache"
	"github.com/flowscan/indexer/db"
)

const statusCacheTTL = 5 * time.Second

// IndexingStatus summarizes how far the indexer has progressed and what it
// is struggling with.
type IndexingStatus struct {
	MinIndexedHeight uint64              `json:"min_indexed_height"`
	MaxIndexedHeight uint64              `json:"max_indexed_height"`
	Checkpoint       *db.Checkpoint      `json:"checkpoint,omitempty"`
	ActiveLeases     []*db.WorkerLease   `json:"active_leases"`
	RecentErrors     []*db.IndexingError `json:"recent_errors"`
}

type cachedStatus struct {
	status    *IndexingStatus
	fetchedAt time.Time
}

// StatusService serves read queries over indexed state. Status snapshots
// are cached briefly since every dashboard poll hits the same aggregate
// queries.
type StatusService struct {
	dao         db.IndexerDao
	cache       cache.Cache
	serviceName string
}

func NewStatusService(dao db.IndexerDao, localCache cache.Cache, serviceName string) *StatusService {
	return &StatusService{
		dao:         dao,
		cache:       localCache,
		serviceName: serviceName,
	}
}

func (s *StatusService) GetStatus() (*IndexingStatus, error) {
	if cached, ok := s.cache.Get(cache.KeyPrefixStatus); ok {
		entry := cached.(*cachedStatus)
		if time.Since(entry.fetchedAt) < statusCacheTTL {
			return entry.status, nil
		}
	}

	minHeight, err := s.dao.GetMinIndexedHeight()
	if err != nil {
		return nil, err
	}
	maxHeight, err := s.dao.GetMaxIndexedHeight()
	if err != nil {
		return nil, err
	}
	checkpoint, err := s.dao.GetCheckpoint(s.serviceName)
	if err != nil {
		return nil, err
	}
	leases, err := s.dao.ListActiveLeases()
	if err != nil {
		return nil, err
	}
	recentErrors, err := s.dao.RecentErrors(20)
	if err != nil {
		return nil, err
	}

	status := &IndexingStatus{
		MinIndexedHeight: minHeight,
		MaxIndexedHeight: maxHeight,
		Checkpoint:       checkpoint,
		ActiveLeases:     leases,
		RecentErrors:     recentErrors,
	}
	s.cache.Set(cache.KeyPrefixStatus, &cachedStatus{status: status, fetchedAt: time.Now()})
	return status, nil
}

func (s *StatusService) GetBlock(height uint64) (*db.Block, error) {
	return s.dao.GetBlock(height)
}

func (s *StatusService) GetTransactionsByHeight(height uint64) ([]*db.Transaction, error) {
	return s.dao.GetTransactionsByHeight(height)
}

func (s *StatusService) GetTransaction(txID string) (*db.Transaction, error) {
	return s.dao.GetTransactionByID(txID)
}

func (s *StatusService) GetEventsByHeight(height uint64) ([]*db.Event, error) {
	return s.dao.GetEventsByHeight(height)
}

func (s *StatusService) GetActivitiesByAddress(address string, limit int) ([]*db.AddressActivity, error) {
	return s.dao.GetActivitiesByAddress(address, limit)
}

// GetScript resolves a script body by hash, caching it since script bodies
// never change once written.
func (s *StatusService) GetScript(hash string) (*db.Script, error) {
	key := cache.KeyPrefixScript + hash
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*db.Script), nil
	}
	script, err := s.dao.GetScript(hash)
	if err != nil {
		return nil, err
	}
	if script.Hash != "" {
		s.cache.Set(key, script)
	}
	return script, nil
}
