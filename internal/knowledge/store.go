package knowledge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/biomed-agent/backend/pkg/logger"
)

// ErrNotFound means no equipment document exists for the requested id.
var ErrNotFound = errors.New("equipment document not found")

// Store loads equipment definitions from a directory of YAML documents,
// one per equipment id, and caches the parsed model process-wide. The
// store is owned by the composition root and injected into the pipeline;
// there is no package-level singleton.
//
// Construction is idempotent and side-effect-free, so two sessions racing
// to populate the same id both end up observing a complete, valid model.
type Store struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*EquipmentKnowledge
}

func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		cache: make(map[string]*EquipmentKnowledge),
	}
}

// Load returns the knowledge model for an equipment id, populating the
// cache on first access. Returns ErrNotFound when no document exists and
// *MalformedError when the document fails validation.
func (s *Store) Load(equipmentID string) (*EquipmentKnowledge, error) {
	if equipmentID == "" || !signalIDPattern.MatchString(equipmentID) {
		return nil, fmt.Errorf("%w: invalid equipment id %q", ErrNotFound, equipmentID)
	}

	s.mu.RLock()
	cached, ok := s.cache[equipmentID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, equipmentID+".yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, equipmentID)
		}
		return nil, fmt.Errorf("failed to read equipment document: %w", err)
	}

	k, err := Parse(equipmentID, data)
	if err != nil {
		return nil, err
	}

	for _, warning := range k.Warnings {
		logger.Warn("Equipment document warning",
			zap.String("equipment_id", equipmentID),
			zap.String("warning", warning),
		)
	}

	s.mu.Lock()
	// A concurrent first access may have stored the model already; both
	// copies were parsed from the same bytes, so either is valid.
	if existing, ok := s.cache[equipmentID]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.cache[equipmentID] = k
	s.mu.Unlock()

	logger.Info("Equipment knowledge loaded",
		zap.String("equipment_id", equipmentID),
		zap.Int("signals", len(k.Signals)),
		zap.Int("faults", len(k.Faults)),
	)

	return k, nil
}

// Invalidate drops the cached model for one equipment id. The next Load
// re-reads the document from disk.
func (s *Store) Invalidate(equipmentID string) {
	s.mu.Lock()
	delete(s.cache, equipmentID)
	s.mu.Unlock()

	logger.Info("Equipment knowledge invalidated", zap.String("equipment_id", equipmentID))
}

// InvalidateAll clears the whole cache.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	s.cache = make(map[string]*EquipmentKnowledge)
	s.mu.Unlock()
}
