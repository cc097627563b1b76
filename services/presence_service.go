//go:generate go run go.uber.org/mock/mockgen -source=presence_service.go -destination=../mocks/mock_presence_service.go -package=mocks
package services

import (
	"log/slog"
	"sync"

	"chat-relay/domain"
	"chat-relay/repositories"
)

type IPresenceService interface {
	SessionOpened(userID string) error
	SessionClosed(userID string) error
	IsOnline(userID string) bool
	Get(userID string) (domain.PresenceRecord, error)
}

// PresenceService counts live sessions per user. A user with three tabs
// open stays online until the last one disconnects; only the first open
// and the last close touch the durable record.
type PresenceService struct {
	log  *slog.Logger
	repo repositories.IPresenceRepository

	mu       sync.Mutex
	sessions map[string]int
}

func NewPresenceService(log *slog.Logger, repo repositories.IPresenceRepository) *PresenceService {
	return &PresenceService{
		log:      log,
		repo:     repo,
		sessions: make(map[string]int),
	}
}

func (s *PresenceService) SessionOpened(userID string) error {
	s.mu.Lock()
	s.sessions[userID]++
	first := s.sessions[userID] == 1
	s.mu.Unlock()

	if !first {
		return nil
	}
	return s.repo.Set(domain.PresenceRecord{
		UserID:   userID,
		Online:   true,
		LastSeen: timeNow(),
	})
}

// SessionClosed decrements the session count. Closing a session that was
// never counted is a no-op, so a double disconnect cannot drive the
// counter negative or flap the online flag.
func (s *PresenceService) SessionClosed(userID string) error {
	s.mu.Lock()
	count, ok := s.sessions[userID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	count--
	if count > 0 {
		s.sessions[userID] = count
		s.mu.Unlock()
		return nil
	}
	delete(s.sessions, userID)
	s.mu.Unlock()

	return s.repo.Set(domain.PresenceRecord{
		UserID:   userID,
		Online:   false,
		LastSeen: timeNow(),
	})
}

func (s *PresenceService) IsOnline(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID] > 0
}

// Get returns the durable record; a user never seen before is reported
// offline with a zero last-seen timestamp.
func (s *PresenceService) Get(userID string) (domain.PresenceRecord, error) {
	record, found, err := s.repo.Get(userID)
	if err != nil {
		return domain.PresenceRecord{}, err
	}
	if !found {
		return domain.PresenceRecord{UserID: userID, Online: false}, nil
	}
	return record, nil
}
