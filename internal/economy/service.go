package economy

import (
	"database/sql"
	"log/slog"
)

// Service runs the chore, redemption and goal workflows. Every mutating
// command executes as a single transaction: status compare-and-set, role
// check and ledger adjustment commit or fail together.
type Service struct {
	db     *sql.DB
	ledger Ledger
	logger *slog.Logger
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Ledger exposes the service's ledger for callers that need standalone
// balance adjustments (seeding, manual corrections).
func (s *Service) Ledger() Ledger {
	return s.ledger
}
