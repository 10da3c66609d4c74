package service

import (
	"context"
	"fmt"
	"io"
	"time"
)

// recentLimit is how many rows CheckConnection reads back.
const recentLimit = 5

// CheckConnection inserts one ping and reads recent pings back, printing progress to w.
// It is a manual smoke test for credentials and table setup; the scheduler never calls it.
func (s *Service) CheckConnection(ctx context.Context, w io.Writer) bool {
	fmt.Fprintln(w, "testing database connection...")

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.repo.Insert(callCtx, s.clock().UTC())
	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
		return false
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "test ping failed: no rows returned")
		return false
	}
	fmt.Fprintln(w, "test ping successful")
	fmt.Fprintf(w, "inserted record: ping_time=%s created_at=%s\n",
		rows[0].PingTime.UTC().Format(time.RFC3339Nano), rows[0].CreatedAt.UTC().Format(time.RFC3339Nano))

	listCtx, cancelList := s.withTimeout(ctx)
	defer cancelList()
	recent, err := s.repo.ListRecent(listCtx, recentLimit)
	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
		return false
	}
	fmt.Fprintf(w, "recent pings count: %d\n", len(recent))
	return true
}
