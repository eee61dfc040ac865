package store

import (
	"fmt"

	"github.com/hireview/hireview/internal/model"
)

// ExportAllSessions builds export-ready session views for every session,
// newest first.
func (s *Store) ExportAllSessions() ([]model.SessionView, error) {
	sessions, err := s.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var views []model.SessionView
	for _, sess := range sessions {
		view, err := s.GetSessionView(sess.ID)
		if err != nil {
			return nil, fmt.Errorf("get session %s: %w", sess.ID, err)
		}
		views = append(views, *view)
	}
	return views, nil
}
