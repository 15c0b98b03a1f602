package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// SavePlaybackPosition records the resume position for an item in ticks.
// A position at or below zero clears the stored entry instead.
func (s *Store) SavePlaybackPosition(itemID string, positionTicks int64) error {
	if positionTicks <= 0 {
		return s.DeletePlaybackPosition(itemID)
	}
	_, err := s.db.Exec(`INSERT INTO playback_positions (item_id, position_ticks, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(item_id) DO UPDATE SET position_ticks = excluded.position_ticks, updated_at = CURRENT_TIMESTAMP`,
		itemID, positionTicks)
	if err != nil {
		return fmt.Errorf("saving playback position: %w", err)
	}
	return nil
}

// PlaybackPosition returns the stored resume position for an item in ticks,
// with ok false when no position is stored.
func (s *Store) PlaybackPosition(itemID string) (ticks int64, ok bool, err error) {
	err = s.db.QueryRow(`SELECT position_ticks FROM playback_positions WHERE item_id = ?`, itemID).Scan(&ticks)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("getting playback position: %w", err)
	}
	return ticks, true, nil
}

func (s *Store) DeletePlaybackPosition(itemID string) error {
	_, err := s.db.Exec(`DELETE FROM playback_positions WHERE item_id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("deleting playback position: %w", err)
	}
	return nil
}
