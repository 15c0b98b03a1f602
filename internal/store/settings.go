package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

const settingUpsert = `INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting setting: %w", err)
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(settingUpsert, key, value)
	if err != nil {
		return fmt.Errorf("setting %q: %w", key, err)
	}
	return nil
}

// PlaybackPreferences are the user-tunable negotiation knobs.
type PlaybackPreferences struct {
	// DirectPlayAss keeps ASS/SSA subtitles embedded instead of forcing a
	// transcode to burn them in.
	DirectPlayAss bool `json:"directPlayAss"`
	// MaxStreamingBitrate caps negotiated bitrate in bits per second;
	// zero means no cap.
	MaxStreamingBitrate int `json:"maxStreamingBitrate"`
}

func (s *Store) GetPlaybackPreferences() (PlaybackPreferences, error) {
	var prefs PlaybackPreferences

	ass, err := s.GetSetting("playback.direct_play_ass")
	if err != nil {
		return prefs, err
	}
	prefs.DirectPlayAss = ass == "true"

	bitrate, err := s.GetSetting("playback.max_streaming_bitrate")
	if err != nil {
		return prefs, err
	}
	if bitrate != "" {
		if parsed, err := strconv.Atoi(bitrate); err == nil && parsed > 0 {
			prefs.MaxStreamingBitrate = parsed
		}
	}
	return prefs, nil
}

func (s *Store) SetPlaybackPreferences(prefs PlaybackPreferences) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, kv := range []struct{ k, v string }{
		{"playback.direct_play_ass", strconv.FormatBool(prefs.DirectPlayAss)},
		{"playback.max_streaming_bitrate", strconv.Itoa(prefs.MaxStreamingBitrate)},
	} {
		if _, err := tx.Exec(settingUpsert, kv.k, kv.v); err != nil {
			return fmt.Errorf("setting %q: %w", kv.k, err)
		}
	}
	return tx.Commit()
}
