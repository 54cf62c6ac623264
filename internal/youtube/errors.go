// SPDX-License-Identifier: MIT

package youtube

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSource is returned when neither a playlist nor a channel id is configured.
	ErrMissingSource = errors.New("you must configure YOUTUBE_PLAYLIST_ID or YOUTUBE_CHANNEL_ID")
	// ErrUpstream classifies failed YouTube Data API calls; match with errors.Is.
	ErrUpstream = errors.New("youtube api request failed")
)

// Stages of a fetch, reported in StageError.Stage.
const (
	StagePlaylistItems = "playlistItems"
	StageSearch        = "search"
	StageVideos        = "videos"
)

// StageError describes a failed YouTube Data API call.
type StageError struct {
	Stage  string
	Status int   // HTTP status; 0 when no response was received
	Err    error // underlying googleapi or transport error
}

func (e *StageError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("YouTube API request failed (%s) with status %d: %v", e.Stage, e.Status, e.Err)
	}
	return fmt.Sprintf("YouTube API request failed (%s): %v", e.Stage, e.Err)
}

func (e *StageError) Is(target error) bool {
	return target == ErrUpstream
}

func (e *StageError) Unwrap() error {
	return e.Err
}
