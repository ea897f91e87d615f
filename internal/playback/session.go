package playback

import "time"

// Session describes the track being played. It exists from Play until Stop.
type Session struct {
	Path        string
	Playing     bool
	Paused      bool
	StartOffset time.Duration // track offset the transport was last started at
	Length      time.Duration // 0 when unknown

	frozen time.Duration // position captured by Pause
}

// position maps a raw transport reading onto the track. Negative readings
// count as zero and the result never exceeds a known length.
func (s *Session) position(rawMillis int64) time.Duration {
	if s.Paused {
		return s.frozen
	}
	pos := s.StartOffset + time.Duration(max(rawMillis, 0))*time.Millisecond
	if s.Length > 0 {
		pos = min(pos, s.Length)
	}
	return pos
}
