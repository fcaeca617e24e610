package playback

// startPolling (re)starts the position poll. Only one poll is ever armed.
func (s *Session) startPolling() {
	s.stopPolling()
	s.schedulePoll(s.pollSeq)
}

func (s *Session) schedulePoll(seq uint64) {
	s.pollTimer = s.sched.AfterFunc(s.cfg.PollInterval, func() {
		if seq != s.pollSeq || s.handle == nil || s.state != StatePlaying {
			return
		}
		s.position = s.handle.CurrentTime()
		if d := s.handle.Duration(); d > 0 {
			s.duration = d
		}
		s.publish()
		s.schedulePoll(seq)
	})
}

func (s *Session) stopPolling() {
	s.pollSeq++
	stopTimer(&s.pollTimer)
}

func (s *Session) polling() bool {
	return s.pollTimer != nil
}
