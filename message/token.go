package message

// tokenSource hands out sync tokens. Tokens are millisecond timestamps, bumped past the last token handed out
// so that two fetches in the same millisecond never share one.
type tokenSource struct {
	clock Clock
	last  int64
}

func (s *tokenSource) next() int64 {
	token := s.clock.Now().UnixMilli()

	if token <= s.last {
		token = s.last + 1
	}

	s.last = token

	return token
}
