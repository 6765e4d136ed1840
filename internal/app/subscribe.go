package app

// defaultSubscriberBuffer is used when Subscribe is called with a non-positive buffer.
const defaultSubscriberBuffer = 16

// Subscribe registers a board event listener. Events are delivered after the
// operation that produced them completes; when the channel buffer is full the
// event is dropped for that subscriber. Call cancel to unsubscribe; it closes
// the channel and is safe to call more than once.
func (s *Service) Subscribe(buffer int) (<-chan BoardEvent, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan BoardEvent, buffer)

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	cancel := func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// hasSubscribers reports whether any listener is registered.
func (s *Service) hasSubscribers() bool {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs) > 0
}

// publish fans out one event without blocking.
func (s *Service) publish(event BoardEvent) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- event:
		default:
			s.logger.Debug("board subscriber is behind; dropping event", "subscriber", id, "event_id", event.EventID)
		}
	}
}
