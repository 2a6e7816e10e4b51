package simplepir

import (
	"github.com/tiptoe-pir/tiptoe/pkg/csprng"
	"github.com/tiptoe-pir/tiptoe/pkg/ffm"
	"github.com/tiptoe-pir/tiptoe/pkg/lwe"
	"github.com/tiptoe-pir/tiptoe/pkg/pirerr"
)

// Session drives one client through the SETUP -> QUERYING ->
// AWAITING_ANSWER -> RECONSTRUCT -> DONE state machine of spec.md §4.2. It
// is not required for correctness (the package-level functions above are
// sufficient and stateless), but it gives callers that want the state
// machine enforced literally a single type to hold, matching the spec's
// description of the client as a small per-query state machine.
type Session struct {
	params lwe.Params
	seedA  [csprng.SeedLen]byte
	state  ClientState
	secret *Secret
}

// NewSession starts a client session in the SETUP state.
func NewSession(params lwe.Params, seedA [csprng.SeedLen]byte) *Session {
	return &Session{params: params, seedA: seedA, state: StateSetup}
}

// State reports the session's current state.
func (s *Session) State() ClientState { return s.state }

// Query moves SETUP -> QUERYING -> AWAITING_ANSWER, returning the query to
// send to the server and retaining the secret for Reconstruct.
func (s *Session) Query(index uint64) (*Query, error) {
	if !advance(s.state, StateQuerying) {
		return nil, pirerr.New(pirerr.KindDimension, "cannot query from state %s", s.state)
	}
	s.state = StateQuerying

	secret, query, err := QueryColumn(s.params, s.seedA, index)
	if err != nil {
		return nil, err
	}
	s.secret = secret
	s.state = StateAwaitingAnswer
	return query, nil
}

// Reconstruct moves AWAITING_ANSWER -> RECONSTRUCT -> DONE, consuming the
// server's answer and the hint fetched at setup time.
func (s *Session) Reconstruct(h *Hint, ans *Answer) (*ffm.Matrix[Elem], error) {
	if !advance(s.state, StateReconstruct) {
		return nil, pirerr.New(pirerr.KindDimension, "cannot reconstruct from state %s", s.state)
	}
	s.state = StateReconstruct

	out, err := Reconstruct(s.params, h, s.secret, ans)
	if err != nil {
		return nil, err
	}
	s.state = StateDone
	return out, nil
}
