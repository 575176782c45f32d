package syncer

import "fmt"

type State string

const (
	StateInit          State = "INIT"
	StateSyncStructure State = "SYNC_STRUCTURE"
	StateSyncContent   State = "SYNC_CONTENT"
	StateDone          State = "DONE"
	StateFailed        State = "FAILED"
)

var transitions = map[State][]State{
	StateInit:          {StateSyncStructure, StateSyncContent},
	StateSyncStructure: {StateSyncContent, StateDone, StateFailed},
	StateSyncContent:   {StateDone, StateFailed},
}

type machine struct {
	state State
}

func newMachine() *machine {
	return &machine{state: StateInit}
}

// to advances the run. An illegal transition is a bug in the orchestrator.
func (m *machine) to(next State) {
	for _, allowed := range transitions[m.state] {
		if allowed == next {
			m.state = next
			return
		}
	}
	panic(fmt.Sprintf("syncer: illegal transition %s -> %s", m.state, next))
}
