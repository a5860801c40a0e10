package models

import (
	"errors"
	"fmt"
	"sort"
)

var ErrAgentExists = errors.New("agent already exists")

// WorldState is the read side of the world model used while stepping.
type WorldState interface {
	Agent(id AgentID) (*Agent, bool)
	Intent(id AgentID, segment int) (Intent, bool)
}

// WorldModel adds the write side used when exporting simulation results.
type WorldModel interface {
	WorldState
	Kill(id AgentID)
}

var _ WorldModel = (*World)(nil)

// World is the authoritative store of agents. It is not safe for
// concurrent use; the host owns serialization.
type World struct {
	agents map[AgentID]*Agent
	killed []AgentID
}

func NewWorld() *World {
	return &World{agents: make(map[AgentID]*Agent)}
}

// Add inserts an agent.
func (w *World) Add(a *Agent) error {
	if _, exists := w.agents[a.ID]; exists {
		return fmt.Errorf("add agent %d: %w", a.ID, ErrAgentExists)
	}
	w.agents[a.ID] = a
	return nil
}

// Remove deletes an agent and reports whether it existed.
func (w *World) Remove(id AgentID) bool {
	if _, ok := w.agents[id]; !ok {
		return false
	}
	delete(w.agents, id)
	return true
}

// Kill removes the agent and remembers it so the host can react.
func (w *World) Kill(id AgentID) {
	if w.Remove(id) {
		w.killed = append(w.killed, id)
	}
}

// Killed returns and forgets agents removed through Kill.
func (w *World) Killed() []AgentID {
	out := w.killed
	w.killed = nil
	return out
}

func (w *World) Agent(id AgentID) (*Agent, bool) {
	a, ok := w.agents[id]
	return a, ok
}

func (w *World) Intent(id AgentID, segment int) (Intent, bool) {
	s, ok := w.agents[id].Segment(segment)
	if !ok {
		return Intent{}, false
	}
	return s.Intent, true
}

// Agents returns all agents ordered by id.
func (w *World) Agents() []*Agent {
	out := make([]*Agent, 0, len(w.agents))
	for _, a := range w.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) Len() int { return len(w.agents) }
