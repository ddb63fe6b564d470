package models

import (
	"fmt"
	"strconv"
	"strings"
)

type ThreadKind string

const (
	ThreadDirect   ThreadKind = "direct"
	ThreadCategory ThreadKind = "category"
	ThreadTeam     ThreadKind = "team"
)

// Thread identifies a conversation: a counterpart user, a category or a
// team. It is derived, never stored.
type Thread struct {
	Kind ThreadKind `json:"kind"`
	ID   uint       `json:"id"`
}

func DirectThread(userID uint) Thread       { return Thread{Kind: ThreadDirect, ID: userID} }
func CategoryThread(categoryID uint) Thread { return Thread{Kind: ThreadCategory, ID: categoryID} }
func TeamThread(teamID uint) Thread         { return Thread{Kind: ThreadTeam, ID: teamID} }

func (t Thread) IsZero() bool      { return t.Kind == "" && t.ID == 0 }
func (t Thread) IsBroadcast() bool { return t.Kind == ThreadCategory || t.Kind == ThreadTeam }

func (t Thread) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}

// Address sets the single addressing field of m matching the thread.
func (t Thread) Address(m *Message) {
	id := t.ID
	m.ReceiverID, m.CategoryID, m.TeamID = nil, nil, nil
	switch t.Kind {
	case ThreadDirect:
		m.ReceiverID = &id
	case ThreadCategory:
		m.CategoryID = &id
	case ThreadTeam:
		m.TeamID = &id
	}
}

// ParseThread parses "direct:12", "category:3" or "team:7".
func ParseThread(s string) (Thread, error) {
	kind, rawID, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Thread{}, fmt.Errorf("invalid thread %q", s)
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return Thread{}, fmt.Errorf("invalid thread id %q", rawID)
	}
	switch ThreadKind(kind) {
	case ThreadDirect, ThreadCategory, ThreadTeam:
		return Thread{Kind: ThreadKind(kind), ID: uint(id)}, nil
	}
	return Thread{}, fmt.Errorf("unknown thread kind %q", kind)
}
