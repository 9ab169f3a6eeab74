/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

var avatars = []string{
	"🟡", "🟢", "🔵", "🟣", "🧡",
	"⭐️", "🌙", "🍀", "🔥", "🎨",
	"🐱", "🐶", "🐼", "🐸", "🐧",
}

// Player is a roster entry. Index is assigned by the server, never reused
// within a room, and index 0 is the host.
type Player struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

func (p Player) Avatar() string {
	i := p.Index % len(avatars)
	if i < 0 {
		i += len(avatars)
	}
	return avatars[i]
}

// Roster is always a full snapshot from the server, never a delta.
type Roster []Player

// IndexOf returns the stable index of the first entry named name.
func (r Roster) IndexOf(name string) (int, bool) {
	for _, p := range r {
		if p.Name == name {
			return p.Index, true
		}
	}
	return 0, false
}

// Without returns a copy of r with every entry named name removed.
func (r Roster) Without(name string) Roster {
	out := make(Roster, 0, len(r))
	for _, p := range r {
		if p.Name != name {
			out = append(out, p)
		}
	}
	return out
}

func (r Roster) clone() Roster {
	if r == nil {
		return nil
	}
	return append(Roster(nil), r...)
}

// Identity is the local player's position in the roster.
type Identity struct {
	Name     string `json:"name"`
	Index    int    `json:"index"`
	Resolved bool   `json:"resolved"`
}

func (id Identity) IsHost() bool {
	return id.Resolved && id.Index == 0
}

func resolveIdentity(r Roster, name string) Identity {
	index, ok := r.IndexOf(name)
	return Identity{Name: name, Index: index, Resolved: ok}
}

// RosterEntry is the rendered form of a Player.
type RosterEntry struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Host   bool   `json:"host"`
	Self   bool   `json:"self"`
}

func rosterView(r Roster, self Identity) []RosterEntry {
	entries := make([]RosterEntry, 0, len(r))
	for _, p := range r {
		entries = append(entries, RosterEntry{
			Index:  p.Index,
			Name:   p.Name,
			Avatar: p.Avatar(),
			Host:   p.Index == 0,
			Self:   self.Resolved && p.Index == self.Index,
		})
	}
	return entries
}
