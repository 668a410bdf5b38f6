// Package game holds the boundary types handed to the engine by the
// external log parser, plus the effect sink the game process reads.
package game

// Character is one participant eligible to appear in a conversation.
// The sheet is an opaque pre-rendered description of the character used
// verbatim in prompts.
type Character struct {
	ID        int32
	FullName  string
	ShortName string
	Sheet     string

	// Relationship state the built-in actions read.
	OpinionOfPlayer int
	Gold            int
	IsLandedRuler   bool
	IsAtWarWith     []int32
	Prisoner        bool
}

// Roster is an arena-style participant table: a dense slice of characters
// plus an id-to-index map. Lookups never hand out interior pointers into
// the arena; mutation goes through Update.
type Roster struct {
	characters []Character
	index      map[int32]int
}

// NewRoster builds a roster from a dense character list. Later duplicates
// of an id win, matching the parser's last-write semantics.
func NewRoster(characters []Character) *Roster {
	r := &Roster{
		characters: make([]Character, len(characters)),
		index:      make(map[int32]int, len(characters)),
	}
	copy(r.characters, characters)
	for i, c := range r.characters {
		r.index[c.ID] = i
	}
	return r
}

// Get returns the character with the given id.
func (r *Roster) Get(id int32) (Character, bool) {
	i, ok := r.index[id]
	if !ok {
		return Character{}, false
	}
	return r.characters[i], true
}

// Update replaces the stored character with the same id, inserting it if
// it is not present yet.
func (r *Roster) Update(c Character) {
	if i, ok := r.index[c.ID]; ok {
		r.characters[i] = c
		return
	}
	r.characters = append(r.characters, c)
	r.index[c.ID] = len(r.characters) - 1
}

// All returns a copy of the dense character list in insertion order.
func (r *Roster) All() []Character {
	out := make([]Character, len(r.characters))
	copy(out, r.characters)
	return out
}

// Len returns the number of characters in the roster.
func (r *Roster) Len() int {
	return len(r.characters)
}

// Data is the structured game-state snapshot a conversation runs against.
// It is produced externally and treated as read-only except for character
// mutations applied through the roster by executed actions.
type Data struct {
	// Date is the in-world date string, e.g. "1066.9.15".
	Date string
	// Scene describes the location/occasion of the conversation.
	Scene string
	// InitiatorID is the human-controlled participant.
	InitiatorID int32
	// Roster holds every character visible to this session.
	Roster *Roster
}

// Initiator returns the human-controlled character.
func (d *Data) Initiator() (Character, bool) {
	return d.Roster.Get(d.InitiatorID)
}
