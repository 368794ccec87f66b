package claims

// Key addresses the last-seen commitment for one actor and verb.
type Key struct {
	Actor string
	Verb  string
}

// Memory holds the most recent commitment per (actor, verb) key. It is a
// best-effort cache, not a durable store: the authoritative record is the
// persisted claim log, and the worker may rebuild the cache from it at
// startup. The extractor is the only writer; the worker loop serializes all
// access, so Memory carries no lock of its own.
type Memory struct {
	last map[Key]Commitment
}

func NewMemory() *Memory {
	return &Memory{last: make(map[Key]Commitment)}
}

// Get returns the last commitment recorded for the key, if any.
func (m *Memory) Get(actor, verb string) (Commitment, bool) {
	c, ok := m.last[Key{Actor: actor, Verb: verb}]
	return c, ok
}

// Put overwrites the last commitment for the key. Entries are never deleted.
func (m *Memory) Put(actor, verb string, c Commitment) {
	m.last[Key{Actor: actor, Verb: verb}] = c
}

// Len reports the number of tracked (actor, verb) keys.
func (m *Memory) Len() int {
	return len(m.last)
}
