package server

import "sync"

// Registry tracks live connections by username and by room group. It is
// injected into the Server so a process can share or inspect it.
type Registry struct {
	mu     sync.RWMutex
	users  map[string]map[*Connection]struct{}
	groups map[string]map[*Connection]struct{}
	joined map[*Connection]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		users:  make(map[string]map[*Connection]struct{}),
		groups: make(map[string]map[*Connection]struct{}),
		joined: make(map[*Connection]map[string]struct{}),
	}
}

// Add registers a connection under its username.
func (r *Registry) Add(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	add(r.users, c.Username(), c)
	r.joined[c] = make(map[string]struct{})
}

// Remove drops the connection everywhere and returns the room groups it
// belonged to.
func (r *Registry) Remove(c *Connection) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	remove(r.users, c.Username(), c)
	var rooms []string
	for id := range r.joined[c] {
		remove(r.groups, id, c)
		rooms = append(rooms, id)
	}
	delete(r.joined, c)
	return rooms
}

// Join adds the connection to a room group.
func (r *Registry) Join(roomID string, c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rooms, ok := r.joined[c]
	if !ok {
		return
	}
	add(r.groups, roomID, c)
	rooms[roomID] = struct{}{}
}

// Leave removes the connection from a room group.
func (r *Registry) Leave(roomID string, c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	remove(r.groups, roomID, c)
	delete(r.joined[c], roomID)
}

// InGroup reports whether the connection belongs to the room group.
func (r *Registry) InGroup(roomID string, c *Connection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.groups[roomID][c]
	return ok
}

// Members returns the connections of username that are in the room group.
func (r *Registry) Members(roomID, username string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	group := r.groups[roomID]
	var out []*Connection
	for c := range r.users[username] {
		if _, ok := group[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Group returns the connections in a room group.
func (r *Registry) Group(roomID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.groups[roomID]))
	for c := range r.groups[roomID] {
		out = append(out, c)
	}
	return out
}

// Connected returns the number of live connections.
func (r *Registry) Connected() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.joined)
}

func add(m map[string]map[*Connection]struct{}, key string, c *Connection) {
	set, ok := m[key]
	if !ok {
		set = make(map[*Connection]struct{})
		m[key] = set
	}
	set[c] = struct{}{}
}

func remove(m map[string]map[*Connection]struct{}, key string, c *Connection) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(m, key)
	}
}

func (r *Registry) all() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Connection, 0, len(r.joined))
	for c := range r.joined {
		out = append(out, c)
	}
	return out
}
