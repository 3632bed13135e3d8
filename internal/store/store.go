package store

import "context"

// Store is the coordinator-facing facade over the local slot and the
// remote resolution service.
type Store struct {
	local  Local
	remote *Remote
}

// New combines a local slot and a remote client.
func New(local Local, remote *Remote) *Store {
	return &Store{local: local, remote: remote}
}

// Cached returns the locally persisted target, or "".
func (s *Store) Cached() string {
	return s.local.Get()
}

// Persist writes the target to the local slot, best-effort.
func (s *Store) Persist(url string) {
	s.local.Set(url)
}

// Lookup queries the remote service, see Remote.Lookup.
func (s *Store) Lookup(ctx context.Context, id Identity) (string, bool) {
	return s.remote.Lookup(ctx, id)
}

// SaveRemote fires a best-effort remote save, see Remote.Save.
func (s *Store) SaveRemote(ctx context.Context, id Identity, projectID, url string) {
	s.remote.Save(ctx, id, projectID, url)
}

// ResolveUser asks for a username's registered domain, see
// Remote.ResolveUser.
func (s *Store) ResolveUser(ctx context.Context, username string) (string, error) {
	return s.remote.ResolveUser(ctx, username)
}
