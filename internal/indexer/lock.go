package indexer

import "sync"

// projectLocks refuses a second directory sync for a project while one
// is running. Different projects never block each other.
type projectLocks struct {
	mu      sync.Mutex
	running map[string]struct{}
}

// tryLock marks projectID busy and reports whether it was free
func (p *projectLocks) tryLock(projectID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.running[projectID]; busy {
		return false
	}
	if p.running == nil {
		p.running = make(map[string]struct{})
	}
	p.running[projectID] = struct{}{}
	return true
}

func (p *projectLocks) unlock(projectID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.running, projectID)
}
