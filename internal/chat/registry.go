package chat

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 16

// PeerID is the network endpoint of a connection, stable for its lifetime.
type PeerID string

// Peer is a connection that completed the username handshake.
type Peer struct {
	ID       PeerID
	Username string
	box      *mailbox
}

// Messages returns the peer's mailbox. It is closed once the peer is unregistered.
func (p *Peer) Messages() <-chan *Message {
	return p.box.messages()
}

type shard struct {
	mu    sync.RWMutex
	peers map[PeerID]*Peer
}

// Registry maps peer ids to their mailboxes. Membership is split across
// shards so registrations and removals for unrelated peers rarely contend,
// and no lock is held while delivering to a mailbox.
type Registry struct {
	shards      [shardCount]shard
	mailboxSize int
	logger      *slog.Logger
}

func NewRegistry(mailboxSize int, logger *slog.Logger) *Registry {
	if mailboxSize <= 0 {
		mailboxSize = DefaultMailboxSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		mailboxSize: mailboxSize,
		logger:      logger,
	}
	for i := range r.shards {
		r.shards[i].peers = make(map[PeerID]*Peer)
	}
	return r
}

func (r *Registry) shardFor(id PeerID) *shard {
	return &r.shards[xxhash.Sum64String(string(id))%shardCount]
}

// Register allocates a mailbox for the peer and makes it visible to broadcasts.
func (r *Registry) Register(id PeerID, username string) (*Peer, error) {
	p := &Peer{
		ID:       id,
		Username: username,
		box:      newMailbox(r.mailboxSize),
	}

	s := r.shardFor(id)
	s.mu.Lock()
	if _, exists := s.peers[id]; exists {
		s.mu.Unlock()
		return nil, ErrPeerExists
	}
	s.peers[id] = p
	s.mu.Unlock()

	ConnectedPeers.Inc()
	r.logger.Info("peer registered", "peer", string(id), "username", username)
	return p, nil
}

// Unregister removes the peer and closes its mailbox. Only the first call for
// a given registration reports true; later calls are no-ops.
func (r *Registry) Unregister(id PeerID) (*Peer, bool) {
	s := r.shardFor(id)
	s.mu.Lock()
	p, ok := s.peers[id]
	if ok {
		delete(s.peers, id)
	}
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	p.box.close()
	ConnectedPeers.Dec()
	r.logger.Info("peer unregistered", "peer", string(id), "username", p.Username)
	return p, true
}

// Broadcast offers msg to every registered peer except sender. Peers whose
// mailbox is full or closed are unregistered, and a Left message is broadcast
// for each of them once the current delivery pass is done.
func (r *Registry) Broadcast(sender PeerID, msg *Message) {
	start := time.Now()
	kind := msg.Kind().String()
	defer func() {
		BroadcastDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()
	MessagesTotal.WithLabelValues(kind).Inc()

	var evicted []*Peer
	for _, p := range r.snapshot() {
		if p.ID == sender {
			continue
		}
		err := p.box.offer(msg)
		if err == nil {
			continue
		}

		reason := "full"
		if errors.Is(err, ErrMailboxClosed) {
			reason = "closed"
		}
		DeliveryFailures.WithLabelValues(reason).Inc()
		r.logger.Warn("dropping peer after failed delivery",
			"peer", string(p.ID), "username", p.Username, "error", err)

		if gone, ok := r.Unregister(p.ID); ok {
			evicted = append(evicted, gone)
		}
	}

	for _, p := range evicted {
		r.Broadcast(p.ID, Left(p.Username))
	}
}

// snapshot copies the current members, locking one shard at a time.
func (r *Registry) snapshot() []*Peer {
	peers := make([]*Peer, 0, r.Len())
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for _, p := range s.peers {
			peers = append(peers, p)
		}
		s.mu.RUnlock()
	}
	return peers
}

func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		n += len(s.peers)
		s.mu.RUnlock()
	}
	return n
}

// Usernames returns the sorted usernames of all registered peers.
func (r *Registry) Usernames() []string {
	peers := r.snapshot()
	names := make([]string, 0, len(peers))
	for _, p := range peers {
		names = append(names, p.Username)
	}
	sort.Strings(names)
	return names
}

// closeAll unregisters every peer without broadcasting. Used on shutdown.
func (r *Registry) closeAll() {
	for _, p := range r.snapshot() {
		r.Unregister(p.ID)
	}
}
