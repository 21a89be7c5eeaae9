// Package store owns all user accounts and their message folders. It
// is the single shared mutable resource of the server: sessions read
// and mutate mailboxes only through it, and every accessor returns
// copies so no caller ever holds a live reference into its state.
package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownUser   = errors.New("no such user")
	ErrNoSuchMessage = errors.New("no such message")
)

// Store keeps every account's folders in memory, mirrored by one file
// per message under <dir>/<user>/<folder>/. Mutations are durable:
// a write that cannot be persisted is rolled back in memory.
type Store struct {
	dir    string
	byName map[string]*account
	byAddr map[string]*account
}

// New opens a store rooted at the given directory. Accounts are added
// with AddUser; the account set is fixed after startup, so no lock
// guards the maps themselves.
func New(dir string) (*Store, error) {
	if err := createDir(dir); err != nil {
		return nil, err
	}
	return &Store{
		dir:    dir,
		byName: make(map[string]*account),
		byAddr: make(map[string]*account),
	}, nil
}

// AddUser provisions an account and loads whatever its folders already
// hold on disk.
func (st *Store) AddUser(name, address, password, pwhash string) error {
	if name == "" {
		return errors.New("empty user name")
	}
	if _, taken := st.byName[name]; taken {
		return fmt.Errorf("duplicate user %q", name)
	}
	a := newAccount(name, address, password, pwhash)
	if err := st.loadAccount(a); err != nil {
		return fmt.Errorf("load mailbox of %s: %w", name, err)
	}
	st.byName[name] = a
	if address != "" {
		st.byAddr[strings.ToLower(address)] = a
	}
	return nil
}

// find resolves a user name or a primary address to the account.
func (st *Store) find(id string) *account {
	if a, ok := st.byName[id]; ok {
		return a
	}
	if a, ok := st.byAddr[strings.ToLower(id)]; ok {
		return a
	}
	return nil
}

// Lookup returns a snapshot of the user record.
func (st *Store) Lookup(id string) (User, error) {
	a := st.find(id)
	if a == nil {
		return User{}, ErrUnknownUser
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return User{Name: a.name, Address: a.address, Online: a.online}, nil
}

// Authenticate reports whether the secret matches the account's
// credential. Unknown identifiers simply fail.
func (st *Store) Authenticate(id, secret string) bool {
	a := st.find(id)
	if a == nil {
		return false
	}
	return a.checkSecret(secret)
}

// SetOnline flips the account's online flag.
func (st *Store) SetOnline(id string, online bool) {
	a := st.find(id)
	if a == nil {
		return
	}
	a.mu.Lock()
	a.online = online
	a.mu.Unlock()
}

// Deliver puts the message at the head of the recipient's inbox and
// persists it. The in-memory insert and the durable write are one
// unit: if the write fails the inbox is left unchanged.
func (st *Store) Deliver(rcpt string, msg *Message) error {
	return st.fileInto(rcpt, FolderInbox, msg)
}

// RecordSent files a copy of a submitted message into the sender's
// sent folder.
func (st *Store) RecordSent(id string, msg *Message) error {
	return st.fileInto(id, FolderSent, msg)
}

// SaveDraft files the message into the user's drafts folder.
func (st *Store) SaveDraft(id string, msg *Message) error {
	return st.fileInto(id, FolderDrafts, msg)
}

func (st *Store) fileInto(id string, f Folder, msg *Message) error {
	a := st.find(id)
	if a == nil {
		return ErrUnknownUser
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	m := msg.clone()
	a.insertHead(f, m)
	if err := st.writeMessage(a, f, m); err != nil {
		a.dropHead(f)
		return fmt.Errorf("persist message %s: %w", m.ID, err)
	}
	return nil
}

// MoveToTrash removes the message from whichever of inbox, sent or
// drafts holds it and inserts it at the head of trash, relocating the
// on-disk copy along the way.
func (st *Store) MoveToTrash(id, msgID string) error {
	a := st.find(id)
	if a == nil {
		return ErrUnknownUser
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	src, i := a.locate(msgID)
	if i < 0 {
		return ErrNoSuchMessage
	}
	m := a.folders[src][i]

	if err := st.writeMessage(a, FolderTrash, m); err != nil {
		return fmt.Errorf("persist message %s: %w", m.ID, err)
	}
	if err := st.removeMessage(a, src, m.ID); err != nil {
		// Undo the trash copy so the message stays in one folder.
		st.removeMessage(a, FolderTrash, m.ID)
		return fmt.Errorf("unfile message %s: %w", m.ID, err)
	}
	a.removeAt(src, i)
	a.insertHead(FolderTrash, m)
	return nil
}

// MarkRead flips the read flag of a message in the user's inbox.
func (st *Store) MarkRead(id, msgID string) error {
	a := st.find(id)
	if a == nil {
		return ErrUnknownUser
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, m := range a.folders[FolderInbox] {
		if m.ID == msgID {
			m.Read = true
			return nil
		}
	}
	return ErrNoSuchMessage
}

// SnapshotInbox returns a point-in-time copy of the user's inbox,
// newest message first. Later deliveries or moves do not affect the
// returned slice.
func (st *Store) SnapshotInbox(id string) ([]Message, error) {
	return st.SnapshotFolder(id, FolderInbox)
}

// SnapshotFolder is SnapshotInbox for an arbitrary folder.
func (st *Store) SnapshotFolder(id string, f Folder) ([]Message, error) {
	a := st.find(id)
	if a == nil {
		return nil, ErrUnknownUser
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	list := a.folders[f]
	out := make([]Message, 0, len(list))
	for _, m := range list {
		out = append(out, *m.clone())
	}
	return out, nil
}
