package store

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Folder names one of the four per-user message collections. The name
// doubles as the on-disk directory name.
type Folder string

const (
	FolderInbox  Folder = "inbox"
	FolderSent   Folder = "sent"
	FolderDrafts Folder = "drafts"
	FolderTrash  Folder = "trash"
)

var allFolders = []Folder{FolderInbox, FolderSent, FolderDrafts, FolderTrash}

// trashSources are the folders a message may be moved to trash from.
var trashSources = []Folder{FolderInbox, FolderSent, FolderDrafts}

// User is a read-only snapshot of an account.
type User struct {
	Name    string
	Address string
	Online  bool
}

// account is the store's internal user record. All access to its
// folders goes through its mutex, so mutations for one user are
// serialized while unrelated users never contend.
type account struct {
	mu       sync.Mutex
	name     string
	address  string
	password string
	pwhash   string
	online   bool
	folders  map[Folder][]*Message
}

func newAccount(name, address, password, pwhash string) *account {
	a := &account{
		name:     name,
		address:  address,
		password: password,
		pwhash:   pwhash,
		folders:  make(map[Folder][]*Message),
	}
	for _, f := range allFolders {
		a.folders[f] = make([]*Message, 0)
	}
	return a
}

// checkSecret compares the given secret against the account's
// plaintext password or bcrypt hash, whichever is configured.
func (a *account) checkSecret(pass string) bool {
	if a.password != "" {
		return a.password == pass
	}
	if a.pwhash != "" {
		return bcrypt.CompareHashAndPassword([]byte(a.pwhash), []byte(pass)) == nil
	}
	return false
}

// insertHead puts the message at the head of the folder; collections
// are kept newest first.
func (a *account) insertHead(f Folder, m *Message) {
	a.folders[f] = append([]*Message{m}, a.folders[f]...)
}

// dropHead undoes an insertHead.
func (a *account) dropHead(f Folder) {
	a.folders[f] = a.folders[f][1:]
}

func (a *account) removeAt(f Folder, i int) *Message {
	list := a.folders[f]
	m := list[i]
	a.folders[f] = append(list[:i:i], list[i+1:]...)
	return m
}

// locate finds the message in the folders it may legally be moved or
// mutated in. A message lives in exactly one folder at a time.
func (a *account) locate(msgID string) (Folder, int) {
	for _, f := range trashSources {
		for i, m := range a.folders[f] {
			if m.ID == msgID {
				return f, i
			}
		}
	}
	return "", -1
}
