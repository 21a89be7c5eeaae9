package pop

import (
	"errors"
	"strconv"

	"github.com/mailhive/mailhive/server/store"
)

// entry pairs one snapshot message with its session-scoped number and
// the deleted flag that hides it from further listings.
type entry struct {
	num     int
	msg     store.Message
	deleted bool
}

// inboxView is the immutable snapshot a transaction works against.
// Numbers are 1-based positions into the snapshot taken at login and
// never change for the lifetime of the view, regardless of what other
// sessions deliver meanwhile.
type inboxView struct {
	messageList []*entry
}

func newInboxView(msgs []store.Message) *inboxView {
	list := make([]*entry, 0, len(msgs))
	for i, msg := range msgs {
		list = append(list, &entry{num: i + 1, msg: msg})
	}
	return &inboxView{messageList: list}
}

// entries returns the undeleted entries in snapshot order.
func (v *inboxView) entries() []*entry {
	list := make([]*entry, 0, len(v.messageList))
	for _, e := range v.messageList {
		if e.deleted {
			continue
		}
		list = append(list, e)
	}
	return list
}

// find resolves a message-number argument to an undeleted entry.
func (v *inboxView) find(arg string) (*entry, error) {
	if arg == "" {
		return nil, errors.New("message number required")
	}
	num, err := strconv.Atoi(arg)
	if err != nil {
		return nil, errors.New("invalid message number")
	}
	for _, e := range v.messageList {
		if e.num != num {
			continue
		}
		if e.deleted {
			return nil, errors.New("no such message")
		}
		return e, nil
	}
	return nil, errors.New("no such message")
}

func (v *inboxView) stat() (count int, size int) {
	for _, e := range v.entries() {
		count++
		size += e.msg.Size()
	}
	return count, size
}
