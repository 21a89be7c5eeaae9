package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// On disk every user owns one directory with a subdirectory per
// folder, and every message is one file named by its identifier,
// holding the canonical rendering.

func (st *Store) folderDir(a *account, f Folder) string {
	return filepath.Join(st.dir, a.name, string(f))
}

func (st *Store) writeMessage(a *account, f Folder, m *Message) error {
	dir := st.folderDir(a, f)
	if err := createDir(dir); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, m.ID), []byte(m.Render()), 0600)
}

func (st *Store) removeMessage(a *account, f Folder, id string) error {
	return os.Remove(filepath.Join(st.folderDir(a, f), id))
}

// loadAccount reads whatever the account's folders already hold on
// disk into memory, newest file first.
func (st *Store) loadAccount(a *account) error {
	for _, f := range allFolders {
		dir := st.folderDir(a, f)
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			// Folder not written to yet.
			continue
		}
		if err != nil {
			return err
		}

		type file struct {
			name string
			mod  time.Time
		}
		files := make([]file, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() || e.Name()[0] == '.' {
				continue
			}
			info, err := e.Info()
			if err != nil {
				return err
			}
			files = append(files, file{e.Name(), info.ModTime()})
		}
		sort.Slice(files, func(i, j int) bool {
			if !files[i].mod.Equal(files[j].mod) {
				return files[i].mod.After(files[j].mod)
			}
			return files[i].name > files[j].name
		})

		list := make([]*Message, 0, len(files))
		for _, fl := range files {
			raw, err := os.ReadFile(filepath.Join(dir, fl.name))
			if err != nil {
				return err
			}
			list = append(list, parseRendering(fl.name, string(raw), fl.mod))
		}
		a.folders[f] = list
	}
	return nil
}

// parseRendering rebuilds a message from its canonical rendering. The
// header block is kept verbatim so that Render reproduces the file
// byte for byte.
func parseRendering(id, raw string, fallback time.Time) *Message {
	headers, body := SplitRendering(raw)
	m := &Message{
		ID:      id,
		From:    headerValue(headers, "From"),
		Subject: headerValue(headers, "Subject"),
		Headers: headers,
		Body:    body,
		Created: fallback,
	}
	if to := headerValue(headers, "To"); to != "" {
		for _, addr := range strings.Split(to, ",") {
			m.To = append(m.To, strings.TrimSpace(addr))
		}
	}
	if date := headerValue(headers, "Date"); date != "" {
		if t, err := time.ParseInLocation(dateFormat, date, time.Local); err == nil {
			m.Created = t
		}
	}
	return m
}

func createDir(path string) error {
	stat, err := os.Stat(path)
	if stat != nil && err == nil {
		return nil
	}
	return os.MkdirAll(path, 0755)
}
