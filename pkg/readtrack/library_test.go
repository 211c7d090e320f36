package readtrack_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	readtrack "github.com/justincpresley/readtrack/pkg/readtrack"
	assert "github.com/stretchr/testify/assert"
	require "github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

type countingDB struct {
	readtrack.Database
	sets int
}

func (db *countingDB) Set(key []byte, value []byte) error {
	db.sets++
	return db.Database.Set(key, value)
}

var errRemove = errors.New("remove failed")

type failingDB struct {
	readtrack.Database
}

func (db *failingDB) Remove(key []byte) error { return errRemove }

func openBolt(t *testing.T, path string) *readtrack.BoltDB {
	db, err := readtrack.NewBoltDB(path, []byte("books"), time.Second)
	require.NoError(t, err)
	return db
}

func TestLibraryAddGetRemove(t *testing.T) {
	cs := readtrack.GetDefaultConstants()
	l := readtrack.NewLibrary(nil, cs)
	require.NoError(t, l.Add(readtrack.NewBook("Psalms", day(t, "2024-01-01"), cs)))
	require.NoError(t, l.Add(readtrack.NewBook("Advent", day(t, "2024-12-01"), cs)))
	assert.ErrorIs(t, l.Add(readtrack.NewBook("Psalms", day(t, "2025-01-01"), cs)), readtrack.ErrDuplicateBook)
	assert.Equal(t, 2, l.Len())

	b, ok := l.Get("Psalms")
	assert.True(t, ok)
	assert.Equal(t, day(t, "2024-01-01"), b.Start())

	titles := []string{}
	for _, b := range l.Books() {
		titles = append(titles, b.Title())
	}
	assert.Equal(t, []string{"Psalms", "Advent"}, titles)

	assert.NoError(t, l.Remove("Psalms"))
	assert.ErrorIs(t, l.Remove("Psalms"), readtrack.ErrUnknownBook)
	_, ok = l.Get("Psalms")
	assert.False(t, ok)

	_, err := l.Save()
	assert.ErrorIs(t, err, readtrack.ErrNoStorage)
	assert.ErrorIs(t, l.Load(), readtrack.ErrNoStorage)
	assert.NoError(t, l.Close())
}

func TestLibraryInScope(t *testing.T) {
	cs := readtrack.GetDefaultConstants()
	l := readtrack.NewLibrary(nil, cs)
	always := readtrack.NewBook("Always", day(t, "2024-01-01"), cs)
	only := readtrack.NewBook("Only2024", day(t, "2024-01-01"), cs)
	only.SetValidYear(2024)
	l.Add(always)
	l.Add(only)

	assert.Len(t, l.InScope(day(t, "2024-06-01")), 2)
	inScope := l.InScope(day(t, "2025-06-01"))
	require.Len(t, inScope, 1)
	assert.Equal(t, "Always", inScope[0].Title())
}

func TestLibrarySaveOnlyChanged(t *testing.T) {
	cs := readtrack.GetDefaultConstants()
	db := &countingDB{Database: openBolt(t, filepath.Join(t.TempDir(), "books.db"))}
	l := readtrack.NewLibrary(db, cs)
	defer l.Close()

	psalms := readtrack.NewBook("Psalms", day(t, "2024-01-01"), cs)
	l.Add(psalms)
	l.Add(readtrack.NewBook("Advent", day(t, "2024-12-01"), cs))

	n, err := l.Save()
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	n, _ = l.Save()
	assert.Equal(t, 0, n)

	psalms.SetRead(day(t, "2024-01-05"), true)
	n, _ = l.Save()
	assert.Equal(t, 1, n)

	// toggled away and back: storage already holds this state
	psalms.SetRead(day(t, "2024-01-05"), false)
	psalms.SetRead(day(t, "2024-01-05"), true)
	n, _ = l.Save()
	assert.Equal(t, 0, n)
	assert.Equal(t, 3, db.sets)
}

func TestLibraryPersists(t *testing.T) {
	cs := readtrack.GetDefaultConstants()
	config := readtrack.GetBasicConfig(filepath.Join(t.TempDir(), "nested", "books.db"))

	l, err := readtrack.OpenLibrary(config, cs)
	require.NoError(t, err)
	psalms := readtrack.NewBook("Psalms", day(t, "2024-01-01"), cs)
	psalms.MarkReadThrough(day(t, "2024-01-20"))
	l.Add(psalms)
	l.Add(readtrack.NewBook("Advent", day(t, "2024-12-01"), cs))
	l.Add(readtrack.NewBook("Gone", day(t, "2024-12-01"), cs))
	_, err = l.Save()
	require.NoError(t, err)
	require.NoError(t, l.Remove("Gone"))
	require.NoError(t, l.Close())

	l, err = readtrack.OpenLibrary(config, cs)
	require.NoError(t, err)
	defer l.Close()
	assert.Equal(t, 2, l.Len())
	b, ok := l.Get("Psalms")
	require.True(t, ok)
	assert.Equal(t, psalms.Record(), b.Record())
	_, ok = l.Get("Gone")
	assert.False(t, ok)

	n, _ := l.Save()
	assert.Equal(t, 0, n)
}

func TestLibraryLoadSkipsMalformed(t *testing.T) {
	cs := readtrack.GetDefaultConstants()
	db := openBolt(t, filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, db.Set([]byte("broken"), []byte(`{"title":"broken"}`)))
	require.NoError(t, db.Set([]byte("Short"), []byte(`{"title":"Short","readingStartDate":"2024-01-01","validYear":0,"read":"ff"}`)))
	require.NoError(t, db.Set([]byte("Psalms"), []byte(`{"title":"Psalms","readingStartDate":"2024-01-01","validYear":0,"read":"ff`+strings.Repeat("00", 95)+`"}`)))
	assert.Equal(t, []byte(`{"title":"broken"}`), db.Get([]byte("broken")))
	assert.Nil(t, db.Get([]byte("missing")))

	l := readtrack.NewLibrary(db, cs)
	defer l.Close()
	require.NoError(t, l.Load())
	assert.Equal(t, 1, l.Len())
	b, ok := l.Get("Psalms")
	require.True(t, ok)
	assert.Equal(t, 8, b.ReadCount())
	_, ok = l.Get("Short")
	assert.False(t, ok)
}

func TestLibraryLoadPicksUpStoredChanges(t *testing.T) {
	cs := readtrack.GetDefaultConstants()
	db := openBolt(t, filepath.Join(t.TempDir(), "books.db"))
	l := readtrack.NewLibrary(db, cs)
	defer l.Close()
	l.Add(readtrack.NewBook("Psalms", day(t, "2024-01-01"), cs))
	l.Add(readtrack.NewBook("Advent", day(t, "2024-12-01"), cs))
	l.Add(readtrack.NewBook("Gone", day(t, "2024-12-01"), cs))
	_, err := l.Save()
	require.NoError(t, err)
	l.Add(readtrack.NewBook("Unsaved", day(t, "2024-12-01"), cs))

	// another process marks a week read and removes a book
	other := readtrack.NewBook("Psalms", day(t, "2024-01-01"), cs)
	other.MarkReadThrough(day(t, "2024-01-07"))
	buf, err := other.Bytes()
	require.NoError(t, err)
	require.NoError(t, db.Set([]byte("Psalms"), buf))
	require.NoError(t, db.Remove([]byte("Gone")))

	require.NoError(t, l.Load())
	b, ok := l.Get("Psalms")
	require.True(t, ok)
	assert.Equal(t, 7, b.ReadCount())
	_, ok = l.Get("Gone")
	assert.False(t, ok)
	_, ok = l.Get("Unsaved")
	assert.True(t, ok)

	titles := []string{}
	for _, b := range l.Books() {
		titles = append(titles, b.Title())
	}
	assert.Equal(t, []string{"Psalms", "Advent", "Unsaved"}, titles)

	n, err := l.Save()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBoltLockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.db")
	held := openBolt(t, path)

	begin := time.Now()
	_, err := readtrack.NewBoltDB(path, []byte("books"), 50*time.Millisecond)
	assert.ErrorIs(t, err, bolt.ErrTimeout)
	assert.True(t, time.Since(begin) < 5*time.Second)

	require.NoError(t, held.Close())
	again, err := readtrack.NewBoltDB(path, []byte("books"), 50*time.Millisecond)
	require.NoError(t, err)
	assert.NoError(t, again.Close())
}

func TestOpenLibraryWhileHeld(t *testing.T) {
	cs := readtrack.GetDefaultConstants()
	config := readtrack.GetBasicConfig(filepath.Join(t.TempDir(), "books.db"))
	config.LockTimeout = 50 * time.Millisecond
	l, err := readtrack.OpenLibrary(config, cs)
	require.NoError(t, err)
	defer l.Close()

	_, err = readtrack.OpenLibrary(config, cs)
	assert.ErrorIs(t, err, bolt.ErrTimeout)
}

func TestTransientLibrariesShareStore(t *testing.T) {
	cs := readtrack.GetDefaultConstants()
	config := readtrack.GetBasicConfig(filepath.Join(t.TempDir(), "books.db"))
	config.Transient = true
	watching, err := readtrack.OpenLibrary(config, cs)
	require.NoError(t, err)
	defer watching.Close()

	// a plain open succeeds while the transient library is open
	config.Transient = false
	writing, err := readtrack.OpenLibrary(config, cs)
	require.NoError(t, err)
	psalms := readtrack.NewBook("Psalms", day(t, "2024-01-01"), cs)
	psalms.MarkReadThrough(day(t, "2024-01-03"))
	writing.Add(psalms)
	_, err = writing.Save()
	require.NoError(t, err)
	require.NoError(t, writing.Close())

	require.NoError(t, watching.Load())
	b, ok := watching.Get("Psalms")
	require.True(t, ok)
	assert.Equal(t, 3, b.ReadCount())

	b.SetRead(day(t, "2024-01-04"), true)
	n, err := watching.Save()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, watching.Remove("Psalms"))
	assert.Equal(t, 0, watching.Len())
}

func TestLibraryRemoveKeepsBookOnStorageError(t *testing.T) {
	cs := readtrack.GetDefaultConstants()
	db := &failingDB{Database: openBolt(t, filepath.Join(t.TempDir(), "books.db"))}
	l := readtrack.NewLibrary(db, cs)
	defer l.Close()
	l.Add(readtrack.NewBook("Psalms", day(t, "2024-01-01"), cs))
	_, err := l.Save()
	require.NoError(t, err)

	assert.ErrorIs(t, l.Remove("Psalms"), errRemove)
	_, ok := l.Get("Psalms")
	assert.True(t, ok)
	n, _ := l.Save()
	assert.Equal(t, 0, n)
}
