package journal

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeDB struct {
	mu      sync.Mutex
	queries []string
	args    [][]any
	err     error
}

func (f *fakeDB) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
	return nil, f.err
}

func (f *fakeDB) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func TestWriter_AppendAndClose(t *testing.T) {
	db := &fakeDB{}
	w := NewWriter(db, "fixsim_journal", 8, zerolog.Nop())

	assert.ErrorIs(t, w.TryAppend(Record{}), ErrNotStarted)
	require.NoError(t, w.Start(context.Background()))
	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyStarted)

	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, w.TryAppend(Record{At: at, Direction: Outbound, SessionID: "FIX.4.4:SIM->CLI", MsgType: "8", Raw: "8=FIX.4.4"}))
	require.NoError(t, w.Close())

	require.Equal(t, 2, db.calls())
	assert.True(t, strings.HasPrefix(db.queries[0], `CREATE TABLE IF NOT EXISTS "fixsim_journal"`))
	assert.True(t, strings.HasPrefix(db.queries[1], `INSERT INTO "fixsim_journal"`))
	assert.Equal(t, []any{at, "out", "FIX.4.4:SIM->CLI", "8", "8=FIX.4.4"}, db.args[1])

	assert.ErrorIs(t, w.TryAppend(Record{}), ErrClosed)
}

func TestWriter_QueueFull(t *testing.T) {
	db := &fakeDB{}
	w := NewWriter(db, "j", 1, zerolog.Nop())
	// Marca como iniciado sem o loop de gravação, para a fila encher
	w.started.Store(true)

	require.NoError(t, w.TryAppend(Record{MsgType: "8"}))
	assert.ErrorIs(t, w.TryAppend(Record{MsgType: "8"}), ErrQueueFull)
	require.NoError(t, w.Close())
	assert.Equal(t, 0, db.calls())
}

func TestWriter_StartFailsWhenTableCannotBeCreated(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}
	w := NewWriter(db, "j", 1, zerolog.Nop())
	assert.Error(t, w.Start(context.Background()))
}

func TestWriter_InsertErrorIsLogged(t *testing.T) {
	db := &fakeDB{}
	w := NewWriter(db, "j", 4, zerolog.Nop())
	require.NoError(t, w.Start(context.Background()))

	db.mu.Lock()
	db.err = errors.New("disk full")
	db.mu.Unlock()

	require.NoError(t, w.TryAppend(Record{MsgType: "8"}))
	require.NoError(t, w.TryAppend(Record{MsgType: "9"}))
	require.NoError(t, w.Close())
	assert.Equal(t, 3, db.calls())
}
