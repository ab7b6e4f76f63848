// Package sqlite implements a store backend persisted in a single SQLite
// database file.
//
// Nodes live in one table keyed by (parent, name); dataset descriptors are
// kept as deterministic CBOR. Chunks live in a second table keyed by
// (node, chunk index) together with the filter mask they were encoded
// with. The database uses the rollback journal, so a read-only open needs
// no write access to the directory holding the file.
package sqlite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/robert-malhotra/go-h5/internal/store"
)

var (
	// ErrNotStore is returned when opening a file that was not created by
	// this backend.
	ErrNotStore = errors.New("not an h5 store")

	// ErrExists is returned by an exclusive Create when the file exists.
	ErrExists = errors.New("file already exists")
)

// Mode selects how Create treats an existing file.
type Mode uint8

const (
	// Append opens an existing store, or creates a new one.
	Append Mode = iota
	// Truncate discards an existing file and starts an empty store.
	Truncate
	// Exclusive fails with ErrExists if the file exists.
	Exclusive
)

func (m Mode) String() string {
	switch m {
	case Append:
		return "append"
	case Truncate:
		return "truncate"
	case Exclusive:
		return "exclusive"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	key    INTEGER PRIMARY KEY,
	parent INTEGER NOT NULL,
	name   TEXT NOT NULL,
	path   TEXT NOT NULL,
	kind   INTEGER NOT NULL,
	meta   BLOB,
	UNIQUE (parent, name)
);

CREATE TABLE IF NOT EXISTS chunks (
	node INTEGER NOT NULL,
	idx  INTEGER NOT NULL,
	mask INTEGER NOT NULL,
	data BLOB NOT NULL,
	PRIMARY KEY (node, idx)
) WITHOUT ROWID;

INSERT OR IGNORE INTO nodes (key, parent, name, path, kind) VALUES (1, 0, '/', '/', 1);
`

const rootKey store.NodeKey = 1

var _ store.Backend = (*Backend)(nil)

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("sqlite: CBOR encoder initialization failed: " + err.Error())
	}
}

// Backend stores nodes and chunks in a SQLite database.
type Backend struct {
	mu       sync.Mutex
	conn     *sqlite.Conn
	path     string
	readOnly bool
}

// Create opens path for writing. A missing file is created with an empty
// store; an existing one is handled according to mode. A file holding
// anything but a store fails with ErrNotStore and is left untouched.
func Create(path string, mode Mode) (*Backend, error) {
	switch mode {
	case Append:
	case Truncate:
		for _, p := range []string{path, path + "-journal"} {
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("truncating %s: %w", path, err)
			}
		}
	case Exclusive:
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrExists)
		}
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", path, err)
		}
		f.Close()
	default:
		return nil, fmt.Errorf("creating %s: unknown mode %s", path, mode)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := checkSchema(conn, true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema in %s: %w", path, err)
	}
	return &Backend{conn: conn, path: path}, nil
}

// checkSchema reports ErrNotStore unless the database holds exactly the
// store tables, or nothing at all when empty is allowed.
func checkSchema(conn *sqlite.Conn, empty bool) error {
	var tables []string
	err := sqlitex.Execute(conn,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				tables = append(tables, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotStore, err)
	}
	if len(tables) == 0 && empty {
		return nil
	}
	if len(tables) != 2 || tables[0] != "chunks" || tables[1] != "nodes" {
		return fmt.Errorf("%w: unexpected tables %v", ErrNotStore, tables)
	}
	return nil
}

// Open opens an existing store. With readOnly set the database is opened
// read-only and every modification fails.
func Open(path string, readOnly bool) (*Backend, error) {
	if !readOnly {
		b, err := openExisting(path, sqlite.OpenReadWrite)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	b, err := openExisting(path, sqlite.OpenReadOnly)
	if err != nil {
		return nil, err
	}
	b.readOnly = true
	return b, nil
}

func openExisting(path string, flags ...sqlite.OpenFlags) (*Backend, error) {
	conn, err := sqlite.OpenConn(path, flags...)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := checkSchema(conn, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Backend{conn: conn, path: path}, nil
}

// Path returns the database file path.
func (b *Backend) Path() string {
	return b.path
}

func (b *Backend) Root() store.NodeKey {
	return rootKey
}

const nodeColumns = "key, parent, name, path, kind, meta"

func scanNode(stmt *sqlite.Stmt) (store.Node, error) {
	n := store.Node{
		Key:    store.NodeKey(stmt.ColumnInt64(0)),
		Parent: store.NodeKey(stmt.ColumnInt64(1)),
		Name:   stmt.ColumnText(2),
		Path:   stmt.ColumnText(3),
		Kind:   store.Kind(stmt.ColumnInt64(4)),
	}
	if size := stmt.ColumnLen(5); size > 0 {
		raw := make([]byte, size)
		stmt.ColumnBytes(5, raw)
		var meta store.Meta
		if err := cbor.Unmarshal(raw, &meta); err != nil {
			return store.Node{}, fmt.Errorf("decoding descriptor of %s: %w", n.Path, err)
		}
		n.Meta = &meta
	}
	return n, nil
}

func (b *Backend) queryNode(query string, args ...any) (store.Node, bool, error) {
	var (
		n     store.Node
		found bool
	)
	err := sqlitex.Execute(b.conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			var err error
			n, err = scanNode(stmt)
			found = err == nil
			return err
		},
	})
	return n, found, err
}

func (b *Backend) Node(key store.NodeKey) (store.Node, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, ok, err := b.queryNode("SELECT "+nodeColumns+" FROM nodes WHERE key = ?", int64(key))
	if err != nil {
		return store.Node{}, err
	}
	if !ok {
		return store.Node{}, fmt.Errorf("no node with key %d", key)
	}
	return n, nil
}

func (b *Backend) Lookup(parent store.NodeKey, name string) (store.Node, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queryNode("SELECT "+nodeColumns+" FROM nodes WHERE parent = ? AND name = ?", int64(parent), name)
}

// errStopList ends a listing query from inside its result callback.
var errStopList = errors.New("stop listing")

// List steps through the children of parent in name order and decodes
// each row only when it is reached. fn runs while the connection is busy
// and must not call back into b.
func (b *Backend) List(parent store.NodeKey, start uint64, fn func(store.Node) (bool, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := sqlitex.Execute(b.conn,
		"SELECT "+nodeColumns+" FROM nodes WHERE parent = ? ORDER BY name LIMIT -1 OFFSET ?",
		&sqlitex.ExecOptions{
			Args: []any{int64(parent), int64(start)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				n, err := scanNode(stmt)
				if err != nil {
					return err
				}
				stop, err := fn(n)
				if err != nil {
					return err
				}
				if stop {
					return errStopList
				}
				return nil
			},
		})
	if errors.Is(err, errStopList) {
		return nil
	}
	return err
}

func (b *Backend) Create(parent store.NodeKey, name string, kind store.Kind, meta *store.Meta) (n store.Node, err error) {
	if b.readOnly {
		return store.Node{}, fmt.Errorf("%s is open read-only", b.path)
	}
	var rawMeta []byte
	if meta != nil {
		rawMeta, err = encMode.Marshal(meta)
		if err != nil {
			return store.Node{}, fmt.Errorf("encoding descriptor: %w", err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	defer sqlitex.Save(b.conn)(&err)

	p, ok, err := b.queryNode("SELECT "+nodeColumns+" FROM nodes WHERE key = ?", int64(parent))
	if err != nil {
		return store.Node{}, err
	}
	if !ok || p.Kind != store.KindGroup {
		return store.Node{}, fmt.Errorf("parent %d is not a group", parent)
	}

	path := store.ChildPath(p.Path, name)
	err = sqlitex.Execute(b.conn,
		"INSERT INTO nodes (parent, name, path, kind, meta) VALUES (?, ?, ?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{int64(parent), name, path, int64(kind), rawMeta},
		})
	if sqlite.ErrCode(err) == sqlite.ResultConstraintUnique {
		return store.Node{}, fmt.Errorf("%s: %w", path, store.ErrAlreadyExists)
	}
	if err != nil {
		return store.Node{}, fmt.Errorf("inserting %s: %w", path, err)
	}

	n = store.Node{
		Key:    store.NodeKey(b.conn.LastInsertRowID()),
		Parent: parent,
		Name:   name,
		Path:   path,
		Kind:   kind,
	}
	if meta != nil {
		m := meta.Clone()
		n.Meta = &m
	}
	return n, nil
}

func (b *Backend) ReadChunk(key store.NodeKey, idx uint64) (store.Chunk, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var (
		c     store.Chunk
		found bool
	)
	err := sqlitex.Execute(b.conn,
		"SELECT mask, data FROM chunks WHERE node = ? AND idx = ?",
		&sqlitex.ExecOptions{
			Args: []any{int64(key), int64(idx)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				c.Mask = uint32(stmt.ColumnInt64(0))
				c.Data = make([]byte, stmt.ColumnLen(1))
				stmt.ColumnBytes(1, c.Data)
				found = true
				return nil
			},
		})
	if err != nil {
		return store.Chunk{}, false, fmt.Errorf("reading chunk %d of node %d: %w", idx, key, err)
	}
	return c, found, nil
}

func (b *Backend) WriteChunks(key store.NodeKey, chunks map[uint64]store.Chunk) (err error) {
	if b.readOnly {
		return fmt.Errorf("%s is open read-only", b.path)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	defer sqlitex.Save(b.conn)(&err)

	for idx, c := range chunks {
		err = sqlitex.Execute(b.conn,
			"INSERT OR REPLACE INTO chunks (node, idx, mask, data) VALUES (?, ?, ?, ?)",
			&sqlitex.ExecOptions{
				Args: []any{int64(key), int64(idx), int64(c.Mask), c.Data},
			})
		if err != nil {
			return fmt.Errorf("writing chunk %d of node %d: %w", idx, key, err)
		}
	}
	return nil
}

func (b *Backend) ReadOnly() bool {
	return b.readOnly
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	if err != nil {
		return fmt.Errorf("closing %s: %w", b.path, err)
	}
	return nil
}
