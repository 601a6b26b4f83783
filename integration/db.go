package integration

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Fantom-foundation/lachesis-base/kvdb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/leveldb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/memorydb"
	"github.com/Fantom-foundation/lachesis-base/kvdb/table"
)

// DBDirName is the directory of the LevelDB database inside the data directory.
const DBDirName = "chaindata"

// Table prefixes of the components sharing one database.
var (
	lightClientTable = []byte("L")
	channelTable     = []byte("C")
	ethAppTable      = []byte("E")
)

// DBs are the component views of one database.
type DBs struct {
	Root        kvdb.Store
	LightClient kvdb.Store
	Channel     kvdb.Store
	ETHApp      kvdb.Store
}

// SplitDB carves the component tables out of db.
func SplitDB(db kvdb.Store) DBs {
	return DBs{
		Root:        db,
		LightClient: table.New(db, lightClientTable),
		Channel:     table.New(db, channelTable),
		ETHApp:      table.New(db, ethAppTable),
	}
}

// OpenDB opens the database selected by preset. dataDir is only used by
// persistent presets.
func OpenDB(dataDir string, preset PresetConfig) (kvdb.Store, error) {
	if err := preset.Validate(); err != nil {
		return nil, err
	}
	if preset.DBType == DBTypeMemory {
		return memorydb.New(), nil
	}
	if dataDir == "" {
		return nil, fmt.Errorf("preset %q needs a data directory", preset.Name)
	}
	path := filepath.Join(dataDir, DBDirName)
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := leveldb.New(path, preset.CacheBytes(), preset.Handles, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return db, nil
}
