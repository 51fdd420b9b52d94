package memory

import (
	"fmt"
	"sync"

	"tupledb/pkg/primitives"
	"tupledb/pkg/storage/page"
	"tupledb/pkg/tuple"
)

// TableInfo holds the catalog entry for a single table.
type TableInfo struct {
	File       page.DbFile
	Name       string
	PrimaryKey string
}

// GetID returns the table's ID, which is the ID of its backing file.
func (ti *TableInfo) GetID() primitives.TableID {
	return ti.File.GetID()
}

// TableManager is the catalog: it maps table names and IDs to their backing
// database files. All operations are safe for concurrent use.
type TableManager struct {
	nameToTable map[string]*TableInfo
	idToTable   map[primitives.TableID]*TableInfo
	mutex       sync.RWMutex
}

// NewTableManager creates an empty catalog.
func NewTableManager() *TableManager {
	return &TableManager{
		nameToTable: make(map[string]*TableInfo),
		idToTable:   make(map[primitives.TableID]*TableInfo),
	}
}

// AddTable registers a table. An existing table with the same name or ID is
// replaced.
func (tm *TableManager) AddTable(f page.DbFile, name, primaryKey string) error {
	if f == nil {
		return fmt.Errorf("file cannot be nil")
	}
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}

	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	info := &TableInfo{File: f, Name: name, PrimaryKey: primaryKey}
	id := f.GetID()

	if existing, exists := tm.nameToTable[name]; exists {
		delete(tm.idToTable, existing.GetID())
	}
	if existing, exists := tm.idToTable[id]; exists {
		delete(tm.nameToTable, existing.Name)
	}

	tm.nameToTable[name] = info
	tm.idToTable[id] = info
	return nil
}

// GetDbFile returns the database file backing the table with the given ID.
func (tm *TableManager) GetDbFile(tableID primitives.TableID) (page.DbFile, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	info, exists := tm.idToTable[tableID]
	if !exists {
		return nil, fmt.Errorf("table with ID %d not found", tableID)
	}
	return info.File, nil
}

// GetTableID returns the ID of the table with the given name.
func (tm *TableManager) GetTableID(name string) (primitives.TableID, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	info, exists := tm.nameToTable[name]
	if !exists {
		return 0, fmt.Errorf("table '%s' not found", name)
	}
	return info.GetID(), nil
}

// GetTableName returns the name of the table with the given ID.
func (tm *TableManager) GetTableName(tableID primitives.TableID) (string, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	info, exists := tm.idToTable[tableID]
	if !exists {
		return "", fmt.Errorf("table with ID %d not found", tableID)
	}
	return info.Name, nil
}

// GetTupleDesc returns the schema of the table with the given ID.
func (tm *TableManager) GetTupleDesc(tableID primitives.TableID) (*tuple.TupleDescription, error) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	info, exists := tm.idToTable[tableID]
	if !exists {
		return nil, fmt.Errorf("table with ID %d not found", tableID)
	}
	return info.File.GetTupleDesc(), nil
}

// TableIDs returns the IDs of all registered tables.
func (tm *TableManager) TableIDs() []primitives.TableID {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	ids := make([]primitives.TableID, 0, len(tm.idToTable))
	for id := range tm.idToTable {
		ids = append(ids, id)
	}
	return ids
}

// TableExists reports whether a table with the given name is registered.
func (tm *TableManager) TableExists(name string) bool {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	_, exists := tm.nameToTable[name]
	return exists
}

// Clear removes all tables and closes their backing files.
func (tm *TableManager) Clear() {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	for _, info := range tm.idToTable {
		if info.File != nil {
			info.File.Close()
		}
	}
	tm.nameToTable = make(map[string]*TableInfo)
	tm.idToTable = make(map[primitives.TableID]*TableInfo)
}
