package info

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/aalhour/pgbackrest-go/internal/config"
	"github.com/aalhour/pgbackrest-go/internal/errkind"
)

// Kind distinguishes which info file a PgSet belongs to: archive.info's
// history uses the key name "db-id" for a PostgreSQL system identifier
// where backup.info uses "db-system-id" for the same semantic field — a
// naming inconsistency preserved on the wire and unified internally
// (§9 open question, §6).
type Kind int

const (
	KindArchive Kind = iota
	KindBackup
)

const (
	sectionDB        = "db"
	sectionDBHistory = "db:history"

	keyDBID             = "db-id"
	keyDBSystemID       = "db-system-id"
	keyDBVersion        = "db-version"
	keyDBCatalogVersion = "db-catalog-version"
	keyDBControlVersion = "db-control-version"
)

// PgData is one PostgreSQL instance generation ever stored under a
// stanza: the id pgBackRest assigns it, its reported system identifier,
// and (for backup/manifest files only) the catalog/control versions
// stanza-create validates against.
type PgData struct {
	ID             int
	SystemID       uint64
	Version        string
	CatalogVersion int
	ControlVersion int
}

// PgSet is the current PostgreSQL instance plus its full history,
// newest first (§4.6, grounded on original_source/src/info/infoPg.c).
// Current's PgId is set here, at construction, rather than in a later
// check pass — the original's infoPgNew leaves pgId unset until a
// check function runs; this spec places it up front (§9 open question).
type PgSet struct {
	Kind    Kind
	Current int // index into History of the current entry
	History []PgData
}

// NewPgSet constructs a PgSet whose current entry is history[0] — the
// caller is responsible for ordering history newest-first, the
// convention original_source/src/info/infoPg.c's load path produces.
func NewPgSet(kind Kind, history []PgData) (*PgSet, error) {
	if len(history) == 0 {
		return nil, errkind.New(errkind.AssertError, "info: pg history must include at least one entry")
	}
	return &PgSet{Kind: kind, Current: 0, History: history}, nil
}

// idKey returns "db-id" for archive.info, "db-system-id" for
// backup.info/manifest, matching §6's wire-format split.
func (s *PgSet) idKey() string {
	if s.Kind == KindArchive {
		return keyDBID
	}
	return keyDBSystemID
}

// Write renders the db/db:history sections into ini, per §4.6/§6.
func (s *PgSet) Write(ini *config.Ini) error {
	cur := s.History[s.Current]
	ini.Set(sectionDB, keyDBID, strconv.Itoa(cur.ID))
	ini.Set(sectionDB, keyDBSystemID, formatSystemID(cur.SystemID))
	ini.Set(sectionDB, keyDBVersion, cur.Version)

	for _, pg := range s.History {
		entry := map[string]any{
			"db-version": pg.Version,
		}
		entry[s.idKey()] = formatSystemID(pg.SystemID)
		if s.Kind == KindBackup {
			entry[keyDBCatalogVersion] = pg.CatalogVersion
			entry[keyDBControlVersion] = pg.ControlVersion
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		ini.Set(sectionDBHistory, strconv.Itoa(pg.ID), string(data))
	}
	return nil
}

// formatSystemID renders a PostgreSQL system identifier the way the
// original stores it: as a plain decimal string within the JSON/ini
// value, not a JSON number (system ids exceed float64's exact integer
// range).
func formatSystemID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// ReadPgSet parses the db/db:history sections out of ini (§4.6/§6).
func ReadPgSet(ini *config.Ini, kind Kind) (*PgSet, error) {
	idKeyName := keyDBID
	if kind == KindBackup {
		idKeyName = keyDBSystemID
	}

	curIDStr, ok := ini.Get(sectionDB, keyDBID)
	if !ok {
		return nil, errkind.New(errkind.FormatError, "info: missing [db] %s", keyDBID)
	}
	curID, err := strconv.Atoi(curIDStr)
	if err != nil {
		return nil, errkind.New(errkind.FormatError, "info: malformed [db] %s: %v", keyDBID, err)
	}

	historyKeys := ini.SectionKeys(sectionDBHistory)
	ids := make([]int, 0, len(historyKeys))
	for _, k := range historyKeys {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, errkind.New(errkind.FormatError, "info: malformed [db:history] key %q", k)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errkind.New(errkind.FormatError, "info: [db:history] must include at least one entry")
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids))) // newest-first (§4.6)

	history := make([]PgData, 0, len(ids))
	currentIdx := -1
	for i, id := range ids {
		raw, _ := ini.Get(sectionDBHistory, strconv.Itoa(id))
		var entry map[string]any
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, errkind.New(errkind.JSONFormatError, "info: [db:history] %d: %v", id, err)
		}

		systemIDStr, _ := entry[idKeyName].(string)
		systemID, err := strconv.ParseUint(systemIDStr, 10, 64)
		if err != nil {
			return nil, errkind.New(errkind.FormatError, "info: [db:history] %d: malformed %s", id, idKeyName)
		}
		version, _ := entry[keyDBVersion].(string)

		pg := PgData{ID: id, SystemID: systemID, Version: version}
		if kind == KindBackup {
			if cv, ok := entry[keyDBCatalogVersion].(float64); ok {
				pg.CatalogVersion = int(cv)
			}
			if cv, ok := entry[keyDBControlVersion].(float64); ok {
				pg.ControlVersion = int(cv)
			}
		}

		history = append(history, pg)
		if id == curID {
			currentIdx = i
		}
	}
	if currentIdx < 0 {
		return nil, errkind.New(errkind.FormatError, "info: current db id %d not found in history", curID)
	}

	return &PgSet{Kind: kind, Current: currentIdx, History: history}, nil
}
