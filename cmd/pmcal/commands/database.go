package commands

import (
	"database/sql"

	"github.com/teranos/pmcal/am"
	"github.com/teranos/pmcal/db"
	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/logger"
	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/engine"
	"github.com/teranos/pmcal/maint/store"
)

// Global flags, bound by the root command
var (
	TenantFlag string
	DBPathFlag string
	ActorFlag  string
)

// openDatabase opens and migrates a database using the specified path.
// If dbPath is empty, it loads from am config.
func openDatabase(dbPath string) (*sql.DB, string, error) {
	if dbPath == "" {
		path, err := am.GetDatabasePath()
		if err != nil {
			return nil, "", errors.Wrap(err, "failed to get database path")
		}
		if path == "" {
			path = am.DefaultDatabasePath
		}
		dbPath = path
	}

	database, err := db.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, dbPath, nil
}

// session is everything a scheduling command needs: config, store, engine
// and the request scope built from the global flags.
type session struct {
	cfg    *am.Config
	db     *sql.DB
	dbPath string
	store  *store.Store
	engine *engine.Engine
	rc     maint.RequestContext
}

func openSession() (*session, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	database, dbPath, err := openDatabase(DBPathFlag)
	if err != nil {
		return nil, err
	}

	tenant := TenantFlag
	if tenant == "" {
		tenant = cfg.GetDefaultTenant()
	}

	st := store.New(database, logger.ComponentLogger("store"))
	return &session{
		cfg:    cfg,
		db:     database,
		dbPath: dbPath,
		store:  st,
		engine: engine.New(st, maint.ClockIn(cfg.Location()), logger.ComponentLogger("engine")),
		rc:     maint.RequestContext{TenantID: tenant, ActorID: ActorFlag},
	}, nil
}

func (s *session) Close() error {
	return s.db.Close()
}
