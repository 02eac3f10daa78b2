////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 Privategrity Corporation                                   /
//                                                                             /
// All rights reserved.                                                        /
////////////////////////////////////////////////////////////////////////////////

// Handles low level database control and interfaces

package storage

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/teamsync/users"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database implements the users.Database interface with an underlying SQLite
// database. Writes other than BatchRecords are used to seed the database.
type Database struct {
	db *gorm.DB // Stored database connection
}

var _ users.Database = (*Database)(nil)

// NewDatabase opens the database at dbFilePath. An empty path opens a
// temporary in-memory database.
func NewDatabase(dbFilePath string) (*Database, error) {
	useTemporary := len(dbFilePath) == 0
	return newDatabase(dbFilePath, useTemporary)
}

// NewTemporaryDatabase opens an in-memory database. Databases opened with the
// same name share their contents.
func NewTemporaryDatabase(name string) (*Database, error) {
	return newDatabase(name, true)
}

// If useTemporary is set to true, dbFilePath names an in-RAM database.
func newDatabase(dbFilePath string, useTemporary bool) (*Database, error) {
	if useTemporary {
		dbFilePath = fmt.Sprintf(temporaryDbPath, dbFilePath)
		jww.WARN.Printf("No database file path specified! " +
			"Using temporary in-memory database")
	}

	// Create the database connection
	db, err := gorm.Open(sqlite.Open(dbFilePath), &gorm.Config{
		Logger: logger.New(jww.TRACE, logger.Config{LogLevel: logger.Info}),
	})
	if err != nil {
		return nil, errors.Errorf("Unable to initialize database backend: %+v", err)
	}

	// Enable foreign keys because they are disabled in SQLite by default
	if err = db.Exec("PRAGMA foreign_keys = ON", nil).Error; err != nil {
		return nil, err
	}

	// Enable Write Ahead Logging to enable multiple DB connections
	if err = db.Exec("PRAGMA journal_mode = WAL;", nil).Error; err != nil {
		return nil, err
	}

	sqlDb, err := db.DB()
	if err != nil {
		return nil, errors.Errorf(
			"Unable to configure database connection pool: %+v", err)
	}
	sqlDb.SetMaxIdleConns(5)
	sqlDb.SetMaxOpenConns(10)
	sqlDb.SetConnMaxIdleTime(5 * time.Minute)
	sqlDb.SetConnMaxLifetime(10 * time.Minute)

	// Initialize the database schema
	// WARNING: Order is important. Do not change without database testing
	err = db.AutoMigrate(&User{}, &Channel{}, &ChannelMembership{},
		&Preference{}, &System{})
	if err != nil {
		return nil, err
	}

	jww.INFO.Println("Database backend initialized successfully!")
	return &Database{db: db}, nil
}

// Close closes the underlying connection pool.
func (d *Database) Close() error {
	sqlDb, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}
