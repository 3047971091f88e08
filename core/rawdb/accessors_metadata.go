// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package rawdb

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dominant-strategies/go-tributary/db"
	"github.com/dominant-strategies/go-tributary/log"
)

// DatabaseVersion is the schema version written by this release.
const DatabaseVersion = 1

// ReadDatabaseVersion retrieves the version number of the database.
func ReadDatabaseVersion(r db.KeyValueReader, logger *log.Logger) *uint64 {
	enc, err := r.Get(databaseVersionKey)
	if err == db.ErrNotFound {
		return nil
	}
	if err != nil {
		logger.WithField("err", err).Fatal("Failed to read the database version")
		return nil
	}
	if len(enc) == 0 {
		return nil
	}
	version, n := protowire.ConsumeVarint(enc)
	if n != len(enc) {
		logger.WithField("enc", enc).Fatal("Failed to decode database version")
		return nil
	}
	return &version
}

// WriteDatabaseVersion stores the version number of the database
func WriteDatabaseVersion(d db.Database, version uint64, logger *log.Logger) {
	txn := d.NewTxn()
	if err := txn.Put(databaseVersionKey, protowire.AppendVarint(nil, version)); err != nil {
		txn.Discard()
		logger.WithField("err", err).Fatal("Failed to store the database version")
		return
	}
	if err := txn.Commit(); err != nil {
		logger.WithField("err", err).Fatal("Failed to store the database version")
	}
}
