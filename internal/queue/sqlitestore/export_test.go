package sqlitestore

import "database/sql"

func DBForTest(s *Store) *sql.DB { return s.db }
