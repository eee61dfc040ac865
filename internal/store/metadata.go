package store

import "database/sql"

// SetImportedFileHash records the content hash of an imported questions
// file so unchanged files can be skipped on the next start.
func (s *Store) SetImportedFileHash(path, hash string) error {
	_, err := s.db.Exec(
		`INSERT INTO import_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		"import:"+path, hash, hash,
	)
	return err
}

// GetImportedFileHash returns the recorded hash for a questions file.
// Returns empty string and nil error if the file was never imported.
func (s *Store) GetImportedFileHash(path string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT value FROM import_metadata WHERE key = ?`, "import:"+path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}
