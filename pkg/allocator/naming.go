package allocator

import (
	"regexp"
	"strings"
	"time"
)

// FileExt is the extension of migration files.
const FileExt = ".sql"

const dateLayout = "20060102"

var (
	slugUnsafe  = regexp.MustCompile(`[^A-Za-z0-9_-]`)
	namePattern = regexp.MustCompile(`^\d{8}_[A-Za-z0-9_-]+$`)
)

// Slugify lower-cases s and replaces every character outside
// [A-Za-z0-9_-] with an underscore.
//
//	Slugify("Add User Table!") == "add_user_table_"
func Slugify(s string) string {
	return slugUnsafe.ReplaceAllString(strings.ToLower(s), "_")
}

// DatePrefix formats the UTC calendar date of t as YYYYMMDD.
func DatePrefix(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// ValidName reports whether name has the "<YYYYMMDD>_<fragment>" shape of
// an allocated migration name.
func ValidName(name string) bool {
	if !namePattern.MatchString(name) {
		return false
	}
	_, err := time.Parse(dateLayout, name[:len(dateLayout)])
	return err == nil
}

// Header is the first line of the migration file for name.
func Header(name string) string {
	return "-- " + name
}

// Stub is the initial content of the migration file for name.
func Stub(name string) []byte {
	return []byte(Header(name) + "\n\n")
}
