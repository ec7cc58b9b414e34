package domain

import (
	"path"
	"regexp"
)

const (
	StructureFile = "structure.sql"
	ArchiveSuffix = ".sql.gz"
)

var dailyArchivePattern = regexp.MustCompile(`\.(\d{4}-\d{2}-\d{2})\.sql\.gz$`)

// StructurePath is <database>/structure.sql.
func StructurePath(database string) string {
	return path.Join(database, StructureFile)
}

// WholeArchivePath is <database>/<table>.sql.gz.
func WholeArchivePath(database, table string) string {
	return path.Join(database, table+ArchiveSuffix)
}

// DailyDir is <database>/<table>.
func DailyDir(database, table string) string {
	return path.Join(database, table)
}

// DailyArchivePath is <database>/<table>/<table>.<YYYY-MM-DD>.sql.gz.
func DailyArchivePath(database, table string, day Date) string {
	return path.Join(DailyDir(database, table), table+"."+day.String()+ArchiveSuffix)
}

// ParseDailyArchiveDate extracts the day from a daily archive name or path.
func ParseDailyArchiveDate(name string) (Date, bool) {
	m := dailyArchivePattern.FindStringSubmatch(name)
	if m == nil {
		return Date{}, false
	}
	d, err := ParseDate(m[1])
	if err != nil {
		return Date{}, false
	}
	return d, true
}
