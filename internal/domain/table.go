package domain

// DefaultDateField is the partition column used when a daily table does not
// name one.
const DefaultDateField = "day"

// Table is either a WholeTable or a DailyTable.
type Table interface {
	TableName() string
	isTable()
}

// WholeTable is dumped completely, including drop/create statements, on
// every run.
type WholeTable struct {
	Name string
}

func (t WholeTable) TableName() string { return t.Name }
func (WholeTable) isTable()            {}

// DailyTable is dumped one archive per calendar day, selecting rows whose
// DateField equals that day. Rows are assumed never to move to another day
// once written.
type DailyTable struct {
	Name      string
	DateField string
	StartDate Date
}

func (t DailyTable) TableName() string { return t.Name }
func (DailyTable) isTable()            {}

// NewDailyTable fills in the defaults: DateField "day" and StartDate
// yesterday according to clock.
func NewDailyTable(name, dateField string, start Date, clock Clock) DailyTable {
	if dateField == "" {
		dateField = DefaultDateField
	}
	if start.IsZero() {
		start = Yesterday(clock)
	}
	return DailyTable{Name: name, DateField: dateField, StartDate: start}
}

// SplitTables partitions tables by variant, keeping the order they were
// given in.
func SplitTables(tables []Table) ([]WholeTable, []DailyTable) {
	var whole []WholeTable
	var daily []DailyTable
	for _, t := range tables {
		switch t := t.(type) {
		case WholeTable:
			whole = append(whole, t)
		case DailyTable:
			daily = append(daily, t)
		}
	}
	return whole, daily
}
