package export

import "fmt"

// Row is one dictionary line.
type Row struct {
	Priority   int
	English    bool
	Trigger    string
	OutputName string
}

// FormatRow renders a row as a newline-terminated, tab-separated line.
// Fields are written verbatim.
func FormatRow(r Row) string {
	flag := "N"
	if r.English {
		flag = "Y"
	}
	return fmt.Sprintf("%d\t%s\t%s\t(Sound %s)\n", r.Priority, flag, r.Trigger, r.OutputName)
}
