package domain

import "fmt"

// Partition is one of the two isolated bookmark namespaces.
type Partition string

const (
	Private Partition = "private"
	Public  Partition = "public"
)

// Partitions lists every partition, private first.
var Partitions = []Partition{Private, Public}

// ParsePartition validates s. An empty string selects Private.
func ParsePartition(s string) (Partition, error) {
	switch Partition(s) {
	case "", Private:
		return Private, nil
	case Public:
		return Public, nil
	default:
		return "", fmt.Errorf("unknown partition %q (want private or public)", s)
	}
}

func (p Partition) String() string { return string(p) }

// ExportFileName is the deterministic name of the JSON export for p.
func (p Partition) ExportFileName() string {
	return "hajimi_bookmarks_" + string(p) + ".json"
}
