package batch

import (
	"strconv"
	"strings"
	"time"

	"auctionload/internal/config"
)

const csvExt = ".csv"

// Namer derives artifact names for one run date.
type Namer struct {
	naming config.Naming
	date   string
}

// NewNamer formats now with the configured date layout.
func NewNamer(naming config.Naming, now time.Time) Namer {
	return Namer{naming: naming, date: now.UTC().Format(naming.DateLayout)}
}

// Date returns the formatted run date.
func (n Namer) Date() string { return n.date }

// IsCandidate reports whether name is an unprocessed export.
func (n Namer) IsCandidate(name string) bool {
	return !strings.Contains(name, n.naming.SkipMarker)
}

// ConsumedName is the name an input receives before it is trashed.
func (n Namer) ConsumedName() string {
	return n.naming.ConsumedPrefix + n.date + csvExt
}

// OutputName returns the first free output name for the run date:
// __AU_<date>.csv, then __AU_<date>_2.csv and so on.
func (n Namer) OutputName(taken map[string]struct{}) string {
	base := n.naming.OutputPrefix + n.date
	name := base + csvExt
	for i := 2; ; i++ {
		if _, ok := taken[name]; !ok {
			return name
		}
		name = base + "_" + strconv.Itoa(i) + csvExt
	}
}
