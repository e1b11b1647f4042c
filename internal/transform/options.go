package transform

const (
	// DefaultThreshold is the minimum number of rows a key needs to be kept.
	DefaultThreshold = 100
	// DefaultKeyColumn is the zero-based column counted for the threshold.
	DefaultKeyColumn = 1
	// DefaultHeaderLines is the number of report header lines preceding data.
	DefaultHeaderLines = 3
)

// Column positions inside a Row.
const (
	ColAccount = iota
	ColDomain
	ColDate
	ColSearchImprShare
	ColTopOfPageRate
	ColAbsTopOfPageRate
	ColPositionAboveRate

	// RowColumns is the number of columns a complete row carries.
	RowColumns
)

// TimestampLayout is the rendering used for the date column.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Options controls the filter. Zero values fall back to the defaults, except
// HeaderLines where a negative value means zero.
type Options struct {
	Threshold   int
	KeyColumn   int
	HeaderLines int
}

// DefaultOptions returns the stock filter settings.
func DefaultOptions() Options {
	return Options{
		Threshold:   DefaultThreshold,
		KeyColumn:   DefaultKeyColumn,
		HeaderLines: DefaultHeaderLines,
	}
}

func (o Options) normalized() Options {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.KeyColumn < 0 {
		o.KeyColumn = DefaultKeyColumn
	}
	if o.HeaderLines < 0 {
		o.HeaderLines = 0
	}
	return o
}
