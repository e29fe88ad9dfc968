package collect

// Deduper keeps the first occurrence of every fingerprint, in arrival order.
// Rows re-enter a virtualized window whenever consecutive scroll windows
// overlap, so the set is mandatory for a correct grid read.
type Deduper struct {
	seen map[string]struct{}
	rows [][]string
}

// NewDeduper returns an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]struct{})}
}

// Add records fields under key. It reports false if key was already seen,
// in which case fields are discarded.
func (d *Deduper) Add(key string, fields []string) bool {
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	d.rows = append(d.rows, fields)
	return true
}

// Len returns the number of distinct rows.
func (d *Deduper) Len() int { return len(d.rows) }

// Rows returns the distinct rows in first-observed order.
func (d *Deduper) Rows() [][]string { return d.rows }
