// Package bandwidth accounts for the bytes miners push over the wire. The
// ledger is append only so throughput numbers can always be recomputed from
// the raw records.
package bandwidth

// List of different traffic kinds.
const (
	KindFilter  = "filter"
	KindPayload = "payload"
	KindBlock   = "block"
	KindControl = "control"
)

// Record represents one traffic event attributed to a single miner.
type Record struct {
	Step  int
	Miner uint64
	Kind  string
	Bytes int
}

// Ledger collects traffic records for a run. Records are never updated or
// removed once written.
type Ledger struct {
	records []Record
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Add appends a traffic record. Zero byte events are dropped since they
// carry no accounting information.
func (l *Ledger) Add(step int, miner uint64, kind string, bytes int) {
	if bytes <= 0 {
		return
	}

	l.records = append(l.records, Record{
		Step:  step,
		Miner: miner,
		Kind:  kind,
		Bytes: bytes,
	})
}

// Count returns the number of records held by the ledger.
func (l *Ledger) Count() int {
	return len(l.records)
}

// TotalBytes returns the bytes recorded inside [start, end) across all
// miners and kinds.
func (l *Ledger) TotalBytes(start, end int) int {
	var total int
	for _, r := range l.records {
		if r.Step < start || r.Step >= end {
			continue
		}
		total += r.Bytes
	}

	return total
}

// KindBytes returns the bytes recorded inside [start, end) for one traffic
// kind.
func (l *Ledger) KindBytes(kind string, start, end int) int {
	var total int
	for _, r := range l.records {
		if r.Kind != kind || r.Step < start || r.Step >= end {
			continue
		}
		total += r.Bytes
	}

	return total
}

// AverageThroughput returns the mean KiB per second per participating miner
// inside [start, end). A step lasts one second. Only miners that actually
// produced traffic in the window count toward the denominator.
func (l *Ledger) AverageThroughput(start, end int) float64 {
	seconds := end - start
	if seconds <= 0 {
		return 0
	}

	var total int
	miners := make(map[uint64]struct{})

	for _, r := range l.records {
		if r.Step < start || r.Step >= end {
			continue
		}
		total += r.Bytes
		miners[r.Miner] = struct{}{}
	}

	if len(miners) == 0 {
		return 0
	}

	kib := float64(total) / 1024
	return kib / float64(seconds) / float64(len(miners))
}
