package scanner

// State is a step of the scan pipeline.
type State int

// Pipeline states in the order a successful scan visits them.
const (
	Idle State = iota
	ScanningRoot
	CrawlPlanning
	ScanningSubpages
	Aggregating
	Done
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ScanningRoot:
		return "scanning_root"
	case CrawlPlanning:
		return "crawl_planning"
	case ScanningSubpages:
		return "scanning_subpages"
	case Aggregating:
		return "aggregating"
	case Done:
		return "done"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}
