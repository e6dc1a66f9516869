package httpapi

// Config defines recording receiver settings.
type Config struct {
	Addr      string
	RecordDir string
	BasePath  string
	// MaxBodyBytes caps one posted entry; DefaultMaxBodyBytes when zero.
	MaxBodyBytes int64
	// HistorySize is how many entries per session the live stream replays.
	HistorySize int
}
