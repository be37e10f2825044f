package config

const (
	DefaultPendingDir   = "pending_transactions"
	DefaultProcessedDir = "processed_transactions"
	DefaultBlocksDir    = "blocks"

	DefaultLogDir     = "./logs"
	DefaultLogFile    = "blockarchive.log"
	DefaultMaxSizeMB  = 100
	DefaultMaxAgeDays = 7
)

// ini section names
const (
	sectionStore   = "store"
	sectionLog     = "log"
	sectionMetrics = "metrics"
	sectionIndex   = "index"
)
