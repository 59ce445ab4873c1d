package common

const (
	ComponentDownloader         = "downloader"
	ComponentLogFetcher         = "log-fetcher"
	ComponentSyncManager        = "sync-manager"
	ComponentReorgDetector      = "reorg-detector"
	ComponentMaintenance        = "maintenance"
	ComponentIndexerCoordinator = "indexer-coordinator"
	ComponentRPC                = "rpc"
	ComponentCurateProjector    = "curate-projector"
	ComponentCurateOracle       = "curate-oracle"
	ComponentCurateStore        = "curate-store"
)

var AllComponents = map[string]struct{}{
	ComponentDownloader:         {},
	ComponentLogFetcher:         {},
	ComponentSyncManager:        {},
	ComponentReorgDetector:      {},
	ComponentMaintenance:        {},
	ComponentIndexerCoordinator: {},
	ComponentRPC:                {},
	ComponentCurateProjector:    {},
	ComponentCurateOracle:       {},
	ComponentCurateStore:        {},
}
