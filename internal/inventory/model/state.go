package model

// State is the whole persisted tree, written as one snapshot.
type State struct {
	Version          int                      `json:"version"`
	Settings         Settings                 `json:"settings"`
	Suppliers        []*Supplier              `json:"suppliers"`
	Products         []*Product               `json:"products"`
	Movements        []*Movement              `json:"movements"`
	Mappings         map[string]string        `json:"mappings"`
	PendingPurchases []*PendingReconciliation `json:"pendingPurchases"`
	PendingSales     []*PendingReconciliation `json:"pendingSales"`
	LastImport       *BatchImportRecord       `json:"lastImport,omitempty"`
	NextSeq          int64                    `json:"nextSeq"`
}

// SnapshotVersion is written into every saved snapshot.
const SnapshotVersion = 2

// NewState returns an empty valid state.
func NewState(settings Settings) *State {
	return &State{
		Version:  SnapshotVersion,
		Settings: settings,
		Mappings: make(map[string]string),
	}
}
