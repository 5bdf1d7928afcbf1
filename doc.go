// Package bridge keeps a document model (sections and ordered blocks) and a
// multi-step form model consistent with each other.
//
// A transfer reads a snapshot of one side, validates it, transforms it into
// the other side's shape and writes it to the destination store. Every
// transfer runs under a bounded retry loop and a timeout, is single-flight
// per direction, and reports faults as classified ErrorRecords inside an
// OperationResult instead of raw errors.
//
//	docs := state.NewMemoryDocumentStore(bridge.DocumentState{})
//	form := state.NewMemoryFormStore(bridge.FormState{})
//	sync, err := bridge.NewSyncManager(docs, form, bridge.WithTimeout(2*time.Second))
//	if err != nil {
//		return err
//	}
//	result := sync.SyncBidirectional(ctx)
package bridge
