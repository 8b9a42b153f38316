package ports

// StatusSink receives progress from the ingestion worker. Calls must not
// block or fail the worker.
type StatusSink interface {
	Report(line string)
	SetTotal(n int)
	SetProcessed(n int)
}
