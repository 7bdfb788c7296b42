package reqflow

// Handler consumes batch execution results.
//
// The runner invokes a handler's methods from the goroutine that drives the
// batch's poll loop:
//
//   - HandleResult is called exactly once per request, in completion order,
//     as soon as the result is harvested. Completion order is
//     non-deterministic; fast responses arrive first.
//   - HandleBatch is called exactly once, after every request in the batch
//     has completed, with results sorted by source order. It never fires for
//     a cancelled or superseded batch. An empty script yields a call with an
//     empty slice.
//   - Progress is called on each poll tick while requests are pending, with
//     the number still outstanding and the batch size. Hosts typically drive
//     an activity indicator from it.
//
// Methods must not block; long-running work should be dispatched to another
// goroutine. Panics in handler methods are recovered and logged, and do not
// abort the batch.
type Handler interface {
	HandleResult(res Result)
	HandleBatch(results []Result)
	Progress(pending, total int)
}

// NopHandler is a [Handler] whose methods do nothing. Embed it to implement
// only the callbacks a consumer cares about:
//
//	type printer struct{ reqflow.NopHandler }
//
//	func (printer) HandleResult(res reqflow.Result) { fmt.Println(res.Request.URL()) }
type NopHandler struct{}

func (NopHandler) HandleResult(Result)         {}
func (NopHandler) HandleBatch([]Result)        {}
func (NopHandler) Progress(pending, total int) {}

// HandlerFuncs adapts plain functions to the [Handler] interface. Nil fields
// are no-ops.
type HandlerFuncs struct {
	OnResult   func(res Result)
	OnBatch    func(results []Result)
	OnProgress func(pending, total int)
}

func (h HandlerFuncs) HandleResult(res Result) {
	if h.OnResult != nil {
		h.OnResult(res)
	}
}

func (h HandlerFuncs) HandleBatch(results []Result) {
	if h.OnBatch != nil {
		h.OnBatch(results)
	}
}

func (h HandlerFuncs) Progress(pending, total int) {
	if h.OnProgress != nil {
		h.OnProgress(pending, total)
	}
}
