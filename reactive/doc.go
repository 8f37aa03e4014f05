// Package reactive provides the small observable primitives the async-data
// cache and cookie cells are built on.
//
// A Scheduler is a FIFO of pending notifications owned by one environment
// (one server request or one client session). Mutations enqueue their
// notifications while the owner still holds its own locks and drain them
// after releasing those locks, so observers see changes in mutation order and
// may safely call back into the owner.
//
// Ref is a single observable value; Source is anything a watcher can attach
// to (refs, cache entries, fetch targets).
package reactive
