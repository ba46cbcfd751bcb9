// Package update writes a ZIP archive from an ordered list of items, reusing
// entries of a prior archive and compressing new content on a bounded pool
// of workers.
//
// A Coordinator runs in one of two modes. In serial mode every item is
// compressed straight into the archive. In multithreaded mode each worker
// compresses into blocks of a fixed-size pool; the worker of the next item
// in archive order is promoted to write directly into the archive, and
// items finishing earlier wait in a reorder buffer. The archive layout is
// the same in both modes.
//
// Basic usage:
//
//	coord, err := update.NewCoordinator(
//	    update.WithThreads(8),
//	    update.WithMethods(format.MethodZstd, format.MethodDeflate),
//	)
//	if err != nil {
//	    return err
//	}
//	report, err := coord.Run(ctx, out, items, source)
package update
