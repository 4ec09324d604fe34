/*
Package workers sizes and bounds CPU-heavy work in containerized
environments.

runtime.NumCPU reports host CPUs, while GOMAXPROCS follows the container CPU
limit. Count and its helpers use GOMAXPROCS so a pod limited to two cores on a
64-core node does not start 64 image workers.

	// libvips thread pool
	media.InitVips(workers.ForCPU(8))

	// concurrent preprocessing batches across HTTP requests
	limiter := workers.NewLimiter(workers.ForMixed(8))
	if !limiter.Acquire(ctx.Done()) {
		return ctx.Err()
	}
	defer limiter.Release()

# Environment Variable Override

VIPS_WORKERS fixes the count regardless of CPU limits. The limit passed to
Count still applies.
*/
package workers
