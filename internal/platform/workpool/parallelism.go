package workpool

import "runtime"

// maxParallelism reports the host's available parallelism, used to derive
// a default worker count when the caller passes 0.
func maxParallelism() int {
	return runtime.GOMAXPROCS(0)
}
