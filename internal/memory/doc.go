// Package memory keeps image preprocessing inside the container's memory
// budget.
//
// Decoding a large reference image can briefly need several hundred
// megabytes. GOMEMLIMIT is not derived from cgroup limits automatically, so
// [ApplyLimitFromEnv] sets it from MEMORY_LIMIT (Kubernetes Downward API)
// scaled by MEMORY_RATIO:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.75"
//
// An explicit GOMEMLIMIT always wins.
//
// [Monitor] samples heap usage. Once usage crosses the critical water mark,
// [Monitor.Wait] blocks new preprocessing batches until usage falls below
// the high water mark again. Generation calls are not affected.
package memory
