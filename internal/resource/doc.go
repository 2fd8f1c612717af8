// Package resource implements the reservation budget for address-space
// allocations.
//
// The Controller tracks how many bytes are currently reserved through the
// region layer and, when a limit is configured, refuses reservations that
// would exceed it:
//
//	┌────────────────────────────────────────────┐
//	│                 Controller                 │
//	├──────────────────────┬─────────────────────┤
//	│  Reservation Limit   │  Usage Tracking     │
//	│  (weighted sem,      │  (atomic counters)  │
//	│   fail-fast)         │                     │
//	├──────────────────────┼─────────────────────┤
//	│  AcquireMemory       │  MemoryUsage        │
//	│  ReleaseMemory       │  PeakUsage          │
//	│                      │  Reservations       │
//	└──────────────────────┴─────────────────────┘
//
// AcquireMemory never blocks. Address-space operations are not cancellable,
// so a reservation either fits the budget immediately or fails with
// ErrMemoryLimitExceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB of reserved address space
//	})
//
//	if err := rc.AcquireMemory(size); err != nil {
//	    // ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(size)
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
package resource
