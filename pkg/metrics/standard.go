package metrics

// Pre-defined metrics for the JAM core. All metrics live in
// DefaultRegistry so they are globally accessible without passing a
// registry around.

var (
	// ---- Accumulation metrics ----

	// AccumulationSlot tracks the timeslot of the most recently folded batch.
	AccumulationSlot = DefaultRegistry.Gauge("accumulate.slot")
	// AccumulationTime records the wall time to fold one timeslot's batch, in milliseconds.
	AccumulationTime = DefaultRegistry.Histogram("accumulate.batch_process_ms")
	// ServicesInvoked counts per-service accumulate invocations.
	ServicesInvoked = DefaultRegistry.Counter("accumulate.services_invoked")
	// InvocationsRolledBack counts invocations that hit panic, out-of-gas, or fault.
	InvocationsRolledBack = DefaultRegistry.Counter("accumulate.invocations_rolled_back")

	// ---- Availability metrics ----

	// PackagesTracked tracks the number of packages currently being accumulated.
	PackagesTracked = DefaultRegistry.Gauge("availability.packages_tracked")
	// SegmentsAccepted counts segments that passed Merkle verification and were recorded.
	SegmentsAccepted = DefaultRegistry.Counter("availability.segments_accepted")
	// SegmentsRejected counts segments rejected as duplicate, untracked, or bad-proof.
	SegmentsRejected = DefaultRegistry.Counter("availability.segments_rejected")
	// PackagesCompleted counts packages that reached the K-segment reconstructable threshold.
	PackagesCompleted = DefaultRegistry.Counter("availability.packages_completed")
	// ReconstructTime records systematic RS decode duration in milliseconds.
	ReconstructTime = DefaultRegistry.Histogram("availability.reconstruct_ms")

	// ---- PVM metrics ----

	// InstructionsExecuted counts PVM Step calls across every invocation.
	InstructionsExecuted = DefaultRegistry.Counter("pvm.instructions_executed")
	// GasConsumed counts total gas charged across every invocation.
	GasConsumed = DefaultRegistry.Counter("pvm.gas_consumed")
	// HostCallsDispatched counts ecalli interrupts handled.
	HostCallsDispatched = DefaultRegistry.Counter("pvm.host_calls_dispatched")
)
