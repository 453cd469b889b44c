package metrics

// Pre-defined metrics of the call relay. All live in DefaultRegistry.

var (
	// Call registry (origin side).
	ProxyPrepared     = DefaultRegistry.Counter("xcall/proxy/prepared")
	ProxyRequested    = DefaultRegistry.Counter("xcall/proxy/requested")
	ProxyAcknowledged = DefaultRegistry.Counter("xcall/proxy/acknowledged")
	ProxyRejected     = DefaultRegistry.Counter("xcall/proxy/rejected")
	// ProxyCallbackFailed counts acknowledgements whose callback reverted.
	ProxyCallbackFailed = DefaultRegistry.Counter("xcall/proxy/callback_failed")

	// Execution registry (target side).
	ServerExecuted     = DefaultRegistry.Counter("xcall/server/executed")
	ServerRejected     = DefaultRegistry.Counter("xcall/server/rejected")
	ServerRemoteFailed = DefaultRegistry.Counter("xcall/server/remote_failed")

	// Proof verification latency in microseconds.
	ProofVerifyTime = DefaultRegistry.Histogram("xcall/proof/verify_us")

	// RelayHead tracks the canonical head number of the in-process header chain.
	RelayHead = DefaultRegistry.Gauge("xcall/relay/head")
)
