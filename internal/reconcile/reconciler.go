package reconcile

type Options struct {
	Cleanup   CleanupMode
	Prefetch  bool
	ChunkSize int
}

// Reconciler is the sole writer of the folders and images tables.
type Reconciler struct {
	store  Store
	remote Remote
	cache  Cache
	opts   Options
}

func New(store Store, remote Remote, cache Cache, opts Options) *Reconciler {
	if opts.ChunkSize <= 0 || opts.ChunkSize > MaxChunk {
		opts.ChunkSize = MaxChunk
	}
	if opts.Cleanup == "" {
		opts.Cleanup = CleanupAfterCommit
	}
	return &Reconciler{store: store, remote: remote, cache: cache, opts: opts}
}
