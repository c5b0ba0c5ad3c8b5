package request

// Kind classifies how a request was served.
type Kind int

const (
	// KindLazy: the request was queued; nothing was executed yet.
	KindLazy Kind = iota
	// KindHit: the document was served from or updated in the cache.
	KindHit
	// KindMiss: the cache was populated without evicting anything.
	KindMiss
	// KindEvict: populating the cache evicted another document.
	KindEvict
	// KindFault: the document does not exist on the server.
	KindFault
)

func (k Kind) String() string {
	switch k {
	case KindLazy:
		return "LAZY"
	case KindHit:
		return "HIT"
	case KindMiss:
		return "MISS"
	case KindEvict:
		return "EVICT"
	case KindFault:
		return "FAULT"
	default:
		return "UNKNOWN"
	}
}

// Result is the classification attached to a response. EvictedKey is set
// only for KindEvict and QueueDepth only for KindLazy.
type Result struct {
	Kind       Kind
	EvictedKey string
	QueueDepth int
}

// Lazy acknowledges a queued request.
func Lazy(depth int) Result { return Result{Kind: KindLazy, QueueDepth: depth} }

// Hit classifies a cache hit.
func Hit() Result { return Result{Kind: KindHit} }

// Miss classifies a cache fill without eviction.
func Miss() Result { return Result{Kind: KindMiss} }

// Evict classifies a cache fill that evicted key.
func Evict(key string) Result { return Result{Kind: KindEvict, EvictedKey: key} }

// Fault classifies a lookup of a missing document.
func Fault() Result { return Result{Kind: KindFault} }

// Response is what a server returns for a request. Found is false when
// the document does not exist (KindFault); Payload is then nil.
type Response struct {
	ServerID uint32
	Request  Request
	Result   Result
	Payload  []byte
	Found    bool
}
