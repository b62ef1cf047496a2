package interfaces

// CacheStatus is reported in the Cache-Status response header
type CacheStatus string

const (
	// CacheStatusHit means the response came from data already held
	CacheStatusHit CacheStatus = "hit"
	// CacheStatusMiss means the upstream was queried for this response
	CacheStatusMiss CacheStatus = "miss"
)

func (cs CacheStatus) String() string {
	return string(cs)
}
