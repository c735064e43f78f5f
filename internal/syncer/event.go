package syncer

// Kind distinguishes user mutations from hydration replays. Only mutations
// schedule remote writes; replace events exist so hydrating a collection from
// the remote store can never feed back into another remote write.
type Kind int

const (
	KindMutation Kind = iota
	KindReplace
)

// Event is one observed change to a syncable collection. Collection carries
// the gateway collection name the snapshot should be written to.
type Event struct {
	UserID     string
	Collection string
	Kind       Kind
}
