package domain

// Cursor is the resumable read position of a datafeed: the feed it reads from and the
// ack id acknowledging the last batch handed to listeners.
type Cursor struct {
	FeedID    string `json:"feed_id"   db:"feed_id"`
	AckID     string `json:"ack_id"    db:"ack_id"`
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
}

// IsZero reports whether the cursor points at no feed yet.
func (c Cursor) IsZero() bool {
	return c.FeedID == "" && c.AckID == ""
}

// Batch is the result of one successful datafeed read.
type Batch struct {
	Events []*Event
	Cursor Cursor
}
