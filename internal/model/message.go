package model

type (
	// Message is one entry in a conversation log. Only Read changes after
	// creation.
	Message struct {
		ID             string `json:"id" bson:"id"`
		ConversationID string `json:"conversationId" bson:"conversation_id"`
		From           string `json:"from" bson:"from"`
		To             string `json:"to" bson:"to"`
		Content        string `json:"content" bson:"content"`
		ContentRef     string `json:"ipfsHash,omitempty" bson:"content_ref,omitempty"`
		Timestamp      int64  `json:"timestamp" bson:"timestamp"` // unix millis
		Read           bool   `json:"read" bson:"read"`
	}

	// ContactSummary is the per-peer rollup shown in a contact list.
	ContactSummary struct {
		ID        string `json:"id"`
		Last      string `json:"last"`
		Unread    int    `json:"unread"`
		Timestamp int64  `json:"timestamp"`
	}
)
