package models

// FeedDocument is the persisted projection of a Notification. Entities are
// stored in their compact "type::id" form so the recipient-scoped queries
// and the seen-state set mutations work on plain string membership.
//
// Unseen is always a subset of Users. A recipient has seen a notification
// exactly when it appears in Users but not in Unseen.
type FeedDocument struct {
	ID          string                 `bson:"_id" json:"id"`
	Actor       string                 `bson:"actor" json:"actor"`
	Verb        int                    `bson:"verb" json:"verb"`
	Object      string                 `bson:"object" json:"object"`
	Source      string                 `bson:"source" json:"source"`
	Level       int                    `bson:"level" json:"level"`
	Target      []string               `bson:"target" json:"target"`
	Users       []string               `bson:"users" json:"users"`
	Unseen      []string               `bson:"unseen" json:"unseen"`
	Context     map[string]interface{} `bson:"context,omitempty" json:"context,omitempty"`
	Created     int64                  `bson:"created" json:"created"`
	Expires     int64                  `bson:"expires" json:"expires"`
	ExternalKey string                 `bson:"external_key,omitempty" json:"external_key,omitempty"`
}

// SeenBy reports whether the recipient, given in compact form, has marked
// this document seen. Recipients outside the audience have no seen-state.
func (d *FeedDocument) SeenBy(recipient string) bool {
	for _, u := range d.Unseen {
		if u == recipient {
			return false
		}
	}
	return true
}

// HasRecipient reports whether the compact-form recipient is part of the
// audience.
func (d *FeedDocument) HasRecipient(recipient string) bool {
	for _, u := range d.Users {
		if u == recipient {
			return true
		}
	}
	return false
}
