package model

// Recipient is a read-only projection used within a send run. It is resolved
// fresh at run start and never persisted on the campaign itself.
type Recipient struct {
	ID          string            `db:"id" json:"id"`
	Email       string            `db:"email" json:"email"`
	Phone       string            `db:"phone" json:"phone"`
	Tags        []string          `db:"tags" json:"tags"`
	MergeFields map[string]string `db:"merge_fields" json:"merge_fields"`
}

// AddressFor picks the delivery address matching the campaign channel.
func (r Recipient) AddressFor(t CampaignType) string {
	if t == TypeSMS {
		return r.Phone
	}
	return r.Email
}
