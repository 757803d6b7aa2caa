package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

// accountCredentialRecord is the at-rest row for one account's credential.
// AccountID is unique: a put replaces the previous row inside one
// transaction, so readers never observe more than one row per account.
type accountCredentialRecord struct {
	bun.BaseModel `bun:"table:account_credentials,alias:acr"`

	ID             string    `bun:"id,pk"`
	AccountID      string    `bun:"account_id,notnull,unique"`
	Variant        string    `bun:"variant,notnull"`
	Projection     string    `bun:"projection,notnull"`
	Payload        []byte    `bun:"payload,notnull"`
	PayloadFormat  string    `bun:"payload_format,notnull"`
	PayloadVersion int       `bun:"payload_version,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
