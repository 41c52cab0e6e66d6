package model

// Payload is the structured record carried by a token. Values are JSON
// compatible: strings, bools, nil, numbers (json.Number after decoding),
// nested maps and slices.
type Payload map[string]interface{}

// Keys of the payload issued after every appended block.
const (
	NextPrevHashKey = "prev_hash"
	NextIndexKey    = "index"
	NextIssuedAtKey = "issued_at"
)

// NextPayload builds the payload that authorizes the scan following block b.
func NextPayload(b *Block, issuedAt string) Payload {
	return Payload{
		NextPrevHashKey: b.Hash,
		NextIndexKey:    b.Index,
		NextIssuedAtKey: issuedAt,
	}
}
